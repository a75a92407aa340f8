// Package poll turns a one-shot status fetch into a recurring, cancelable
// polling loop. One Poller owns at most one loop at a time, and a loop has
// at most one fetch in flight, so updates arrive in issue order.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/emberglow-cli/internal/project"
)

// FetchFunc retrieves the authoritative project state once.
type FetchFunc func(ctx context.Context, projectID string) (*project.Project, error)

// Callbacks receive loop results. OnUpdate fires for every successful
// fetch; OnDone fires once, after the loop has stopped, when the project
// done-predicate holds; OnError fires once and terminates the loop.
// Callbacks run on the loop goroutine and must not call Start or Stop.
type Callbacks struct {
	OnUpdate func(*project.Project)
	OnDone   func(*project.Project)
	OnError  func(error)
}

// Options configures loop timing and error classification.
type Options struct {
	// Interval is the delay between fetches.
	Interval time.Duration

	// FastInterval is used instead of Interval right after a regenerate
	// or cancel request, to observe the transition quickly.
	FastInterval time.Duration

	// BusyInterval is the retry delay for transient-busy responses.
	BusyInterval time.Duration

	// IsTransient classifies an error as transient-busy: reschedule
	// instead of failing. Nil treats every error as fatal to the loop.
	IsTransient func(error) bool
}

// Poller runs the polling loop for one project at a time.
type Poller struct {
	fetch  FetchFunc
	opts   Options
	logger *slog.Logger

	// startMu serializes Start and Stop so the stop-old/register-new
	// sequence is atomic; two concurrent Starts must not interleave and
	// orphan a loop.
	startMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a poller. It does nothing until Start is called.
func New(fetch FetchFunc, opts Options, logger *slog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.FastInterval <= 0 {
		opts.FastInterval = opts.Interval
	}
	if opts.BusyInterval <= 0 {
		opts.BusyInterval = 2 * time.Second
	}
	return &Poller{fetch: fetch, opts: opts, logger: logger}
}

// Start begins polling projectID, cancelling any previous loop first and
// waiting for it to exit so two loops never race to deliver callbacks.
// The first fetch happens immediately; fast selects the short reschedule
// interval. Must not be called from inside a callback.
func (p *Poller) Start(projectID string, fast bool, cb Callbacks) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	p.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	interval := p.opts.Interval
	if fast {
		interval = p.opts.FastInterval
	}

	p.logger.Debug("polling started", "project_id", projectID, "interval", interval)
	go p.loop(ctx, projectID, interval, cb, done)
}

// Stop cancels the running loop, if any, and waits for it to exit.
// Idempotent; safe to call when nothing is running.
func (p *Poller) Stop() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	p.stop()
}

func (p *Poller) stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Poller) loop(ctx context.Context, projectID string, interval time.Duration, cb Callbacks, done chan struct{}) {
	defer close(done)

	for {
		proj, err := p.fetch(ctx, projectID)

		// A result that arrives after Stop belongs to nobody.
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			if p.opts.IsTransient != nil && p.opts.IsTransient(err) {
				p.logger.Debug("backend busy, rescheduling", "project_id", projectID, "delay", p.opts.BusyInterval)
				if !sleepCtx(ctx, p.opts.BusyInterval) {
					return
				}
				continue
			}
			p.logger.Warn("poll failed", "project_id", projectID, "error", err)
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return
		}

		if cb.OnUpdate != nil {
			cb.OnUpdate(proj)
		}

		if proj.Done() {
			p.logger.Debug("polling done", "project_id", projectID, "status", proj.Status)
			if cb.OnDone != nil {
				cb.OnDone(proj)
			}
			return
		}

		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

// sleepCtx waits for d, returning false if ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
