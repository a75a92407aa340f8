// Package orchestrator owns the client-side state machine for a
// generation project: start, resume, per-chunk regeneration, cooperative
// cancellation and final stitching. It is the only writer of the in-memory
// project value; the presentation layer reads snapshots and dispatches
// intents.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/emberglow-cli/internal/api"
	"github.com/dgnsrekt/emberglow-cli/internal/history"
	"github.com/dgnsrekt/emberglow-cli/internal/poll"
	"github.com/dgnsrekt/emberglow-cli/internal/project"
	"github.com/dgnsrekt/emberglow-cli/internal/session"
)

// Backend is the remote surface the orchestrator drives. *api.Client
// implements it; tests substitute fakes.
type Backend interface {
	CreateProject(ctx context.Context, req api.CreateProjectRequest) (*api.CreateProjectResponse, error)
	GetProject(ctx context.Context, projectID string) (*project.Project, error)
	RegenerateChunk(ctx context.Context, projectID string, index int) error
	Stitch(ctx context.Context, projectID string) (string, error)
	Cancel(ctx context.Context, projectID string) error
	Cleanup(ctx context.Context, projectID string) error
	ActiveProjects(ctx context.Context) ([]api.ActiveProject, error)
	SaveAudio(ctx context.Context, audioFilename, displayName, audioType string) (*api.SavedAudio, error)
}

// StartRequest carries everything needed to begin a new project.
type StartRequest struct {
	Script        string
	VoiceID       string
	Name          string
	Temperature   float64
	TopP          float64
	AutoNormalize bool
}

// Options configures orchestration behavior.
type Options struct {
	// MinScriptWords is the minimum script length accepted before any
	// network call is made.
	MinScriptWords int

	// Poll configures the status polling loop.
	Poll poll.Options
}

// maxRegenWaits bounds how many poll cycles the orchestrator waits for a
// queued regeneration to become visible server-side before giving up.
const maxRegenWaits = 40

const noChunk = -1

// Orchestrator is the project state machine.
type Orchestrator struct {
	backend  Backend
	poller   *poll.Poller
	sessions *session.Store
	history  *history.Store
	logger   *slog.Logger
	opts     Options

	mu            sync.Mutex
	proj          *project.Project
	displayName   string
	voiceID       string
	starting      bool
	cancelling    bool
	resuming      bool
	regenerating  int
	seenRegen     bool
	regenWaits    int
	stitched      bool
	finalFilename string
	errMsg        string

	events chan Event
}

// New creates an orchestrator. The history store may be nil; recording is
// then skipped.
func New(backend Backend, sessions *session.Store, hist *history.Store, opts Options, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		backend:      backend,
		sessions:     sessions,
		history:      hist,
		logger:       logger,
		opts:         opts,
		regenerating: noChunk,
		events:       make(chan Event, 32),
	}
	if o.opts.Poll.IsTransient == nil {
		o.opts.Poll.IsTransient = api.IsBusy
	}
	if o.opts.Poll.Interval <= 0 {
		o.opts.Poll.Interval = 5 * time.Second
	}
	if o.opts.Poll.FastInterval <= 0 {
		o.opts.Poll.FastInterval = o.opts.Poll.Interval
	}
	o.poller = poll.New(backend.GetProject, o.opts.Poll, logger)
	return o
}

// Events returns the notification channel for the presentation layer.
// Events may be dropped under backpressure; consumers re-read Snapshot.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Close stops polling. The orchestrator is unusable afterwards.
func (o *Orchestrator) Close() {
	o.poller.Stop()
}

// Start validates req, cleans up any abandoned previous project, creates a
// new one, persists the session pointer and begins polling. On failure the
// orchestrator stays Idle and the same request can be retried: the request
// may still have succeeded server-side, which the pre-start cleanup of the
// next attempt mitigates.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) error {
	if err := o.validate(req); err != nil {
		o.setError(err.Error())
		return err
	}

	o.mu.Lock()
	if o.starting || o.proj != nil {
		o.mu.Unlock()
		return errors.New("a project is already active; reset first")
	}
	o.starting = true
	o.errMsg = ""
	o.mu.Unlock()

	// A stale pointer means an abandoned server-side job. Delete it
	// fire-and-forget; failure has no bearing on the new project.
	if rec := o.sessions.Load(); rec != nil {
		go func(oldID string) {
			if err := o.backend.Cleanup(context.Background(), oldID); err != nil {
				o.logger.Debug("cleanup of previous project failed", "project_id", oldID, "error", err)
			}
		}(rec.ProjectID)
	}

	resp, err := o.backend.CreateProject(ctx, api.CreateProjectRequest{
		Script:        req.Script,
		VoiceID:       req.VoiceID,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		AutoNormalize: req.AutoNormalize,
	})
	if err != nil {
		o.mu.Lock()
		o.starting = false
		o.errMsg = "could not start project: " + err.Error()
		o.mu.Unlock()
		o.emit(Event{Kind: EventError, Message: o.errMsg})
		return err
	}

	o.mu.Lock()
	o.starting = false
	o.displayName = req.Name
	o.voiceID = req.VoiceID
	o.proj = &project.Project{
		ID:          resp.ProjectID,
		Status:      project.Status(resp.Status),
		DisplayName: req.Name,
	}
	o.mu.Unlock()

	// Persist the resume pointer before the first poll; a reload between
	// create and first status must still find its way back.
	o.sessions.Save(resp.ProjectID, req.Name)

	o.poller.Start(resp.ProjectID, false, o.callbacks())
	o.emit(Event{Kind: EventUpdated})
	return nil
}

// Resume attaches to an existing server-side project without re-creating
// it. A missing project clears the session pointer and reports a
// non-resumable session instead of failing silently.
func (o *Orchestrator) Resume(ctx context.Context, projectID, name string) error {
	o.mu.Lock()
	if o.starting || o.proj != nil {
		o.mu.Unlock()
		return errors.New("a project is already active; reset first")
	}
	o.mu.Unlock()

	p, err := o.backend.GetProject(ctx, projectID)
	switch {
	case api.IsNotFound(err):
		o.sessions.Clear()
		msg := "could not resume: project no longer exists on the server"
		o.setError(msg)
		return errors.New(msg)
	case api.IsBusy(err):
		// The job exists but its state file is mid-write; let the
		// polling loop pick it up.
		p = &project.Project{ID: projectID, Status: project.StatusProcessing}
	case err != nil:
		return fmt.Errorf("could not resume: %w", err)
	}

	o.mu.Lock()
	o.displayName = name
	o.resuming = true
	p.DisplayName = name
	o.proj = p
	o.errMsg = ""
	o.mu.Unlock()

	o.sessions.Save(projectID, name)
	o.poller.Start(projectID, false, o.callbacks())
	o.emit(Event{Kind: EventUpdated})
	return nil
}

// DiscoverActive asks the server for a running project belonging to this
// session, for when local storage was cleared but the job lives on.
// Returns nil when there is nothing to recover.
func (o *Orchestrator) DiscoverActive(ctx context.Context) (*api.ActiveProject, error) {
	list, err := o.backend.ActiveProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// Regenerate queues chunk index for regeneration. Chunk 0 is refused
// outright: it anchors voice consistency for every later chunk. The
// stricter gate applies: no regeneration while any chunk is still
// processing, and only one regeneration at a time.
func (o *Orchestrator) Regenerate(ctx context.Context, index int) error {
	o.mu.Lock()
	if o.proj == nil {
		o.mu.Unlock()
		return errors.New("no active project")
	}
	if o.cancelling {
		o.mu.Unlock()
		return errors.New("project is being cancelled")
	}
	if index == 0 {
		o.mu.Unlock()
		return errors.New("chunk 0 is the voice reference and cannot be regenerated")
	}
	ch := o.proj.Chunk(index)
	if ch == nil {
		o.mu.Unlock()
		return fmt.Errorf("chunk %d does not exist", index)
	}
	if o.regenerating != noChunk || !o.proj.AllChunksSettled() {
		o.mu.Unlock()
		return errors.New("another chunk is still generating; wait for it to finish")
	}

	// Optimistic local mark; the server overwrites it on the next
	// observed update.
	ch.Status = project.ChunkProcessing
	ch.AudioFilename = ""
	ch.Error = ""
	o.regenerating = index
	o.seenRegen = false
	o.regenWaits = 0
	projectID := o.proj.ID
	o.mu.Unlock()

	if err := o.backend.RegenerateChunk(ctx, projectID, index); err != nil {
		o.mu.Lock()
		if ch := o.chunkOf(projectID, index); ch != nil {
			ch.Status = project.ChunkFailed
			ch.AudioFilename = ""
			ch.Error = err.Error()
		}
		o.regenerating = noChunk
		o.mu.Unlock()
		o.emit(Event{Kind: EventChunkError, ChunkIndex: index, Message: fmt.Sprintf("chunk %d regeneration failed: %v", index, err)})
		return err
	}

	// Restart at the fast interval to observe the transition quickly.
	o.poller.Start(projectID, true, o.callbacks())
	o.emit(Event{Kind: EventUpdated})
	return nil
}

// Cancel requests cooperative cancellation and keeps polling until the
// drain to cancelled is observed. The in-flight chunk finishes first; the
// client never assumes immediate effect.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	if o.proj == nil {
		o.mu.Unlock()
		return errors.New("no active project")
	}
	if o.cancelling {
		o.mu.Unlock()
		return nil
	}
	o.cancelling = true
	projectID := o.proj.ID
	o.mu.Unlock()

	o.poller.Stop()

	if err := o.backend.Cancel(ctx, projectID); err != nil {
		o.mu.Lock()
		o.cancelling = false
		o.errMsg = "cancel failed: " + err.Error()
		o.mu.Unlock()
		o.emit(Event{Kind: EventError, Message: "cancel failed: " + err.Error()})
		return err
	}

	o.poller.Start(projectID, true, o.callbacks())
	o.emit(Event{Kind: EventUpdated})
	return nil
}

// Stitch concatenates all completed chunks into the final audio. Permitted
// only when every chunk is completed. Stitching twice is served from the
// local result: the backend contract does not promise idempotence.
func (o *Orchestrator) Stitch(ctx context.Context) (string, error) {
	o.mu.Lock()
	if o.proj == nil {
		o.mu.Unlock()
		return "", errors.New("no active project")
	}
	if o.stitched {
		filename := o.finalFilename
		o.mu.Unlock()
		return filename, nil
	}
	if o.cancelling {
		o.mu.Unlock()
		return "", errors.New("project is being cancelled")
	}
	if !o.proj.AllChunksCompleted() {
		o.mu.Unlock()
		return "", errors.New("not all chunks are completed yet")
	}
	projectID := o.proj.ID
	name := o.displayName
	voiceID := o.voiceID
	chunks := len(o.proj.Chunks)
	o.mu.Unlock()

	filename, err := o.backend.Stitch(ctx, projectID)
	if err != nil {
		o.setError("stitch failed: " + err.Error())
		return "", err
	}

	o.mu.Lock()
	o.stitched = true
	o.finalFilename = filename
	if o.proj != nil {
		o.proj.Status = project.StatusStitched
	}
	o.mu.Unlock()

	// Persist under the display name. A save failure is reported but the
	// final audio already exists; nothing is rolled back.
	saveFailed := false
	if name != "" {
		if _, err := o.backend.SaveAudio(ctx, filename, name, "standard"); err != nil {
			saveFailed = true
			o.emit(Event{Kind: EventError, Message: "final audio produced, but saving it failed: " + err.Error()})
		}
	}

	if o.history != nil {
		if err := o.history.Record(ctx, history.Entry{
			ProjectID:     projectID,
			DisplayName:   name,
			VoiceID:       voiceID,
			Chunks:        chunks,
			FinalFilename: filename,
		}); err != nil {
			o.logger.Warn("failed to record generation history", "error", err)
		}
	}

	if !saveFailed {
		o.sessions.Clear()
		o.mu.Lock()
		o.displayName = ""
		o.mu.Unlock()
	}

	o.emit(Event{Kind: EventStitched, Message: filename})
	return filename, nil
}

// Reset abandons the current project client-side and returns to Idle. The
// escape hatch: always available, regardless of error state.
func (o *Orchestrator) Reset() {
	o.poller.Stop()
	o.sessions.Clear()

	o.mu.Lock()
	o.proj = nil
	o.displayName = ""
	o.voiceID = ""
	o.starting = false
	o.cancelling = false
	o.resuming = false
	o.regenerating = noChunk
	o.stitched = false
	o.finalFilename = ""
	o.errMsg = ""
	o.mu.Unlock()

	o.emit(Event{Kind: EventReset})
}

func (o *Orchestrator) validate(req StartRequest) error {
	if strings.TrimSpace(req.Script) == "" {
		return errors.New("script is empty")
	}
	if words := len(strings.Fields(req.Script)); words < o.opts.MinScriptWords {
		return fmt.Errorf("script has %d words, need at least %d", words, o.opts.MinScriptWords)
	}
	if req.VoiceID == "" {
		return errors.New("no voice selected")
	}
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("project name is empty")
	}
	if req.Temperature < 0.1 || req.Temperature > 1.0 {
		return errors.New("temperature must be between 0.1 and 1.0")
	}
	if req.TopP < 0.1 || req.TopP > 1.0 {
		return errors.New("top_p must be between 0.1 and 1.0")
	}
	return nil
}

func (o *Orchestrator) callbacks() poll.Callbacks {
	return poll.Callbacks{
		OnUpdate: o.handleUpdate,
		OnDone:   o.handleDone,
		OnError:  o.handleError,
	}
}

// handleUpdate applies an authoritative server payload. Server state wins
// over any optimistic local marks.
func (o *Orchestrator) handleUpdate(p *project.Project) {
	o.mu.Lock()

	// A late result from a superseded loop belongs to nobody.
	if o.proj == nil || o.proj.ID != p.ID {
		o.mu.Unlock()
		return
	}

	o.resuming = false
	o.proj = project.MergeServerUpdate(o.proj, p)

	// Track the regeneration round-trip: the chunk must be seen
	// processing before its settling means anything. Settling never
	// short-circuits the cancellation check below; the final drain poll
	// can report both in one payload.
	settled := noChunk
	if o.regenerating != noChunk {
		if ch := o.proj.Chunk(o.regenerating); ch != nil {
			switch {
			case ch.Status == project.ChunkProcessing:
				o.seenRegen = true
			case o.seenRegen:
				settled = o.regenerating
				o.regenerating = noChunk
			}
		}
	}

	// Cooperative cancellation drained: clear the session and return to
	// Idle exactly once. A repeat of the same poll result is a no-op
	// because cancelling has already been lowered.
	if o.proj.Status == project.StatusCancelled && o.cancelling {
		o.cancelling = false
		o.proj = nil
		o.displayName = ""
		o.regenerating = noChunk
		o.mu.Unlock()

		o.sessions.Clear()
		o.emit(Event{Kind: EventCancelled, Message: "project cancelled"})
		return
	}

	o.mu.Unlock()
	if settled != noChunk {
		o.emit(Event{Kind: EventUpdated, ChunkIndex: settled})
		return
	}
	o.emit(Event{Kind: EventUpdated})
}

// handleDone runs after the loop has stopped on the done-predicate.
func (o *Orchestrator) handleDone(p *project.Project) {
	o.mu.Lock()
	if o.proj == nil || o.proj.ID != p.ID {
		o.mu.Unlock()
		return
	}

	// A queued regeneration that is not yet visible server-side makes the
	// project look done. Keep watching until the transition appears, with
	// a bound so a dropped request cannot poll forever.
	if o.regenerating != noChunk && !o.seenRegen {
		o.regenWaits++
		if o.regenWaits <= maxRegenWaits {
			projectID := o.proj.ID
			delay := o.opts.Poll.FastInterval
			o.mu.Unlock()

			go func() {
				time.Sleep(delay)
				if o.stillAwaitingRegen(projectID) {
					o.poller.Start(projectID, true, o.callbacks())
				}
			}()
			return
		}

		index := o.regenerating
		o.regenerating = noChunk
		if ch := o.proj.Chunk(index); ch != nil && ch.Status == project.ChunkProcessing {
			ch.Status = project.ChunkFailed
			ch.Error = "regeneration was never observed by the server"
		}
		o.mu.Unlock()
		o.emit(Event{Kind: EventChunkError, ChunkIndex: index, Message: fmt.Sprintf("chunk %d regeneration was not picked up", index)})
		return
	}
	o.mu.Unlock()

	o.emit(Event{Kind: EventDone, Message: string(p.Status)})
}

func (o *Orchestrator) stillAwaitingRegen(projectID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.proj != nil && o.proj.ID == projectID && o.regenerating != noChunk && !o.seenRegen
}

// handleError terminates the polling session. A vanished project clears
// the session pointer; transport errors keep it, so a network blip does
// not destroy the resume pointer for a job still running server-side.
func (o *Orchestrator) handleError(err error) {
	if api.IsNotFound(err) {
		o.sessions.Clear()

		o.mu.Lock()
		resuming := o.resuming
		o.proj = nil
		o.displayName = ""
		o.resuming = false
		o.regenerating = noChunk
		msg := "project no longer exists on the server"
		if resuming {
			msg = "could not resume: " + msg
		}
		o.errMsg = msg
		o.mu.Unlock()

		o.emit(Event{Kind: EventError, Message: msg})
		return
	}

	msg := "lost contact with the server: " + err.Error()
	o.setError(msg)
}

func (o *Orchestrator) setError(msg string) {
	o.mu.Lock()
	o.errMsg = msg
	o.mu.Unlock()
	o.emit(Event{Kind: EventError, Message: msg})
}

// chunkOf returns the chunk only if the given project is still current.
func (o *Orchestrator) chunkOf(projectID string, index int) *project.Chunk {
	if o.proj == nil || o.proj.ID != projectID {
		return nil
	}
	return o.proj.Chunk(index)
}

func (o *Orchestrator) emit(e Event) {
	select {
	case o.events <- e:
	default:
		// Slow consumer; it re-reads Snapshot on the next event anyway.
	}
}
