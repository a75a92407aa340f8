package orchestrator

import "github.com/dgnsrekt/emberglow-cli/internal/project"

// EventKind classifies an orchestrator notification.
type EventKind int

const (
	// EventUpdated signals fresh project state; read Snapshot.
	EventUpdated EventKind = iota
	// EventDone signals the generation reached a settled terminal state.
	EventDone
	// EventStitched signals the final audio exists; Message holds its
	// server-side filename.
	EventStitched
	// EventCancelled signals a cancellation fully drained and the
	// orchestrator returned to Idle.
	EventCancelled
	// EventReset signals a client-side reset to Idle.
	EventReset
	// EventError carries a project-level failure message.
	EventError
	// EventChunkError carries a chunk-scoped failure; ChunkIndex names
	// the chunk.
	EventChunkError
)

// Event is one orchestrator notification. The channel is lossy under
// backpressure; treat events as wake-ups and read Snapshot for state.
type Event struct {
	Kind       EventKind
	Message    string
	ChunkIndex int
}

// Snapshot is a point-in-time copy of orchestrator state, safe for the
// presentation layer to read without locking.
type Snapshot struct {
	Project       *project.Project
	DisplayName   string
	Starting      bool
	Cancelling    bool
	Regenerating  int
	Stitched      bool
	FinalFilename string
	Err           string
}

// Active reports whether a project is attached.
func (s Snapshot) Active() bool {
	return s.Project != nil
}

// Snapshot returns a deep copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Project:       o.proj.Clone(),
		DisplayName:   o.displayName,
		Starting:      o.starting,
		Cancelling:    o.cancelling,
		Regenerating:  o.regenerating,
		Stitched:      o.stitched,
		FinalFilename: o.finalFilename,
		Err:           o.errMsg,
	}
}
