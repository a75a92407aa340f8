// Package project defines the client-side model of a long-form generation
// job and the rules for deciding when one is finished.
package project

// Status is the lifecycle state of a project as reported by the server.
type Status string

// Project statuses. The server owns these values; the client only reads
// them. Stitched is reached after a successful stitch call.
const (
	StatusPending     Status = "pending"
	StatusNormalizing Status = "normalizing"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusReview      Status = "review"
	StatusCancelling  Status = "cancelling"
	StatusCancelled   Status = "cancelled"
	StatusStitched    Status = "stitched"
)

// ChunkStatus is the lifecycle state of a single chunk.
type ChunkStatus string

// Chunk statuses.
const (
	ChunkPending    ChunkStatus = "pending"
	ChunkProcessing ChunkStatus = "processing"
	ChunkCompleted  ChunkStatus = "completed"
	ChunkFailed     ChunkStatus = "failed"
)

// Chunk is one script segment mapped 1:1 to one synthesized audio clip.
// Index is zero-based, immutable, and the regeneration key.
type Chunk struct {
	Index         int         `json:"index"`
	Text          string      `json:"text"`
	Status        ChunkStatus `json:"status"`
	AudioFilename string      `json:"audio_filename,omitempty"`
	ElapsedTime   float64     `json:"elapsed_time,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// Project represents one long-form generation job. DisplayName is
// client-only state; the server is never trusted to echo it back.
type Project struct {
	ID              string  `json:"id"`
	Status          Status  `json:"status"`
	Chunks          []Chunk `json:"chunks"`
	ProgressPercent int     `json:"progress_percent"`
	CompletedChunks int     `json:"completed_chunks"`
	TotalChunks     int     `json:"total_chunks"`
	WasNormalized   bool    `json:"was_normalized"`

	DisplayName string `json:"-"`
}

// IsTerminal reports whether the status is one the server will not leave on
// its own.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusReview, StatusCancelled, StatusStitched:
		return true
	}
	return false
}

// HasProcessingChunk reports whether any chunk is still mid-generation.
func (p *Project) HasProcessingChunk() bool {
	for _, c := range p.Chunks {
		if c.Status == ChunkProcessing {
			return true
		}
	}
	return false
}

// Done reports whether polling must stop: the project status is terminal
// AND no chunk is processing. The conjunction matters: a project can sit in
// a terminal-looking status while a regenerated chunk is still in flight.
func (p *Project) Done() bool {
	return p.Status.IsTerminal() && !p.HasProcessingChunk()
}

// AllChunksCompleted reports whether every chunk has finished successfully.
// Stitching is only permitted in this state.
func (p *Project) AllChunksCompleted() bool {
	if len(p.Chunks) == 0 {
		return false
	}
	for _, c := range p.Chunks {
		if c.Status != ChunkCompleted {
			return false
		}
	}
	return true
}

// AllChunksSettled reports whether no chunk is processing. Regeneration is
// gated on this so partial audio never interleaves into a stitch.
func (p *Project) AllChunksSettled() bool {
	return !p.HasProcessingChunk()
}

// Chunk returns the chunk at index, or nil when out of range.
func (p *Project) Chunk(index int) *Chunk {
	if index < 0 || index >= len(p.Chunks) {
		return nil
	}
	return &p.Chunks[index]
}

// Progress derives completed/total counts from the chunk list. The server's
// summary fields are advisory; the per-chunk statuses are authoritative.
func (p *Project) Progress() (completed, total int) {
	total = len(p.Chunks)
	for _, c := range p.Chunks {
		if c.Status == ChunkCompleted {
			completed++
		}
	}
	return completed, total
}

// Clone returns a deep copy. Snapshots handed to the presentation layer
// must never alias the orchestrator-owned value.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Chunks = make([]Chunk, len(p.Chunks))
	copy(cp.Chunks, p.Chunks)
	return &cp
}

// MergeServerUpdate reconciles an authoritative server payload with local
// state. The server wins for every field it owns; the one piece of
// client-only state (DisplayName) is carried over from local. Optimistic
// chunk marks are discarded: once the server has been observed, it is the
// source of truth.
func MergeServerUpdate(local, server *Project) *Project {
	if server == nil {
		return local
	}
	merged := server.Clone()
	if local != nil {
		merged.DisplayName = local.DisplayName
	}
	return merged
}
