package api

// CreateProjectRequest carries the fields for starting a generation job.
type CreateProjectRequest struct {
	Script        string
	VoiceID       string
	Temperature   float64
	TopP          float64
	AutoNormalize bool
}

// CreateProjectResponse is the server's acknowledgement of a new project.
type CreateProjectResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
}

// StitchResponse carries the filename of the stitched final audio.
type StitchResponse struct {
	FinalAudioFilename string `json:"final_audio_filename"`
}

// ActiveProject is one entry from the active-project discovery endpoint.
type ActiveProject struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Voice describes a selectable voice: the built-in auto voice or a clone.
type Voice struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// SavedAudio is server-side metadata for a persisted final audio file.
type SavedAudio struct {
	ID             string `json:"id"`
	Filename       string `json:"filename"`
	DisplayName    string `json:"display_name"`
	AudioType      string `json:"audio_type"`
	CreatedAt      string `json:"created_at"`
	SourceFilename string `json:"source_filename"`
}

// ackResponse is the generic message body for fire-and-forget verbs.
type ackResponse struct {
	Message string `json:"message"`
}

// errorResponse is the FastAPI-style error body.
type errorResponse struct {
	Detail string `json:"detail"`
}
