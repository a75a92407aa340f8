// Package api is the typed HTTP client for the Emberglow generation
// backend. It maps each lifecycle verb to exactly one network call and
// carries no state beyond connection configuration; retries and polling
// live with the caller.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/emberglow-cli/internal/project"
)

// Config holds client connection settings.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	BaseURL string

	// StatusTimeout bounds status polls and simple CRUD calls. A stall
	// there should fail fast and let the polling loop take over.
	StatusTimeout time.Duration

	// GenerateTimeout bounds project creation and stitching. Zero means
	// unbounded: long scripts legitimately take minutes.
	GenerateTimeout time.Duration
}

// Client issues requests against the generation backend.
type Client struct {
	baseURL  string
	status   *http.Client
	generate *http.Client
	logger   *slog.Logger
}

// NewClient creates a backend client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	statusTimeout := cfg.StatusTimeout
	if statusTimeout <= 0 {
		statusTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		status:   &http.Client{Timeout: statusTimeout},
		generate: &http.Client{Timeout: cfg.GenerateTimeout},
		logger:   logger,
	}
}

// CreateProject starts a generation job. The request may succeed
// server-side even when the response is lost; callers must not assume a
// transport failure means no project was created.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*CreateProjectResponse, error) {
	form := url.Values{}
	form.Set("text", req.Script)
	form.Set("voice_id", req.VoiceID)
	form.Set("temperature", strconv.FormatFloat(req.Temperature, 'f', -1, 64))
	form.Set("top_p", strconv.FormatFloat(req.TopP, 'f', -1, 64))
	form.Set("auto_normalize", strconv.FormatBool(req.AutoNormalize))

	requestID := uuid.New().String()
	c.logger.Debug("creating project", "request_id", requestID, "voice", req.VoiceID, "script_length", len(req.Script))

	var resp CreateProjectResponse
	if err := c.postForm(ctx, c.generate, "/project", form, requestID, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("project created", "project_id", resp.ProjectID, "status", resp.Status, "request_id", requestID)
	return &resp, nil
}

// GetProject fetches the authoritative project state. Idempotent and safe
// to call arbitrarily often. A 404 maps to ErrProjectNotFound; a 503 maps
// to ErrServerBusy (the server writes the project file between polls).
func (c *Client) GetProject(ctx context.Context, projectID string) (*project.Project, error) {
	var p project.Project
	if err := c.getJSON(ctx, "/project/"+url.PathEscape(projectID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RegenerateChunk queues one chunk for regeneration. Not idempotent: two
// concurrent calls can produce two in-flight generations for the same
// chunk. The orchestrator prevents that, not the server.
func (c *Client) RegenerateChunk(ctx context.Context, projectID string, index int) error {
	path := fmt.Sprintf("/project/%s/chunk/%d/regenerate", url.PathEscape(projectID), index)
	requestID := uuid.New().String()

	var ack ackResponse
	if err := c.postForm(ctx, c.status, path, nil, requestID, &ack); err != nil {
		return err
	}

	c.logger.Info("chunk regeneration queued", "project_id", projectID, "chunk", index, "request_id", requestID)
	return nil
}

// Stitch concatenates all completed chunk audio into one final file.
func (c *Client) Stitch(ctx context.Context, projectID string) (string, error) {
	var resp StitchResponse
	if err := c.postForm(ctx, c.generate, "/project/"+url.PathEscape(projectID)+"/stitch", nil, "", &resp); err != nil {
		return "", err
	}
	return resp.FinalAudioFilename, nil
}

// Cancel requests cooperative cancellation. The in-flight chunk finishes
// first; callers keep polling until they observe the cancelled state.
func (c *Client) Cancel(ctx context.Context, projectID string) error {
	var ack ackResponse
	return c.postForm(ctx, c.status, "/project/"+url.PathEscape(projectID)+"/cancel", nil, "", &ack)
}

// Cleanup schedules best-effort deletion of a superseded project. Failures
// are the caller's to ignore.
func (c *Client) Cleanup(ctx context.Context, projectID string) error {
	var ack ackResponse
	return c.postForm(ctx, c.status, "/project/"+url.PathEscape(projectID)+"/cleanup", nil, "", &ack)
}

// ActiveProjects lists server-side jobs that are still running, for
// recovering a session whose local pointer was lost.
func (c *Client) ActiveProjects(ctx context.Context) ([]ActiveProject, error) {
	var list []ActiveProject
	if err := c.getJSON(ctx, "/active-projects", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListVoices returns the built-in auto voice plus any cloned voices.
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	var voices []Voice
	if err := c.getJSON(ctx, "/voices", &voices); err != nil {
		return nil, err
	}
	return voices, nil
}

// SaveAudio registers a generated file under a display name.
func (c *Client) SaveAudio(ctx context.Context, audioFilename, displayName, audioType string) (*SavedAudio, error) {
	form := url.Values{}
	form.Set("audio_filename", audioFilename)
	form.Set("display_name", displayName)
	form.Set("audio_type", audioType)

	var saved SavedAudio
	if err := c.postForm(ctx, c.status, "/saved-audio", form, "", &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListSavedAudio returns all persisted final audio entries.
func (c *Client) ListSavedAudio(ctx context.Context) ([]SavedAudio, error) {
	var list []SavedAudio
	if err := c.getJSON(ctx, "/saved-audio", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteSavedAudio removes a persisted entry and its file.
func (c *Client) DeleteSavedAudio(ctx context.Context, savedID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/saved-audio/"+url.PathEscape(savedID), nil)
	if err != nil {
		return &TransportError{Op: "delete saved audio", Err: err}
	}

	resp, err := c.status.Do(req)
	if err != nil {
		return &TransportError{Op: "delete saved audio", Err: err}
	}
	defer resp.Body.Close()

	return c.checkStatus(resp)
}

// AudioURL builds the download URL for a generated audio filename.
func (c *Client) AudioURL(filename string) string {
	return c.baseURL + "/audio/" + url.PathEscape(filename)
}

// DownloadAudio streams a generated audio file into w.
func (c *Client) DownloadAudio(ctx context.Context, filename string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AudioURL(filename), nil)
	if err != nil {
		return 0, &TransportError{Op: "download audio", Err: err}
	}

	resp, err := c.generate.Do(req)
	if err != nil {
		return 0, &TransportError{Op: "download audio", Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: "download audio", Err: err}
	}
	return n, nil
}

// NormalizedText fetches the server-normalized script, when normalization
// changed it. Returns ErrProjectNotFound when no normalized text exists.
func (c *Client) NormalizedText(ctx context.Context, projectID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/project/"+url.PathEscape(projectID)+"/normalized-text", nil)
	if err != nil {
		return "", &TransportError{Op: "get normalized text", Err: err}
	}

	resp, err := c.status.Do(req)
	if err != nil {
		return "", &TransportError{Op: "get normalized text", Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "get normalized text", Err: err}
	}
	return string(body), nil
}

// getJSON performs a GET with the short-timeout client and decodes the
// JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &TransportError{Op: "get " + path, Err: err}
	}

	resp, err := c.status.Do(req)
	if err != nil {
		return &TransportError{Op: "get " + path, Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

// postForm performs a form-encoded POST and decodes the JSON body into out.
func (c *Client) postForm(ctx context.Context, hc *http.Client, path string, form url.Values, requestID string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: "post " + path, Err: err}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &TransportError{Op: "post " + path, Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

// checkStatus maps non-2xx responses to the client error taxonomy.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail := decodeDetail(resp.Body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrProjectNotFound
	case http.StatusServiceUnavailable:
		// The server rewrites the project file between status reads and
		// answers 503 mid-write. Retry shortly.
		return ErrServerBusy
	}

	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

func decodeDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Detail == "" {
		return strings.TrimSpace(string(body))
	}
	return e.Detail
}
