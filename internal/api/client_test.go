package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgnsrekt/emberglow-cli/internal/logging"
	"github.com/dgnsrekt/emberglow-cli/internal/project"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL}, logging.New("error", "text"))
}

func TestCreateProject(t *testing.T) {
	var gotPath, gotContentType string
	var gotForm map[string]string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotForm = map[string]string{
			"text":           r.PostFormValue("text"),
			"voice_id":       r.PostFormValue("voice_id"),
			"temperature":    r.PostFormValue("temperature"),
			"top_p":          r.PostFormValue("top_p"),
			"auto_normalize": r.PostFormValue("auto_normalize"),
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"project_id":"proj_abc","status":"normalizing"}`))
	})

	c := testClient(t, handler)
	resp, err := c.CreateProject(context.Background(), CreateProjectRequest{
		Script:        "hello world",
		VoiceID:       "smart_voice",
		Temperature:   0.3,
		TopP:          0.9,
		AutoNormalize: true,
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if resp.ProjectID != "proj_abc" {
		t.Errorf("ProjectID = %s, want proj_abc", resp.ProjectID)
	}
	if gotPath != "/project" {
		t.Errorf("path = %s, want /project", gotPath)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %s, want form encoding", gotContentType)
	}
	want := map[string]string{
		"text":           "hello world",
		"voice_id":       "smart_voice",
		"temperature":    "0.3",
		"top_p":          "0.9",
		"auto_normalize": "true",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, gotForm[k], v)
		}
	}
}

func TestGetProject(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project/proj_abc" {
			t.Errorf("path = %s, want /project/proj_abc", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "proj_abc",
			"status": "processing",
			"was_normalized": true,
			"progress_percent": 50,
			"completed_chunks": 1,
			"total_chunks": 2,
			"chunks": [
				{"index": 0, "text": "one", "status": "completed", "audio_filename": "proj_abc_chunk_0.wav", "elapsed_time": 4.2},
				{"index": 1, "text": "two", "status": "processing"}
			]
		}`))
	})

	c := testClient(t, handler)
	p, err := c.GetProject(context.Background(), "proj_abc")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}

	if p.ID != "proj_abc" || p.Status != project.StatusProcessing {
		t.Errorf("project = %s/%s, want proj_abc/processing", p.ID, p.Status)
	}
	if !p.WasNormalized {
		t.Error("WasNormalized = false, want true")
	}
	if len(p.Chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(p.Chunks))
	}
	if p.Chunks[0].AudioFilename != "proj_abc_chunk_0.wav" {
		t.Errorf("chunk 0 filename = %s", p.Chunks[0].AudioFilename)
	}
	if p.Chunks[1].Status != project.ChunkProcessing {
		t.Errorf("chunk 1 status = %s, want processing", p.Chunks[1].Status)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Project not found"}`))
	})

	c := testClient(t, handler)
	_, err := c.GetProject(context.Background(), "gone")
	if !IsNotFound(err) {
		t.Errorf("error = %v, want ErrProjectNotFound", err)
	}
}

func TestGetProject_Busy(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"Project file is currently being updated. Please try again."}`))
	})

	c := testClient(t, handler)
	_, err := c.GetProject(context.Background(), "proj_abc")
	if !IsBusy(err) {
		t.Errorf("error = %v, want ErrServerBusy", err)
	}
}

func TestGetProject_APIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Invalid chunk index"}`))
	})

	c := testClient(t, handler)
	_, err := c.GetProject(context.Background(), "proj_abc")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Detail != "Invalid chunk index" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestRegenerateChunk(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Regeneration for chunk 2 has been queued."}`))
	})

	c := testClient(t, handler)
	if err := c.RegenerateChunk(context.Background(), "proj_abc", 2); err != nil {
		t.Fatalf("RegenerateChunk() error = %v", err)
	}
	if gotPath != "/project/proj_abc/chunk/2/regenerate" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestStitch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project/p1/stitch" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"final_audio_filename":"p1_final.wav"}`))
	})

	c := testClient(t, handler)
	filename, err := c.Stitch(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}
	if filename != "p1_final.wav" {
		t.Errorf("filename = %s, want p1_final.wav", filename)
	}
}

func TestActiveProjects(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/active-projects" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"p1","name":"Chapter One","status":"processing"}]`))
	})

	c := testClient(t, handler)
	list, err := c.ActiveProjects(context.Background())
	if err != nil {
		t.Fatalf("ActiveProjects() error = %v", err)
	}
	if len(list) != 1 || list[0].Name != "Chapter One" {
		t.Errorf("list = %+v", list)
	}
}

func TestDownloadAudio(t *testing.T) {
	payload := []byte("RIFF-fake-wav-bytes")
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/p1_final.wav" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write(payload)
	})

	c := testClient(t, handler)
	var buf bytes.Buffer
	n, err := c.DownloadAudio(context.Background(), "p1_final.wav", &buf)
	if err != nil {
		t.Fatalf("DownloadAudio() error = %v", err)
	}
	if n != int64(len(payload)) || !bytes.Equal(buf.Bytes(), payload) {
		t.Errorf("downloaded %d bytes, want %d", n, len(payload))
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	c := NewClient(Config{BaseURL: url}, logging.New("error", "text"))
	_, err := c.GetProject(context.Background(), "p1")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Errorf("error = %v, want *TransportError", err)
	}
}
