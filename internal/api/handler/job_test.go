package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/timmy/podsum/internal/jobs"
	"github.com/timmy/podsum/internal/logger"
	"github.com/timmy/podsum/internal/pipeline"
	"github.com/timmy/podsum/internal/service"
	"github.com/timmy/podsum/internal/stage"
	"github.com/timmy/podsum/internal/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *jobs.Registry, *storage.LocalStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewLocalStore(&storage.LocalConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	registry := jobs.NewRegistry()
	ingest := service.NewIngestService(registry, store, store, logger.GetDefault(), nil)
	speech := service.NewSpeechService(registry, store, nil)
	orchestrator := pipeline.NewOrchestrator(registry, store, &stage.Adapters{}, nil)
	jobHandler := NewJobHandler(ingest, speech, orchestrator, registry, 0)
	mediaHandler := NewMediaHandler(store)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/jobs", jobHandler.CreateJob)
	v1.POST("/jobs/:id/process", jobHandler.StartProcessing)
	v1.GET("/jobs/:id/results", jobHandler.GetResults)
	v1.POST("/jobs/:id/speech", jobHandler.SynthesizeSpeech)
	r.GET("/media/:job_id/:name", mediaHandler.Serve)

	return r, registry, store
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateJobUpload(t *testing.T) {
	r, registry, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "episode.mp3", []byte{0xff, 0xfb}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobID  string `json:"job_id"`
		Status struct {
			Stage string `json:"stage"`
		} `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("job_id missing from response")
	}
	if resp.Status.Stage != "uploaded" {
		t.Errorf("stage = %q, want uploaded", resp.Status.Stage)
	}
	if _, err := registry.Get(resp.JobID); err != nil {
		t.Errorf("job not registered: %v", err)
	}
}

func TestCreateJobWithoutSource(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStartProcessingUnknownJob(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/ghost/process", strings.NewReader(`{"enable_speech_synthesis":false}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStartProcessingWithoutAudio(t *testing.T) {
	r, registry, _ := newTestRouter(t)
	if _, err := registry.Create("job-1"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/job-1/process", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetResults(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "talk.wav", []byte("RIFF")))
	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.JobID+"/results", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var results struct {
		JobID    string `json:"job_id"`
		AudioURL string `json:"audio_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if results.AudioURL != "/media/"+created.JobID+"/source.wav" {
		t.Errorf("audio_url = %q", results.AudioURL)
	}
}

func TestGetResultsUnknownJob(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/ghost/results", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSynthesizeSpeechDisabled(t *testing.T) {
	r, registry, _ := newTestRouter(t)
	if _, err := registry.Create("job-1"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/job-1/speech", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServeMedia(t *testing.T) {
	r, _, store := newTestRouter(t)

	if _, err := store.Write(context.Background(), "job-1", "summary.json", []byte(`{"overview":"x"}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/job-1/summary.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/job-1/missing.mp3", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
