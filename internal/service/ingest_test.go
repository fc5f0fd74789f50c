package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/timmy/podsum/internal/domain"
	"github.com/timmy/podsum/internal/jobs"
	"github.com/timmy/podsum/internal/logger"
	"github.com/timmy/podsum/internal/storage"
)

func newTestIngest(t *testing.T) (*IngestService, *jobs.Registry, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(&storage.LocalConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	registry := jobs.NewRegistry()
	svc := NewIngestService(registry, store, store, logger.GetDefault(), &IngestConfig{
		DownloadTimeout: 5 * time.Second,
	})
	return svc, registry, store
}

func waitForJob(t *testing.T, registry *jobs.Registry, id string, done func(domain.Job) bool) domain.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := registry.Snapshot(id)
		if err != nil {
			t.Fatalf("Snapshot(%q) error = %v", id, err)
		}
		if done(job) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %q did not reach expected state", id)
	return domain.Job{}
}

func TestCreateFromUpload(t *testing.T) {
	svc, _, store := newTestIngest(t)

	job, err := svc.CreateFromUpload(context.Background(), "episode.mp3", []byte{0xff, 0xfb, 0x01})
	if err != nil {
		t.Fatalf("CreateFromUpload() error = %v", err)
	}
	if job.Stage != domain.StageUploaded {
		t.Errorf("stage = %q, want %q", job.Stage, domain.StageUploaded)
	}
	ref, ok := job.Assets[domain.AssetSourceAudio]
	if !ok {
		t.Fatalf("source audio asset missing from %v", job.Assets)
	}
	if want := "/media/" + job.ID + "/source.mp3"; ref != want {
		t.Errorf("ref = %q, want %q", ref, want)
	}
	if _, err := os.Stat(store.Path(job.ID, "source.mp3")); err != nil {
		t.Errorf("spooled audio missing: %v", err)
	}

	path, err := svc.SourceAudioPath(job.ID)
	if err != nil {
		t.Fatalf("SourceAudioPath() error = %v", err)
	}
	if path != store.Path(job.ID, "source.mp3") {
		t.Errorf("path = %q, want %q", path, store.Path(job.ID, "source.mp3"))
	}
}

func TestSourceAudioPathMissing(t *testing.T) {
	svc, registry, _ := newTestIngest(t)

	if _, err := registry.Create("bare-job"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.SourceAudioPath("bare-job"); !errors.Is(err, ErrNoAudioSource) {
		t.Errorf("SourceAudioPath() error = %v, want ErrNoAudioSource", err)
	}
}

func TestCreateFromURL(t *testing.T) {
	svc, registry, store := newTestIngest(t)

	payload := []byte("RIFFfakewav")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	job, err := svc.CreateFromURL(context.Background(), srv.URL+"/feeds/episode.wav")
	if err != nil {
		t.Fatalf("CreateFromURL() error = %v", err)
	}
	if job.Stage != domain.StageUploaded {
		t.Errorf("stage = %q, want %q", job.Stage, domain.StageUploaded)
	}

	final := waitForJob(t, registry, job.ID, func(j domain.Job) bool {
		_, ok := j.Assets[domain.AssetSourceAudio]
		return ok || j.Stage == domain.StageFailed
	})
	if final.Stage == domain.StageFailed {
		t.Fatalf("download failed: %v", final.Errors)
	}

	data, err := store.Read(context.Background(), job.ID, "source.wav")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("stored payload = %q, want %q", data, payload)
	}
}

func TestCreateFromURLDownloadFailure(t *testing.T) {
	svc, registry, _ := newTestIngest(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	job, err := svc.CreateFromURL(context.Background(), srv.URL+"/missing.mp3")
	if err != nil {
		t.Fatalf("CreateFromURL() error = %v", err)
	}

	final := waitForJob(t, registry, job.ID, func(j domain.Job) bool {
		return j.Stage == domain.StageFailed
	})
	if len(final.Errors) == 0 {
		t.Fatal("expected a recorded download error")
	}
}

func TestCreateFromURLRejectsInvalid(t *testing.T) {
	svc, _, _ := newTestIngest(t)

	if _, err := svc.CreateFromURL(context.Background(), "not a url"); err == nil {
		t.Error("CreateFromURL() accepted an invalid URL")
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"episode.mp3", "source.mp3"},
		{"Episode.WAV", "source.wav"},
		{"noext", "source.mp3"},
		{"", "source.mp3"},
		{"weird.reallylongext", "source.mp3"},
	}
	for _, tt := range tests {
		if got := sourceName(tt.filename); got != tt.want {
			t.Errorf("sourceName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
