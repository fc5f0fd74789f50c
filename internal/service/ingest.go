package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/timmy/podsum/internal/domain"
	"github.com/timmy/podsum/internal/jobs"
	"github.com/timmy/podsum/internal/logger"
	"github.com/timmy/podsum/internal/storage"
)

// ErrNoAudioSource is returned when processing is requested before any
// source audio has been registered for the job.
var ErrNoAudioSource = errors.New("audio source not available")

// IngestService creates jobs from uploaded bytes or remote URLs and
// spools the source audio for the pipeline to consume.
type IngestService struct {
	registry *jobs.Registry
	store    storage.ArtifactStore
	spool    *storage.LocalStore
	client   *resty.Client
	logger   *logger.Logger
}

// IngestConfig holds configuration for the ingest service.
type IngestConfig struct {
	DownloadTimeout time.Duration
}

// NewIngestService creates an ingest service. The spool is the local
// store holding source audio files the transcriber reads from disk;
// when the artifact store is itself local, pass the same instance.
func NewIngestService(
	registry *jobs.Registry,
	store storage.ArtifactStore,
	spool *storage.LocalStore,
	log *logger.Logger,
	cfg *IngestConfig,
) *IngestService {
	timeout := 2 * time.Minute
	if cfg != nil && cfg.DownloadTimeout > 0 {
		timeout = cfg.DownloadTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)

	return &IngestService{
		registry: registry,
		store:    store,
		spool:    spool,
		client:   client,
		logger:   log,
	}
}

// CreateFromUpload creates a job and stores the uploaded audio bytes.
func (s *IngestService) CreateFromUpload(ctx context.Context, filename string, data []byte) (domain.Job, error) {
	id := uuid.New().String()
	if _, err := s.registry.Create(id); err != nil {
		return domain.Job{}, err
	}

	if err := s.saveSource(ctx, id, sourceName(filename), data); err != nil {
		// The job stays visible with the storage failure on record.
		_ = s.registry.Fail(id, err.Error())
		return domain.Job{}, err
	}
	return s.registry.Snapshot(id)
}

// CreateFromURL creates a job and downloads the audio in the
// background. The job is returned immediately in uploaded stage; a
// failed download is recorded as a job error.
func (s *IngestService) CreateFromURL(ctx context.Context, audioURL string) (domain.Job, error) {
	if _, err := url.ParseRequestURI(audioURL); err != nil {
		return domain.Job{}, fmt.Errorf("invalid audio url: %w", err)
	}

	id := uuid.New().String()
	job, err := s.registry.Create(id)
	if err != nil {
		return domain.Job{}, err
	}

	dctx := logger.SetJobID(context.Background(), id)
	go s.download(dctx, id, audioURL)
	return job, nil
}

// download fetches the remote audio and registers it as source audio.
func (s *IngestService) download(ctx context.Context, jobID, audioURL string) {
	logger.CtxInfo(ctx, "downloading source audio from %s", audioURL)

	resp, err := s.client.R().SetContext(ctx).Get(audioURL)
	if err != nil {
		_ = s.registry.Fail(jobID, fmt.Sprintf("Download failed: %v", err))
		return
	}
	if resp.IsError() {
		_ = s.registry.Fail(jobID, fmt.Sprintf("Download failed: http %d", resp.StatusCode()))
		return
	}

	name := sourceName(path.Base(resp.Request.URL))
	if err := s.saveSource(ctx, jobID, name, resp.Body()); err != nil {
		_ = s.registry.Fail(jobID, fmt.Sprintf("Download failed: %v", err))
		return
	}
	logger.With(logger.Fields{logger.FieldSize: len(resp.Body())}).Info(ctx, "source audio stored")
}

// saveSource spools the bytes for local pipeline access, mirrors them
// to the artifact store, and records the source_audio asset.
func (s *IngestService) saveSource(ctx context.Context, jobID, name string, data []byte) error {
	if storage.ArtifactStore(s.spool) != s.store {
		if _, err := s.spool.Write(ctx, jobID, name, data); err != nil {
			return err
		}
	}
	ref, err := s.store.Write(ctx, jobID, name, data)
	if err != nil {
		return err
	}
	return s.registry.SetAsset(jobID, domain.AssetSourceAudio, ref)
}

// SourceAudioPath returns the local filesystem path of the job's
// source audio, or ErrNoAudioSource if none was registered yet.
func (s *IngestService) SourceAudioPath(jobID string) (string, error) {
	matches, err := filepath.Glob(s.spool.Path(jobID, "source.*"))
	if err != nil {
		return "", fmt.Errorf("locate source audio: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoAudioSource
	}
	return matches[0], nil
}

// sourceName normalizes an upload filename to "source.<ext>", keeping
// the original extension and defaulting to .mp3.
func sourceName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		ext = ".mp3"
	}
	return "source" + ext
}
