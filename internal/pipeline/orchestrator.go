package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/timmy/podsum/internal/domain"
	"github.com/timmy/podsum/internal/jobs"
	"github.com/timmy/podsum/internal/logger"
	"github.com/timmy/podsum/internal/stage"
	"github.com/timmy/podsum/internal/storage"
)

// ErrJobAlreadyRunning is returned when launching a job whose pipeline
// run is still in flight.
var ErrJobAlreadyRunning = errors.New("job is already being processed")

// ErrJobAlreadyProcessed is returned when launching a job that has
// moved past the uploaded stage. Completed and failed jobs are not
// restarted; a new job must be created instead.
var ErrJobAlreadyProcessed = errors.New("job was already processed")

// HistoryRecorder persists terminal job records. Optional; a nil
// recorder disables the journal.
type HistoryRecorder interface {
	Record(ctx context.Context, record domain.JobRecord) error
}

// Orchestrator drives one job at a time through the stage sequence:
// transcribe, diarize, summarize, optionally synthesize speech. Each
// job runs as its own background unit of work; stages within a job
// never overlap, and at most one run exists per job id.
type Orchestrator struct {
	registry *jobs.Registry
	store    storage.ArtifactStore
	adapters *stage.Adapters
	history  HistoryRecorder
	log      *logger.Logger

	stageTimeout time.Duration

	mu      sync.Mutex
	running map[string]struct{}
}

// Options configures an Orchestrator.
type Options struct {
	StageTimeout time.Duration   // per-stage adapter call bound; 0 means 15 minutes
	History      HistoryRecorder // optional terminal-record journal
	Logger       *logger.Logger
}

// NewOrchestrator creates an orchestrator over an explicitly provided
// registry, artifact store, and adapter set.
func NewOrchestrator(registry *jobs.Registry, store storage.ArtifactStore, adapters *stage.Adapters, opts *Options) *Orchestrator {
	if opts == nil {
		opts = &Options{}
	}
	stageTimeout := opts.StageTimeout
	if stageTimeout <= 0 {
		stageTimeout = 15 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	return &Orchestrator{
		registry:     registry,
		store:        store,
		adapters:     adapters,
		history:      opts.History,
		log:          log,
		stageTimeout: stageTimeout,
		running:      make(map[string]struct{}),
	}
}

// Launch schedules the pipeline run for a job without blocking the
// caller. Only jobs still in the uploaded stage are accepted; a job
// with an in-flight run returns ErrJobAlreadyRunning and a job past
// uploaded returns ErrJobAlreadyProcessed.
func (o *Orchestrator) Launch(jobID, audioPath string, enableSpeech bool) error {
	o.mu.Lock()
	if _, ok := o.running[jobID]; ok {
		o.mu.Unlock()
		return ErrJobAlreadyRunning
	}

	snap, err := o.registry.Snapshot(jobID)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	if snap.Stage != domain.StageUploaded {
		o.mu.Unlock()
		return ErrJobAlreadyProcessed
	}

	o.running[jobID] = struct{}{}
	o.mu.Unlock()

	ctx := logger.SetJobID(context.Background(), jobID)
	go o.run(ctx, jobID, audioPath, enableSpeech)
	return nil
}

// IsRunning reports whether a pipeline run is in flight for the job.
func (o *Orchestrator) IsRunning(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.running[jobID]
	return ok
}

// run executes the stage sequence to completion or first failure.
// Panics are recovered and surfaced as job errors rather than lost
// with the goroutine.
func (o *Orchestrator) run(ctx context.Context, jobID, audioPath string, enableSpeech bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "pipeline run panicked: %v", r)
			_ = o.registry.Fail(jobID, fmt.Sprintf("pipeline panic: %v", r))
		}
		o.mu.Lock()
		delete(o.running, jobID)
		o.mu.Unlock()
		o.recordHistory(ctx, jobID)
	}()

	started := time.Now()
	logger.CtxInfo(ctx, "pipeline run started: audio=%s, tts=%t", audioPath, enableSpeech)

	transcript, ok := o.transcribe(ctx, jobID, audioPath)
	if !ok {
		return
	}
	transcript, ok = o.diarize(ctx, jobID, audioPath, transcript)
	if !ok {
		return
	}
	summary, ok := o.summarize(ctx, jobID, transcript)
	if !ok {
		return
	}
	if enableSpeech {
		if !o.synthesize(ctx, jobID, summary) {
			return
		}
	}

	if err := o.registry.Advance(jobID, domain.StageCompleted, "Processing complete"); err != nil {
		logger.CtxError(ctx, "failed to mark job completed: %v", err)
		return
	}
	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(started).Milliseconds(),
	}).Info(ctx, "pipeline run completed")
}

// transcribe runs the transcription stage and persists its artifact.
func (o *Orchestrator) transcribe(ctx context.Context, jobID, audioPath string) (domain.Transcript, bool) {
	if !o.advance(ctx, jobID, domain.StageTranscribing, "Running transcription") {
		return domain.Transcript{}, false
	}

	sctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	transcript, err := o.adapters.Transcriber.Transcribe(sctx, audioPath)
	cancel()
	if err != nil {
		return domain.Transcript{}, o.fail(ctx, jobID, fmt.Errorf("transcription: %w", err))
	}

	if err := o.registry.SetTranscript(jobID, transcript); err != nil {
		return domain.Transcript{}, o.fail(ctx, jobID, fmt.Errorf("store transcript: %w", err))
	}
	if !o.persistJSON(ctx, jobID, "transcript.json", domain.AssetTranscript, transcript) {
		return domain.Transcript{}, false
	}
	return transcript, true
}

// diarize replaces turn speaker labels, enforcing the turn-count
// invariant: a diarizer that drops or adds turns is an adapter failure.
func (o *Orchestrator) diarize(ctx context.Context, jobID, audioPath string, transcript domain.Transcript) (domain.Transcript, bool) {
	if !o.advance(ctx, jobID, domain.StageDiarizing, "Assigning speaker labels") {
		return domain.Transcript{}, false
	}

	sctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	turns, err := o.adapters.Diarizer.Diarize(sctx, transcript.Turns, audioPath)
	cancel()
	if err != nil {
		return domain.Transcript{}, o.fail(ctx, jobID, fmt.Errorf("diarization: %w", err))
	}
	if len(turns) != len(transcript.Turns) {
		return domain.Transcript{}, o.fail(ctx, jobID,
			fmt.Errorf("diarization: returned %d turns for %d inputs", len(turns), len(transcript.Turns)))
	}

	transcript.Turns = turns
	if err := o.registry.SetTranscript(jobID, transcript); err != nil {
		return domain.Transcript{}, o.fail(ctx, jobID, fmt.Errorf("store diarized transcript: %w", err))
	}
	if !o.persistJSON(ctx, jobID, "diarized.json", domain.AssetDiarizedTranscript, transcript) {
		return domain.Transcript{}, false
	}
	return transcript, true
}

// summarize runs the summarization stage. An empty transcript is a
// terminal failure, never retried.
func (o *Orchestrator) summarize(ctx context.Context, jobID string, transcript domain.Transcript) (domain.Summary, bool) {
	if !o.advance(ctx, jobID, domain.StageSummarizing, "Generating summary") {
		return domain.Summary{}, false
	}

	sctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	summary, err := o.adapters.Summarizer.Summarize(sctx, transcript.Turns)
	cancel()
	if err != nil {
		return domain.Summary{}, o.fail(ctx, jobID, fmt.Errorf("summarization: %w", err))
	}

	if err := o.registry.SetSummary(jobID, summary); err != nil {
		return domain.Summary{}, o.fail(ctx, jobID, fmt.Errorf("store summary: %w", err))
	}
	if !o.persistJSON(ctx, jobID, "summary.json", domain.AssetSummary, summary) {
		return domain.Summary{}, false
	}
	return summary, true
}

// synthesize renders the summary overview to audio.
func (o *Orchestrator) synthesize(ctx context.Context, jobID string, summary domain.Summary) bool {
	if !o.advance(ctx, jobID, domain.StageSynthesizingSpeech, "Synthesizing summary audio") {
		return false
	}
	if o.adapters.Synthesizer == nil {
		return o.fail(ctx, jobID, fmt.Errorf("speech synthesis: no provider configured"))
	}

	sctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	audio, err := o.adapters.Synthesizer.Synthesize(sctx, summary.Overview, "")
	cancel()
	if err != nil {
		return o.fail(ctx, jobID, fmt.Errorf("speech synthesis: %w", err))
	}

	ref, err := o.store.Write(ctx, jobID, "summary.mp3", audio)
	if err != nil {
		return o.fail(ctx, jobID, fmt.Errorf("persist summary audio: %w", err))
	}
	if err := o.registry.SetSummaryAudio(jobID, ref); err != nil {
		return o.fail(ctx, jobID, fmt.Errorf("store summary audio ref: %w", err))
	}
	if err := o.registry.SetAsset(jobID, domain.AssetSummaryAudio, ref); err != nil {
		return o.fail(ctx, jobID, fmt.Errorf("store summary audio asset: %w", err))
	}
	return true
}

// advance records stage entry before the adapter call, so a crash
// mid-stage leaves the registry showing the stage in progress. It
// returns false when the job can no longer advance, e.g. it was failed
// by a concurrent download error.
func (o *Orchestrator) advance(ctx context.Context, jobID string, s domain.Stage, detail string) bool {
	if err := o.registry.Advance(jobID, s, detail); err != nil {
		logger.CtxWarn(ctx, "cannot enter stage %s: %v", s, err)
		return false
	}
	logger.CtxInfo(ctx, "entering stage %s", s)
	return true
}

// persistJSON writes an artifact as indented JSON and records its
// reference under the job's assets.
func (o *Orchestrator) persistJSON(ctx context.Context, jobID, filename, assetName string, payload interface{}) bool {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return o.fail(ctx, jobID, fmt.Errorf("encode %s: %w", filename, err))
	}

	ref, err := o.store.Write(ctx, jobID, filename, data)
	if err != nil {
		return o.fail(ctx, jobID, fmt.Errorf("persist %s: %w", filename, err))
	}
	if err := o.registry.SetAsset(jobID, assetName, ref); err != nil {
		return o.fail(ctx, jobID, fmt.Errorf("store %s asset: %w", assetName, err))
	}
	return true
}

// fail records the error on the job and stops the sequence. Always
// returns false so stage helpers can return o.fail(...) directly.
func (o *Orchestrator) fail(ctx context.Context, jobID string, err error) bool {
	logger.CtxError(ctx, "pipeline stage failed: %v", err)
	if ferr := o.registry.Fail(jobID, err.Error()); ferr != nil {
		logger.CtxError(ctx, "failed to record job error: %v", ferr)
	}
	return false
}

// recordHistory journals terminal job state when a recorder is set.
func (o *Orchestrator) recordHistory(ctx context.Context, jobID string) {
	if o.history == nil {
		return
	}
	snap, err := o.registry.Snapshot(jobID)
	if err != nil || !snap.Stage.Terminal() {
		return
	}

	record := domain.JobRecord{
		ID:         snap.ID,
		Stage:      string(snap.Stage),
		Detail:     snap.Detail,
		ErrorLog:   strings.Join(snap.Errors, "\n"),
		CreatedAt:  snap.CreatedAt,
		FinishedAt: snap.UpdatedAt,
	}
	if err := o.history.Record(ctx, record); err != nil {
		logger.CtxWarn(ctx, "failed to journal job record: %v", err)
	}
}
