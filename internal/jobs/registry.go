package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/timmy/podsum/internal/domain"
)

// ErrJobNotFound is returned when a job id is not present in the registry.
var ErrJobNotFound = errors.New("job not found")

// ErrDuplicateJob is returned when creating a job whose id already exists.
var ErrDuplicateJob = errors.New("job already exists")

// ErrJobTerminal is returned when advancing a job that already reached a
// terminal stage.
var ErrJobTerminal = errors.New("job is in a terminal stage")

// Registry is the in-memory table of job state, keyed by job id. It is
// the single source of truth for stage, timestamps, errors, artifact
// references, transcript, and summary. All mutators and Snapshot are
// serialized with respect to each other, so readers never observe a mix
// of pre- and post-mutation fields.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*domain.Job),
	}
}

// Create inserts a new job in uploaded stage.
func (r *Registry) Create(id string) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; ok {
		return domain.Job{}, ErrDuplicateJob
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:        id,
		Stage:     domain.StageUploaded,
		CreatedAt: now,
		UpdatedAt: now,
		Errors:    []string{},
		Assets:    make(map[string]string),
	}
	r.jobs[id] = job
	return cloneJob(job), nil
}

// Get returns a copy of the job's current state.
func (r *Registry) Get(id string) (domain.Job, error) {
	return r.Snapshot(id)
}

// Snapshot returns a consistent point-in-time copy of the job for
// external consumption.
func (r *Registry) Snapshot(id string) (domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	return cloneJob(job), nil
}

// Advance atomically sets the stage and detail and refreshes updatedAt.
// A job that already failed or completed cannot be advanced.
func (r *Registry) Advance(id string, stage domain.Stage, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Stage.Terminal() {
		return ErrJobTerminal
	}

	job.Stage = stage
	job.Detail = detail
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail appends the message to the job's error log and moves it to the
// terminal failed stage. Errors are append-only and never cleared.
func (r *Registry) Fail(id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	job.Errors = append(job.Errors, message)
	job.Stage = domain.StageFailed
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// SetAsset records a retrievable reference for a named artifact.
func (r *Registry) SetAsset(id, name, ref string) error {
	return r.mutate(id, func(job *domain.Job) {
		job.Assets[name] = ref
	})
}

// SetTranscript stores the transcript, replacing any previous value.
func (r *Registry) SetTranscript(id string, t domain.Transcript) error {
	return r.mutate(id, func(job *domain.Job) {
		job.Transcript = cloneTranscript(&t)
	})
}

// SetSummary stores the structured summary.
func (r *Registry) SetSummary(id string, s domain.Summary) error {
	return r.mutate(id, func(job *domain.Job) {
		job.Summary = cloneSummary(&s)
	})
}

// SetSummaryAudio records the reference to synthesized summary audio.
func (r *Registry) SetSummaryAudio(id, ref string) error {
	return r.mutate(id, func(job *domain.Job) {
		job.SummaryAudioRef = ref
	})
}

// mutate applies fn under the write lock and refreshes updatedAt.
func (r *Registry) mutate(id string, fn func(*domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// cloneJob deep-copies a job so callers can never reach into registry
// state through shared slices or maps.
func cloneJob(job *domain.Job) domain.Job {
	out := *job

	out.Errors = append([]string(nil), job.Errors...)
	out.Assets = make(map[string]string, len(job.Assets))
	for k, v := range job.Assets {
		out.Assets[k] = v
	}
	out.Transcript = cloneTranscript(job.Transcript)
	out.Summary = cloneSummary(job.Summary)
	return out
}

func cloneTranscript(t *domain.Transcript) *domain.Transcript {
	if t == nil {
		return nil
	}
	out := *t
	out.Turns = append([]domain.SpeakerTurn(nil), t.Turns...)
	return &out
}

func cloneSummary(s *domain.Summary) *domain.Summary {
	if s == nil {
		return nil
	}
	out := *s
	out.KeyPoints = append([]string(nil), s.KeyPoints...)
	out.PerSpeaker = make([]domain.SummarySection, len(s.PerSpeaker))
	for i, sec := range s.PerSpeaker {
		out.PerSpeaker[i] = domain.SummarySection{
			Speaker:    sec.Speaker,
			Highlights: append([]string(nil), sec.Highlights...),
		}
	}
	return &out
}
