package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/podsum/internal/domain"
	"github.com/timmy/podsum/internal/jobs"
	"github.com/timmy/podsum/internal/stage"
	"github.com/timmy/podsum/internal/storage"
)

// ErrSpeechDisabled is returned when speech synthesis is requested but
// no synthesizer is configured.
var ErrSpeechDisabled = errors.New("speech synthesis is not configured")

// SpeechService generates spoken audio for a job's summary text on
// demand, outside the processing pipeline.
type SpeechService struct {
	registry    *jobs.Registry
	store       storage.ArtifactStore
	synthesizer stage.SpeechSynthesizer
}

// NewSpeechService creates a speech service. The synthesizer may be
// nil, in which case every request fails with ErrSpeechDisabled.
func NewSpeechService(registry *jobs.Registry, store storage.ArtifactStore, synth stage.SpeechSynthesizer) *SpeechService {
	return &SpeechService{
		registry:    registry,
		store:       store,
		synthesizer: synth,
	}
}

// Synthesize generates audio for the given text, stores it as the
// job's summary audio, and returns the artifact reference.
func (s *SpeechService) Synthesize(ctx context.Context, jobID, text, voice string) (string, error) {
	if s.synthesizer == nil {
		return "", ErrSpeechDisabled
	}
	if _, err := s.registry.Get(jobID); err != nil {
		return "", err
	}

	audio, err := s.synthesizer.Synthesize(ctx, text, voice)
	if err != nil {
		return "", fmt.Errorf("speech synthesis: %w", err)
	}

	ref, err := s.store.Write(ctx, jobID, "summary.mp3", audio)
	if err != nil {
		return "", fmt.Errorf("store summary audio: %w", err)
	}
	if err := s.registry.SetSummaryAudio(jobID, ref); err != nil {
		return "", err
	}
	if err := s.registry.SetAsset(jobID, domain.AssetSummaryAudio, ref); err != nil {
		return "", err
	}
	return ref, nil
}
