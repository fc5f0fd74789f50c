package stage

import (
	"context"
	"errors"

	"github.com/timmy/podsum/internal/domain"
)

// ErrEmptyTranscript is returned by summarizers when given no turns.
// The orchestrator treats it as a terminal condition, never retried.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Transcriber converts an audio file into a transcript with ordered,
// time-bounded turns. Implementations carry no state between calls and
// handle their own provider credentials and retry policy.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (domain.Transcript, error)
}

// Diarizer reassigns speaker labels across the given turns. The output
// must contain exactly one turn per input turn; implementations fail
// rather than drop or add turns.
type Diarizer interface {
	Diarize(ctx context.Context, turns []domain.SpeakerTurn, audioPath string) ([]domain.SpeakerTurn, error)
}

// Summarizer produces a structured summary from the final turns.
type Summarizer interface {
	Summarize(ctx context.Context, turns []domain.SpeakerTurn) (domain.Summary, error)
}

// SpeechSynthesizer renders text to audio bytes (mp3).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
