package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/podsum/internal/domain"
)

// RoundRobinDiarizer assigns pseudo speaker labels in alternating order.
// It is a placeholder for environments without a real diarization
// backend; turn timings and text pass through untouched.
type RoundRobinDiarizer struct {
	speakers []string
}

// NewRoundRobinDiarizer creates a placeholder diarizer cycling through
// the given labels. Defaults to two speakers when none are provided.
func NewRoundRobinDiarizer(speakers ...string) *RoundRobinDiarizer {
	if len(speakers) == 0 {
		speakers = []string{"Speaker 1", "Speaker 2"}
	}
	return &RoundRobinDiarizer{speakers: speakers}
}

// Diarize relabels each turn with the next speaker in the cycle.
func (d *RoundRobinDiarizer) Diarize(_ context.Context, turns []domain.SpeakerTurn, _ string) ([]domain.SpeakerTurn, error) {
	out := make([]domain.SpeakerTurn, len(turns))
	for i, turn := range turns {
		out[i] = domain.SpeakerTurn{
			Speaker: d.speakers[i%len(d.speakers)],
			Start:   turn.Start,
			End:     turn.End,
			Text:    turn.Text,
		}
	}
	return out, nil
}

// RemoteDiarizer posts the current turns and the audio reference to an
// external diarization service and returns the relabeled turns.
type RemoteDiarizer struct {
	client   *resty.Client
	endpoint string
}

// RemoteDiarizerConfig holds configuration for the remote diarizer.
type RemoteDiarizerConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// NewRemoteDiarizer creates a diarizer backed by an HTTP service.
func NewRemoteDiarizer(cfg *RemoteDiarizerConfig) *RemoteDiarizer {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(5 * time.Minute)
	}

	return &RemoteDiarizer{
		client:   client,
		endpoint: cfg.Endpoint,
	}
}

type diarizeRequest struct {
	AudioPath string               `json:"audio_path"`
	Turns     []domain.SpeakerTurn `json:"turns"`
}

type diarizeResponse struct {
	Turns []domain.SpeakerTurn `json:"turns"`
}

// Diarize sends the turns for relabeling. The turn count of the
// response must match the input; anything else is an adapter failure.
func (d *RemoteDiarizer) Diarize(ctx context.Context, turns []domain.SpeakerTurn, audioPath string) ([]domain.SpeakerTurn, error) {
	var out diarizeResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(diarizeRequest{AudioPath: audioPath, Turns: turns}).
		SetResult(&out).
		Post(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("diarization request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("diarization http %d: %s", resp.StatusCode(), resp.String())
	}

	if len(out.Turns) != len(turns) {
		return nil, fmt.Errorf("diarization returned %d turns for %d inputs", len(out.Turns), len(turns))
	}
	return out.Turns, nil
}
