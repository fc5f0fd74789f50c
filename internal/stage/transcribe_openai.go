package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/podsum/internal/domain"
)

// OpenAITranscriber calls the OpenAI audio transcription API with
// verbose_json output so segment timings are preserved.
type OpenAITranscriber struct {
	client   *resty.Client
	model    string
	endpoint string
}

// OpenAITranscriberConfig holds configuration for the OpenAI transcriber.
type OpenAITranscriberConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewOpenAITranscriber creates a transcriber backed by the OpenAI
// (or OpenAI-compatible) transcription endpoint.
func NewOpenAITranscriber(cfg *OpenAITranscriberConfig) *OpenAITranscriber {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(10 * time.Minute)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAITranscriber{
		client:   client,
		model:    model,
		endpoint: baseURL + "/audio/transcriptions",
	}
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperResponse struct {
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
}

// Transcribe uploads the audio file and returns the parsed transcript.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) (domain.Transcript, error) {
	var out whisperResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(map[string]string{
			"model":           t.model,
			"response_format": "verbose_json",
		}).
		SetResult(&out).
		Post(t.endpoint)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("openai transcription request: %w", err)
	}
	if resp.IsError() {
		return domain.Transcript{}, fmt.Errorf("openai transcription http %d: %s", resp.StatusCode(), resp.String())
	}

	transcript, err := transcriptFromWhisper(&out, filepath.Base(audioPath))
	if err != nil {
		return domain.Transcript{}, err
	}
	return transcript, nil
}

// transcriptFromWhisper maps a verbose_json payload onto the domain
// transcript, with an "unknown" speaker placeholder per turn for the
// diarization stage to relabel.
func transcriptFromWhisper(resp *whisperResponse, source string) (domain.Transcript, error) {
	if len(resp.Segments) == 0 && strings.TrimSpace(resp.Text) == "" {
		return domain.Transcript{}, fmt.Errorf("openai transcription returned no segments for %s", source)
	}

	language := resp.Language
	if language == "" {
		language = "en"
	}

	turns := make([]domain.SpeakerTurn, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		turns = append(turns, domain.SpeakerTurn{
			Speaker: "unknown",
			Start:   seg.Start,
			End:     seg.End,
			Text:    strings.TrimSpace(seg.Text),
		})
	}
	// Some compatible servers omit segments and return plain text only.
	if len(turns) == 0 {
		turns = append(turns, domain.SpeakerTurn{
			Speaker: "unknown",
			Start:   0,
			End:     resp.Duration,
			Text:    strings.TrimSpace(resp.Text),
		})
	}

	return domain.Transcript{
		Language: language,
		Duration: resp.Duration,
		Turns:    turns,
	}, nil
}
