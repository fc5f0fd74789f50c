package stage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/podsum/internal/domain"
)

// AssemblyAITranscriber uploads audio to AssemblyAI and polls the
// transcript resource until it is completed or errored.
type AssemblyAITranscriber struct {
	client       *resty.Client
	baseURL      string
	pollInterval time.Duration
}

// AssemblyAIConfig holds configuration for the AssemblyAI transcriber.
type AssemblyAIConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
}

// NewAssemblyAITranscriber creates an AssemblyAI-backed transcriber.
func NewAssemblyAITranscriber(cfg *AssemblyAIConfig) *AssemblyAITranscriber {
	client := resty.New()
	client.SetHeader("Authorization", cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(2 * time.Minute)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.assemblyai.com/v2"
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	return &AssemblyAITranscriber{
		client:       client,
		baseURL:      baseURL,
		pollInterval: pollInterval,
	}
}

type assemblyUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type assemblyUtterance struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"` // milliseconds
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

type assemblyTranscriptResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	LanguageCode  string              `json:"language_code"`
	AudioDuration float64             `json:"audio_duration"`
	Error         string              `json:"error"`
	Utterances    []assemblyUtterance `json:"utterances"`
}

// Transcribe runs the upload / submit / poll sequence.
func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, audioPath string) (domain.Transcript, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("read audio file: %w", err)
	}

	var uploaded assemblyUploadResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		SetResult(&uploaded).
		Post(t.baseURL + "/upload")
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("assemblyai upload: %w", err)
	}
	if resp.IsError() {
		return domain.Transcript{}, fmt.Errorf("assemblyai upload http %d: %s", resp.StatusCode(), resp.String())
	}

	var submitted assemblyTranscriptResponse
	resp, err = t.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"audio_url":      uploaded.UploadURL,
			"speaker_labels": true,
		}).
		SetResult(&submitted).
		Post(t.baseURL + "/transcript")
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("assemblyai submit: %w", err)
	}
	if resp.IsError() {
		return domain.Transcript{}, fmt.Errorf("assemblyai submit http %d: %s", resp.StatusCode(), resp.String())
	}

	for {
		select {
		case <-ctx.Done():
			return domain.Transcript{}, ctx.Err()
		case <-time.After(t.pollInterval):
		}

		var status assemblyTranscriptResponse
		resp, err = t.client.R().
			SetContext(ctx).
			SetResult(&status).
			Get(t.baseURL + "/transcript/" + submitted.ID)
		if err != nil {
			return domain.Transcript{}, fmt.Errorf("assemblyai poll: %w", err)
		}
		if resp.IsError() {
			return domain.Transcript{}, fmt.Errorf("assemblyai poll http %d: %s", resp.StatusCode(), resp.String())
		}

		switch status.Status {
		case "completed":
			return transcriptFromAssembly(&status), nil
		case "error":
			return domain.Transcript{}, fmt.Errorf("assemblyai transcription failed: %s", status.Error)
		}
	}
}

func transcriptFromAssembly(resp *assemblyTranscriptResponse) domain.Transcript {
	language := resp.LanguageCode
	if language == "" {
		language = "en"
	}

	turns := make([]domain.SpeakerTurn, 0, len(resp.Utterances))
	for _, u := range resp.Utterances {
		speaker := u.Speaker
		if speaker == "" {
			speaker = "unknown"
		}
		turns = append(turns, domain.SpeakerTurn{
			Speaker: speaker,
			Start:   u.Start / 1000,
			End:     u.End / 1000,
			Text:    u.Text,
		})
	}

	return domain.Transcript{
		Language: language,
		Duration: resp.AudioDuration,
		Turns:    turns,
	}
}
