package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ElevenLabsSynthesizer renders text to mp3 through the ElevenLabs
// text-to-speech API.
type ElevenLabsSynthesizer struct {
	client       *resty.Client
	baseURL      string
	defaultVoice string
	modelID      string
}

// ElevenLabsConfig holds configuration for the synthesizer.
type ElevenLabsConfig struct {
	APIKey       string
	BaseURL      string
	DefaultVoice string
	ModelID      string
	Timeout      time.Duration
}

// NewElevenLabsSynthesizer creates an ElevenLabs TTS client.
func NewElevenLabsSynthesizer(cfg *ElevenLabsConfig) *ElevenLabsSynthesizer {
	client := resty.New()
	client.SetHeader("xi-api-key", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "audio/mpeg")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(2 * time.Minute)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io/v1"
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
	}

	return &ElevenLabsSynthesizer{
		client:       client,
		baseURL:      baseURL,
		defaultVoice: cfg.DefaultVoice,
		modelID:      modelID,
	}
}

// Synthesize returns mp3 bytes for the given text. An empty voice falls
// back to the configured default.
func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("speech synthesis requires non-empty text")
	}
	if voice == "" {
		voice = s.defaultVoice
	}
	if voice == "" {
		return nil, fmt.Errorf("no voice configured for speech synthesis")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"text":     text,
			"model_id": s.modelID,
		}).
		Post(fmt.Sprintf("%s/text-to-speech/%s", s.baseURL, voice))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("elevenlabs http %d: %s", resp.StatusCode(), resp.String())
	}

	audio := resp.Body()
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	return audio, nil
}
