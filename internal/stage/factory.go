package stage

import (
	"fmt"
	"time"
)

// Adapters bundles the provider implementations selected at startup.
// Synthesizer is nil when the TTS provider is "none"; jobs requesting
// speech synthesis then fail at that stage.
type Adapters struct {
	Transcriber Transcriber
	Diarizer    Diarizer
	Summarizer  Summarizer
	Synthesizer SpeechSynthesizer
}

// Config selects one provider per capability. Providers are resolved
// once here, never re-dispatched per call.
type Config struct {
	Transcription TranscriptionConfig
	Diarization   DiarizationConfig
	Summarization SummarizationConfig
	TTS           TTSConfig
	StageTimeout  time.Duration
}

// TranscriptionConfig selects and configures the transcription provider.
type TranscriptionConfig struct {
	Provider string // openai | assemblyai
	APIKey   string
	Model    string
	BaseURL  string
}

// DiarizationConfig selects and configures the diarization provider.
type DiarizationConfig struct {
	Provider string // roundrobin | remote
	Endpoint string
	APIKey   string
}

// SummarizationConfig selects and configures the summarization provider.
type SummarizationConfig struct {
	Provider string // openai | deepseek
	APIKey   string
	Model    string
	BaseURL  string
}

// TTSConfig selects and configures the speech synthesis provider.
type TTSConfig struct {
	Provider string // elevenlabs | none
	APIKey   string
	Voice    string
	BaseURL  string
}

// NewAdapters builds the adapter set from configuration.
func NewAdapters(cfg *Config) (*Adapters, error) {
	adapters := &Adapters{}

	switch cfg.Transcription.Provider {
	case "", "openai":
		adapters.Transcriber = NewOpenAITranscriber(&OpenAITranscriberConfig{
			APIKey:  cfg.Transcription.APIKey,
			Model:   cfg.Transcription.Model,
			BaseURL: cfg.Transcription.BaseURL,
			Timeout: cfg.StageTimeout,
		})
	case "assemblyai":
		adapters.Transcriber = NewAssemblyAITranscriber(&AssemblyAIConfig{
			APIKey:  cfg.Transcription.APIKey,
			BaseURL: cfg.Transcription.BaseURL,
			Timeout: cfg.StageTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Transcription.Provider)
	}

	switch cfg.Diarization.Provider {
	case "", "roundrobin":
		adapters.Diarizer = NewRoundRobinDiarizer()
	case "remote":
		if cfg.Diarization.Endpoint == "" {
			return nil, fmt.Errorf("remote diarization requires an endpoint")
		}
		adapters.Diarizer = NewRemoteDiarizer(&RemoteDiarizerConfig{
			Endpoint: cfg.Diarization.Endpoint,
			APIKey:   cfg.Diarization.APIKey,
			Timeout:  cfg.StageTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown diarization provider %q", cfg.Diarization.Provider)
	}

	switch cfg.Summarization.Provider {
	case "", "openai":
		adapters.Summarizer = NewOpenAISummarizer(&OpenAISummarizerConfig{
			APIKey:  cfg.Summarization.APIKey,
			Model:   cfg.Summarization.Model,
			BaseURL: cfg.Summarization.BaseURL,
			Timeout: cfg.StageTimeout,
		})
	case "deepseek":
		baseURL := cfg.Summarization.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com/v1"
		}
		adapters.Summarizer = NewOpenAISummarizer(&OpenAISummarizerConfig{
			APIKey:  cfg.Summarization.APIKey,
			Model:   cfg.Summarization.Model,
			BaseURL: baseURL,
			Timeout: cfg.StageTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown summarization provider %q", cfg.Summarization.Provider)
	}

	switch cfg.TTS.Provider {
	case "", "none":
		adapters.Synthesizer = nil
	case "elevenlabs":
		adapters.Synthesizer = NewElevenLabsSynthesizer(&ElevenLabsConfig{
			APIKey:       cfg.TTS.APIKey,
			BaseURL:      cfg.TTS.BaseURL,
			DefaultVoice: cfg.TTS.Voice,
			Timeout:      cfg.StageTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.TTS.Provider)
	}

	return adapters, nil
}
