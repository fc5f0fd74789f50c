package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/podsum/internal/domain"
)

const summarySystemPrompt = "You are an expert podcast summarizer."

const summaryUserPrompt = `Summarize this transcript, giving per-speaker highlights and an overall episode summary.

Return JSON with keys: overview (string), key_points (list of strings), per_speaker (list of {speaker, highlights[]}).`

// OpenAISummarizer generates structured summaries through an
// OpenAI-compatible chat completions endpoint. DeepSeek and other
// compatible providers are selected by base URL.
type OpenAISummarizer struct {
	client   *resty.Client
	model    string
	endpoint string
}

// OpenAISummarizerConfig holds configuration for the summarizer.
type OpenAISummarizerConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewOpenAISummarizer creates a summarizer client.
func NewOpenAISummarizer(cfg *OpenAISummarizerConfig) *OpenAISummarizer {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(2 * time.Minute)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAISummarizer{
		client:   client,
		model:    model,
		endpoint: baseURL + "/chat/completions",
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// summaryPayload mirrors the JSON contract requested from the model.
type summaryPayload struct {
	Overview   string   `json:"overview"`
	KeyPoints  []string `json:"key_points"`
	PerSpeaker []struct {
		Speaker    string   `json:"speaker"`
		Highlights []string `json:"highlights"`
	} `json:"per_speaker"`
}

// Summarize renders the turns into a prompt and parses the model's
// structured response. Fails with ErrEmptyTranscript on empty input.
func (s *OpenAISummarizer) Summarize(ctx context.Context, turns []domain.SpeakerTurn) (domain.Summary, error) {
	if len(turns) == 0 {
		return domain.Summary{}, ErrEmptyTranscript
	}

	req := chatRequest{
		Model:          s.model,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: summaryUserPrompt + "\n\n" + formatTurns(turns)},
		},
	}

	var out chatResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(s.endpoint)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarization request: %w", err)
	}
	if resp.IsError() {
		return domain.Summary{}, fmt.Errorf("summarization http %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Error != nil {
		return domain.Summary{}, fmt.Errorf("summarization api error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return domain.Summary{}, fmt.Errorf("summarization returned no choices")
	}

	return parseSummary(out.Choices[0].Message.Content)
}

// formatTurns renders turns as "[start-end] speaker: text" lines.
func formatTurns(turns []domain.SpeakerTurn) string {
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "[%.2f-%.2f] %s: %s\n", turn.Start, turn.End, turn.Speaker, turn.Text)
	}
	return b.String()
}

// parseSummary decodes the model's JSON content into a domain summary.
func parseSummary(content string) (domain.Summary, error) {
	var payload summaryPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.Summary{}, fmt.Errorf("parse summary response: %w", err)
	}

	summary := domain.Summary{
		Overview:  payload.Overview,
		KeyPoints: payload.KeyPoints,
	}
	if summary.Overview == "" {
		summary.Overview = "Summary unavailable."
	}
	if summary.KeyPoints == nil {
		summary.KeyPoints = []string{}
	}

	summary.PerSpeaker = make([]domain.SummarySection, 0, len(payload.PerSpeaker))
	for _, item := range payload.PerSpeaker {
		speaker := item.Speaker
		if speaker == "" {
			speaker = "Unknown"
		}
		highlights := item.Highlights
		if highlights == nil {
			highlights = []string{}
		}
		summary.PerSpeaker = append(summary.PerSpeaker, domain.SummarySection{
			Speaker:    speaker,
			Highlights: highlights,
		})
	}

	return summary, nil
}
