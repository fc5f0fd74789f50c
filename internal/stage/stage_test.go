package stage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/timmy/podsum/internal/domain"
)

func TestRoundRobinDiarizerRelabelsTurns(t *testing.T) {
	turns := []domain.SpeakerTurn{
		{Speaker: "unknown", Start: 0.0, End: 1.0, Text: "hi"},
		{Speaker: "unknown", Start: 1.0, End: 2.0, Text: "there"},
		{Speaker: "unknown", Start: 2.0, End: 3.0, Text: "bye"},
	}

	d := NewRoundRobinDiarizer()
	out, err := d.Diarize(context.Background(), turns, "source.mp3")
	if err != nil {
		t.Fatalf("Diarize failed: %v", err)
	}

	if len(out) != len(turns) {
		t.Fatalf("turn count = %d, want %d", len(out), len(turns))
	}

	wantSpeakers := []string{"Speaker 1", "Speaker 2", "Speaker 1"}
	for i, turn := range out {
		if turn.Speaker != wantSpeakers[i] {
			t.Errorf("turn %d speaker = %q, want %q", i, turn.Speaker, wantSpeakers[i])
		}
		if turn.Text != turns[i].Text || turn.Start != turns[i].Start || turn.End != turns[i].End {
			t.Errorf("turn %d timing/text changed: got %+v, want %+v", i, turn, turns[i])
		}
	}
}

func TestRoundRobinDiarizerEmptyInput(t *testing.T) {
	d := NewRoundRobinDiarizer()
	out, err := d.Diarize(context.Background(), nil, "source.mp3")
	if err != nil {
		t.Fatalf("Diarize failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("turn count = %d, want 0", len(out))
	}
}

func TestTranscriptFromWhisper(t *testing.T) {
	raw := `{
		"language": "en",
		"duration": 3.0,
		"text": "hi there bye",
		"segments": [
			{"start": 0.0, "end": 1.0, "text": " hi "},
			{"start": 1.0, "end": 2.0, "text": "there"},
			{"start": 2.0, "end": 3.0, "text": "bye"}
		]
	}`
	var resp whisperResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	transcript, err := transcriptFromWhisper(&resp, "source.mp3")
	if err != nil {
		t.Fatalf("transcriptFromWhisper failed: %v", err)
	}
	if transcript.Language != "en" {
		t.Errorf("language = %q, want en", transcript.Language)
	}
	if len(transcript.Turns) != 3 {
		t.Fatalf("turn count = %d, want 3", len(transcript.Turns))
	}
	if transcript.Turns[0].Text != "hi" {
		t.Errorf("segment text not trimmed: %q", transcript.Turns[0].Text)
	}
	if transcript.Turns[0].Speaker != "unknown" {
		t.Errorf("speaker = %q, want unknown placeholder", transcript.Turns[0].Speaker)
	}
}

func TestTranscriptFromWhisperTextOnly(t *testing.T) {
	resp := whisperResponse{Language: "de", Duration: 5, Text: "hallo welt"}

	transcript, err := transcriptFromWhisper(&resp, "source.mp3")
	if err != nil {
		t.Fatalf("transcriptFromWhisper failed: %v", err)
	}
	if len(transcript.Turns) != 1 {
		t.Fatalf("turn count = %d, want 1", len(transcript.Turns))
	}
	if transcript.Turns[0].Text != "hallo welt" || transcript.Turns[0].End != 5 {
		t.Errorf("fallback turn = %+v", transcript.Turns[0])
	}
}

func TestTranscriptFromWhisperEmpty(t *testing.T) {
	resp := whisperResponse{Language: "en"}
	if _, err := transcriptFromWhisper(&resp, "source.mp3"); err == nil {
		t.Error("expected error for empty transcription response")
	}
}

func TestFormatTurns(t *testing.T) {
	turns := []domain.SpeakerTurn{
		{Speaker: "A", Start: 0, End: 1.5, Text: "hello"},
		{Speaker: "B", Start: 1.5, End: 2, Text: "world"},
	}

	got := formatTurns(turns)
	if !strings.Contains(got, "[0.00-1.50] A: hello") {
		t.Errorf("formatted turns missing first line:\n%s", got)
	}
	if !strings.Contains(got, "[1.50-2.00] B: world") {
		t.Errorf("formatted turns missing second line:\n%s", got)
	}
}

func TestParseSummary(t *testing.T) {
	content := `{
		"overview": "test",
		"key_points": ["k1"],
		"per_speaker": [{"speaker": "Speaker 1", "highlights": ["hi", "bye"]}]
	}`

	summary, err := parseSummary(content)
	if err != nil {
		t.Fatalf("parseSummary failed: %v", err)
	}
	if summary.Overview != "test" {
		t.Errorf("overview = %q, want test", summary.Overview)
	}
	if len(summary.KeyPoints) != 1 || summary.KeyPoints[0] != "k1" {
		t.Errorf("key points = %v", summary.KeyPoints)
	}
	if len(summary.PerSpeaker) != 1 || summary.PerSpeaker[0].Speaker != "Speaker 1" {
		t.Fatalf("per speaker = %+v", summary.PerSpeaker)
	}
	if len(summary.PerSpeaker[0].Highlights) != 2 {
		t.Errorf("highlights = %v", summary.PerSpeaker[0].Highlights)
	}
}

func TestParseSummaryDefaults(t *testing.T) {
	summary, err := parseSummary(`{"per_speaker": [{}]}`)
	if err != nil {
		t.Fatalf("parseSummary failed: %v", err)
	}
	if summary.Overview != "Summary unavailable." {
		t.Errorf("overview default = %q", summary.Overview)
	}
	if summary.KeyPoints == nil {
		t.Error("key points should default to empty slice")
	}
	if summary.PerSpeaker[0].Speaker != "Unknown" {
		t.Errorf("speaker default = %q", summary.PerSpeaker[0].Speaker)
	}
}

func TestParseSummaryInvalidJSON(t *testing.T) {
	if _, err := parseSummary("not json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	s := NewOpenAISummarizer(&OpenAISummarizerConfig{APIKey: "test"})
	if _, err := s.Summarize(context.Background(), nil); !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("Summarize(nil) = %v, want ErrEmptyTranscript", err)
	}
}

func TestNewAdaptersProviderSelection(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "defaults",
			cfg:  Config{},
		},
		{
			name: "assemblyai and remote diarizer",
			cfg: Config{
				Transcription: TranscriptionConfig{Provider: "assemblyai", APIKey: "k"},
				Diarization:   DiarizationConfig{Provider: "remote", Endpoint: "http://localhost:9000/diarize"},
				Summarization: SummarizationConfig{Provider: "deepseek", APIKey: "k"},
				TTS:           TTSConfig{Provider: "elevenlabs", APIKey: "k", Voice: "v"},
			},
		},
		{
			name: "remote diarizer without endpoint",
			cfg: Config{
				Diarization: DiarizationConfig{Provider: "remote"},
			},
			wantErr: true,
		},
		{
			name: "unknown transcription provider",
			cfg: Config{
				Transcription: TranscriptionConfig{Provider: "whisperx"},
			},
			wantErr: true,
		},
		{
			name: "unknown tts provider",
			cfg: Config{
				TTS: TTSConfig{Provider: "azure"},
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapters, err := NewAdapters(&tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewAdapters failed: %v", err)
			}
			if adapters.Transcriber == nil || adapters.Diarizer == nil || adapters.Summarizer == nil {
				t.Error("required adapters not constructed")
			}
		})
	}
}

func TestNewAdaptersTTSNone(t *testing.T) {
	adapters, err := NewAdapters(&Config{TTS: TTSConfig{Provider: "none"}})
	if err != nil {
		t.Fatalf("NewAdapters failed: %v", err)
	}
	if adapters.Synthesizer != nil {
		t.Error("synthesizer should be nil for provider none")
	}
}
