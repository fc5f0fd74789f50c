package domain

import "time"

// Stage represents the pipeline stage a job is currently in.
// Transitions are monotonic along the processing sequence, except
// StageFailed which is terminal and reachable from any non-terminal stage.
type Stage string

const (
	StageUploaded           Stage = "uploaded"
	StageTranscribing       Stage = "transcribing"
	StageDiarizing          Stage = "diarizing"
	StageSummarizing        Stage = "summarizing"
	StageSynthesizingSpeech Stage = "synthesizing_speech"
	StageCompleted          Stage = "completed"
	StageFailed             Stage = "failed"
)

// Terminal reports whether the stage permits no further transitions.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Well-known artifact names within a job's namespace.
const (
	AssetSourceAudio        = "source_audio"
	AssetTranscript         = "transcript"
	AssetDiarizedTranscript = "diarized_transcript"
	AssetSummary            = "summary"
	AssetSummaryAudio       = "summary_audio"
)

// SpeakerTurn is a single speaker-attributed, time-bounded span of
// transcribed text. Start and End are offsets in seconds.
type SpeakerTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Transcript holds the transcription result for a job. Turns are fully
// replaced (never merged) by diarization output.
type Transcript struct {
	Language string        `json:"language,omitempty"`
	Duration float64       `json:"duration,omitempty"`
	Turns    []SpeakerTurn `json:"turns"`
}

// SummarySection groups highlights attributed to one speaker.
type SummarySection struct {
	Speaker    string   `json:"speaker"`
	Highlights []string `json:"highlights"`
}

// Summary is the structured summarization result.
type Summary struct {
	Overview   string           `json:"overview"`
	KeyPoints  []string         `json:"key_points"`
	PerSpeaker []SummarySection `json:"per_speaker"`
}

// Job tracks one end-to-end processing request for a single audio source.
type Job struct {
	ID              string            `json:"job_id"`
	Stage           Stage             `json:"stage"`
	Detail          string            `json:"detail,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Errors          []string          `json:"errors"`
	Assets          map[string]string `json:"assets"`
	Transcript      *Transcript       `json:"transcript,omitempty"`
	Summary         *Summary          `json:"summary,omitempty"`
	SummaryAudioRef string            `json:"summary_audio_url,omitempty"`
}

// JobRecord is the persisted journal row written when a job reaches a
// terminal stage. The in-memory registry stays the source of truth for
// live status; records exist for post-mortem inspection only.
type JobRecord struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	Stage      string    `gorm:"type:text;not null;index" json:"stage"`
	Detail     string    `json:"detail,omitempty"`
	ErrorLog   string    `json:"error_log,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// TableName returns the database table name for JobRecord.
func (JobRecord) TableName() string {
	return "job_history"
}
