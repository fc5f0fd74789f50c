package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Diarization   DiarizationConfig   `mapstructure:"diarization"`
	Summarization SummarizationConfig `mapstructure:"summarization"`
	TTS           TTSConfig           `mapstructure:"tts"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Ingest        IngestConfig        `mapstructure:"ingest"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type StorageConfig struct {
	Type       string   `mapstructure:"type"` // local | s3
	Root       string   `mapstructure:"root"`
	PublicBase string   `mapstructure:"public_base"`
	S3         S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"` // sqlite | postgres
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

type TranscriptionConfig struct {
	Provider string `mapstructure:"provider"` // openai | assemblyai
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

type DiarizationConfig struct {
	Provider string `mapstructure:"provider"` // roundrobin | remote
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

type SummarizationConfig struct {
	Provider string `mapstructure:"provider"` // openai | deepseek
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

type TTSConfig struct {
	Provider string `mapstructure:"provider"` // elevenlabs | none
	APIKey   string `mapstructure:"api_key"`
	Voice    string `mapstructure:"voice"`
	BaseURL  string `mapstructure:"base_url"`
}

type PipelineConfig struct {
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
}

type IngestConfig struct {
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.root", "./data/media")
	v.SetDefault("storage.public_base", "/media")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("storage.s3.bucket", "podsum")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/jobs.db")
	v.SetDefault("transcription.provider", "openai")
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("diarization.provider", "roundrobin")
	v.SetDefault("summarization.provider", "openai")
	v.SetDefault("summarization.model", "gpt-4o-mini")
	v.SetDefault("tts.provider", "none")
	v.SetDefault("tts.voice", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("pipeline.stage_timeout", "15m")
	v.SetDefault("ingest.download_timeout", "2m")
	v.SetDefault("ingest.max_upload_mb", 200)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.s3.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("database.dsn", "DATABASE_DSN")
	v.BindEnv("transcription.api_key", "OPENAI_API_KEY")
	v.BindEnv("transcription.base_url", "OPENAI_BASE_URL")
	v.BindEnv("summarization.api_key", "OPENAI_API_KEY")
	v.BindEnv("summarization.base_url", "OPENAI_BASE_URL")
	v.BindEnv("diarization.endpoint", "DIARIZATION_ENDPOINT")
	v.BindEnv("diarization.api_key", "DIARIZATION_API_KEY")
	v.BindEnv("tts.api_key", "ELEVENLABS_API_KEY")
	v.BindEnv("tts.voice", "ELEVENLABS_VOICE_ID")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Provider-specific keys take precedence when those providers are
	// selected.
	if cfg.Transcription.Provider == "assemblyai" {
		if key := v.GetString("ASSEMBLYAI_API_KEY"); key != "" {
			cfg.Transcription.APIKey = key
		}
	}
	if cfg.Summarization.Provider == "deepseek" {
		if key := v.GetString("DEEPSEEK_API_KEY"); key != "" {
			cfg.Summarization.APIKey = key
		}
	}

	return &cfg, nil
}
