package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Provider selection: "local", "groq", "openai"
	Provider string `env:"WHISPER_PROVIDER" envDefault:"local"`

	// Cloud provider credentials and models. The URL overrides exist for
	// proxies and compatible self-hosted gateways; empty means official.
	GroqAPIKey     string `env:"WHISPER_GROQ_API_KEY"`
	GroqModel      string `env:"WHISPER_GROQ_MODEL" envDefault:"whisper-large-v3"`
	GroqEndpoint   string `env:"WHISPER_GROQ_URL"`
	OpenAIAPIKey   string `env:"WHISPER_OPENAI_API_KEY"`
	OpenAIModel    string `env:"WHISPER_OPENAI_MODEL" envDefault:"whisper-1"`
	OpenAIEndpoint string `env:"WHISPER_OPENAI_URL"`

	// Local decoder sidecar
	LocalURL  string `env:"WHISPER_LOCAL_URL" envDefault:"http://127.0.0.1:9000/v1/audio/transcriptions"`
	ModelName string `env:"WHISPER_MODEL_NAME" envDefault:"large-v3"`

	// Local decoding parameters
	BeamSize    int     `env:"WHISPER_BEAM_SIZE" envDefault:"5"`
	BestOf      int     `env:"WHISPER_BEST_OF" envDefault:"5"`
	Temperature float64 `env:"WHISPER_TEMPERATURE" envDefault:"0.0"`

	// Voice activity detection
	VadFilter       bool    `env:"WHISPER_VAD_FILTER" envDefault:"true"`
	VadThreshold    float64 `env:"WHISPER_VAD_THRESHOLD" envDefault:"0.5"`
	VadMinSpeechMs  int     `env:"WHISPER_VAD_MIN_SPEECH_DURATION_MS" envDefault:"250"`
	VadMinSilenceMs int     `env:"WHISPER_VAD_MIN_SILENCE_DURATION_MS" envDefault:"100"`
	VadSpeechPadMs  int     `env:"WHISPER_VAD_SPEECH_PAD_MS" envDefault:"30"`

	RequestTimeout time.Duration `env:"WHISPER_REQUEST_TIMEOUT" envDefault:"120s"`

	// Filler (aizuchi) filter
	FillerFilterEnabled bool `env:"WHISPER_AIZUCHI_FILTER_ENABLED" envDefault:"true"`
	FillerMaxLength     int  `env:"WHISPER_AIZUCHI_MAX_LENGTH" envDefault:"15"`

	// Hallucination filter
	HallucinationEnabled      bool `env:"WHISPER_HALLUCINATION_FILTER_ENABLED" envDefault:"true"`
	HallucinationMinRepeat    int  `env:"WHISPER_HALLUCINATION_MIN_REPETITION" envDefault:"3"`
	HallucinationMaxPhraseLen int  `env:"WHISPER_HALLUCINATION_MAX_PHRASE_LENGTH" envDefault:"20"`

	// Domain vocabulary
	Hotwords     string `env:"WHISPER_HOTWORDS"`
	HotwordsFile string `env:"WHISPER_HOTWORDS_FILE"`

	// HTTP server
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"180s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	// Upload limits
	MaxFileSizeMB      int    `env:"SERVER_MAX_FILE_SIZE_MB" envDefault:"25"`
	MaxAudioDurationS  int    `env:"SERVER_MAX_AUDIO_DURATION_SECONDS" envDefault:"300"`
	MinAudioDurationMs int    `env:"SERVER_MIN_AUDIO_DURATION_MS" envDefault:"500"`
	TempDir            string `env:"SERVER_TEMP_DIR" envDefault:"./temp"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	Provider string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Provider != "" {
		cfg.Provider = overrides.Provider
	}

	return cfg, nil
}
