package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Provider is the interface for speech-to-text backends.
type Provider interface {
	// Transcribe converts an audio file into text with a confidence score
	// and the provider-side elapsed time in seconds.
	Transcribe(ctx context.Context, audioPath, language string) (*Result, error)
	// IsReady reports whether the backend is initialized and usable.
	IsReady() bool
	// Name returns a display name like "groq (whisper-large-v3)".
	Name() string
}

// Result is the common transcription result from any provider.
type Result struct {
	Text       string
	Confidence float64 // 0..1
	Elapsed    float64 // provider processing time in seconds
}

// Segment is one time-bounded fragment of recognized speech from the local
// decoder. Immutable once emitted; consumed exactly once by aggregation.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	AvgLogprob float64 `json:"avg_logprob"`
}

// Provider kinds accepted by the factory.
const (
	KindLocal  = "local"
	KindGroq   = "groq"
	KindOpenAI = "openai"
)

// VadParams tune the local decoder's voice activity detection.
type VadParams struct {
	Threshold            float64
	MinSpeechDurationMs  int
	MinSilenceDurationMs int
	SpeechPadMs          int
}

// Config is the transcription pipeline configuration consumed by the
// service and provider factory. Populated from the application config.
type Config struct {
	Provider string // "local", "groq", "openai"

	// Local decoder
	LocalURL    string
	ModelName   string
	BeamSize    int
	BestOf      int
	Temperature float64
	VadFilter   bool
	Vad         VadParams

	// Cloud providers. Empty endpoints select the official API URLs.
	GroqAPIKey     string
	GroqModel      string
	GroqEndpoint   string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIEndpoint string

	RequestTimeout time.Duration

	// Post-processing
	FillerFilterEnabled       bool
	FillerMaxLength           int
	HallucinationEnabled      bool
	HallucinationMinRepeat    int
	HallucinationMaxPhraseLen int

	// Vocabulary
	HotwordsFile string
	HotwordsList string // comma-separated env default
}

// newProvider builds the configured provider variant. The second return is
// non-nil only for the local kind, which exposes segment-level output the
// service aggregates itself. Unknown kinds and missing credentials are
// configuration errors, fatal at startup.
func newProvider(cfg Config, log zerolog.Logger) (Provider, *LocalProvider, error) {
	switch cfg.Provider {
	case KindLocal:
		lp := NewLocalProvider(LocalOptions{
			BaseURL:     cfg.LocalURL,
			Model:       cfg.ModelName,
			Timeout:     cfg.RequestTimeout,
			BeamSize:    cfg.BeamSize,
			BestOf:      cfg.BestOf,
			Temperature: cfg.Temperature,
			VadFilter:   cfg.VadFilter,
			Vad:         cfg.Vad,
			Log:         log.With().Str("provider", KindLocal).Logger(),
		})
		return lp, lp, nil
	case KindGroq:
		p, err := NewGroqProvider(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqEndpoint, cfg.RequestTimeout, log.With().Str("provider", KindGroq).Logger())
		return p, nil, err
	case KindOpenAI:
		p, err := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint, cfg.RequestTimeout, log.With().Str("provider", KindOpenAI).Logger())
		return p, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown provider kind: %q", cfg.Provider)
	}
}
