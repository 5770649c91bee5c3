// Package transcribe orchestrates speech-to-text: provider selection,
// prompt construction from the hotwords registry, segment aggregation with
// confidence estimation, and post-processing through the text filters.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/hotwords"
	"github.com/snarg/scribed/internal/metrics"
	"github.com/snarg/scribed/internal/textfilter"
)

// ErrNotReady is returned when Transcribe is called before the configured
// provider is initialized. Distinct from provider failures so callers can
// decide whether to retry.
var ErrNotReady = errors.New("transcription provider not ready")

// japaneseContextPrompt primes the decoder with conversational context for
// the primary target language. Improves phoneme recognition on casual
// voice-chat audio.
const japaneseContextPrompt = "これは日本語の会話です。Discordのボイスチャンネルで話しています。"

// maxPromptTerms caps the vocabulary clause of the initial prompt.
const maxPromptTerms = 50

// Service is the transcription façade: one Transcribe call per audio clip,
// no internal parallelism. Safe for concurrent calls; shared state (stats,
// filter counters, hotwords) is internally synchronized.
type Service struct {
	cfg      Config
	provider Provider
	local    *LocalProvider // non-nil only for the local kind
	hotwords *hotwords.Registry
	filler   *textfilter.FillerFilter
	halluc   *textfilter.HallucinationFilter
	stats    *Stats
	log      zerolog.Logger
}

// Status is the service snapshot exposed to the HTTP layer.
type Status struct {
	Provider      string                        `json:"provider"`
	ProviderName  string                        `json:"provider_name"`
	ModelName     string                        `json:"model_name"`
	Ready         bool                          `json:"model_loaded"`
	Device        string                        `json:"device"`
	Stats         StatsSnapshot                 `json:"stats"`
	FillerFilter  textfilter.FillerStats        `json:"filler_filter"`
	Hallucination textfilter.HallucinationStats `json:"hallucination_filter"`
	Hotwords      hotwords.Stats                `json:"hotwords"`
}

// NewService builds the service and its provider from configuration.
// Fails fast on configuration errors: unknown provider kind or a missing
// cloud credential.
func NewService(cfg Config, reg *hotwords.Registry, log zerolog.Logger) (*Service, error) {
	provider, local, err := newProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		provider: provider,
		local:    local,
		hotwords: reg,
		filler:   textfilter.NewFillerFilter(cfg.FillerFilterEnabled, cfg.FillerMaxLength, log.With().Str("filter", "filler").Logger()),
		halluc:   textfilter.NewHallucinationFilter(cfg.HallucinationEnabled, cfg.HallucinationMinRepeat, cfg.HallucinationMaxPhraseLen, log.With().Str("filter", "hallucination").Logger()),
		stats:    &Stats{},
		log:      log,
	}

	log.Info().Str("provider", cfg.Provider).Msg("transcription service initialized")
	return s, nil
}

// Init prepares the provider: probes the local decoder sidecar, or runs
// the cloud client's lazy initialization. Call once at startup.
func (s *Service) Init(ctx context.Context) error {
	if s.local != nil {
		return s.local.Init(ctx)
	}
	if !s.provider.IsReady() {
		return fmt.Errorf("initialize %s provider: %w", s.cfg.Provider, ErrNotReady)
	}
	return nil
}

// Transcribe converts one audio file into cleaned transcript text.
// filterFillers controls per-segment filler removal on the local path;
// extraHotwords are request-scoped vocabulary terms appended after the
// registry's.
//
// Provider errors are recorded in statistics and returned unchanged: no
// retry, no fallback to another provider.
func (s *Service) Transcribe(ctx context.Context, audioPath, language string, filterFillers bool, extraHotwords []string) (*Result, error) {
	if s.local != nil {
		return s.transcribeLocal(ctx, audioPath, language, filterFillers, extraHotwords)
	}
	return s.transcribeCloud(ctx, audioPath, language)
}

func (s *Service) transcribeCloud(ctx context.Context, audioPath, language string) (*Result, error) {
	if s.provider == nil || !s.provider.IsReady() {
		return nil, fmt.Errorf("%s provider: %w", s.cfg.Provider, ErrNotReady)
	}

	start := time.Now()
	res, err := s.provider.Transcribe(ctx, audioPath, language)
	if err != nil {
		elapsed := time.Since(start).Seconds()
		s.stats.Record(elapsed, false, 0)
		metrics.TranscriptionsTotal.WithLabelValues(s.cfg.Provider, "error").Inc()
		s.log.Error().Err(err).Str("path", audioPath).Msg("cloud transcription failed")
		return nil, err
	}

	text := res.Text
	if out := s.halluc.Filter(text); out.Filtered {
		s.log.Debug().Str("reason", out.Reason).Msg("hallucination filtered")
		metrics.FilterHitsTotal.WithLabelValues("hallucination").Inc()
		text = out.Text
	}

	// Cloud APIs do not report audio duration.
	s.stats.Record(res.Elapsed, text != "", 0)
	metrics.TranscriptionsTotal.WithLabelValues(s.cfg.Provider, "ok").Inc()
	metrics.TranscriptionSeconds.WithLabelValues(s.cfg.Provider).Observe(res.Elapsed)

	return &Result{Text: text, Confidence: res.Confidence, Elapsed: res.Elapsed}, nil
}

func (s *Service) transcribeLocal(ctx context.Context, audioPath, language string, filterFillers bool, extraHotwords []string) (*Result, error) {
	if !s.local.IsReady() {
		return nil, fmt.Errorf("local provider: %w", ErrNotReady)
	}

	start := time.Now()
	prompt := s.buildPrompt(language, extraHotwords)

	segments, audioDuration, err := s.local.TranscribeSegments(ctx, audioPath, language, prompt)
	if err != nil {
		elapsed := time.Since(start).Seconds()
		s.stats.Record(elapsed, false, 0)
		metrics.TranscriptionsTotal.WithLabelValues(KindLocal, "error").Inc()
		s.log.Error().Err(err).Str("path", audioPath).Msg("local transcription failed")
		return nil, err
	}

	var parts []string
	var totalLogprob float64
	kept, dropped := 0, 0

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if filterFillers && s.filler.IsFiller(text) {
			dropped++
			continue
		}
		parts = append(parts, text)
		totalLogprob += seg.AvgLogprob
		kept++
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if dropped > 0 {
		s.log.Debug().Int("dropped", dropped).Msg("filler segments dropped")
		metrics.FilterHitsTotal.WithLabelValues("filler").Add(float64(dropped))
	}

	if out := s.halluc.Filter(text); out.Filtered {
		s.log.Debug().Str("reason", out.Reason).Msg("hallucination filtered")
		metrics.FilterHitsTotal.WithLabelValues("hallucination").Inc()
		text = out.Text
	}

	confidence := 0.0
	if kept > 0 {
		confidence = LogprobConfidence(totalLogprob / float64(kept))
	}

	elapsed := time.Since(start).Seconds()
	s.stats.Record(elapsed, text != "", audioDuration)
	metrics.TranscriptionsTotal.WithLabelValues(KindLocal, "ok").Inc()
	metrics.TranscriptionSeconds.WithLabelValues(KindLocal).Observe(elapsed)

	s.log.Debug().
		Int("chars", len(text)).
		Int("segments_kept", kept).
		Float64("confidence", confidence).
		Float64("elapsed_s", elapsed).
		Msg("transcription complete")

	return &Result{Text: text, Confidence: confidence, Elapsed: elapsed}, nil
}

// buildPrompt assembles the decoder's initial prompt. For Japanese it
// starts from the conversational context template and appends the merged
// vocabulary clause; for other languages the vocabulary alone is used.
func (s *Service) buildPrompt(language string, extraHotwords []string) string {
	vocab := s.hotwords.MergeWithRequestTerms(extraHotwords, maxPromptTerms)

	if language == "ja" {
		if vocab != "" {
			return japaneseContextPrompt + " 用語: " + vocab
		}
		return japaneseContextPrompt
	}
	return vocab
}

// LogprobConfidence maps an average segment log probability to a 0..1
// confidence. Log probabilities typically fall in [-3, 0]; values outside
// clamp to the boundary.
func LogprobConfidence(avgLogprob float64) float64 {
	c := 1.0 + avgLogprob/3.0
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// IsReady reports whether the configured provider can serve requests.
func (s *Service) IsReady() bool {
	if s.local != nil {
		return s.local.IsReady()
	}
	return s.provider != nil && s.provider.IsReady()
}

// ProviderKind returns the configured provider kind string.
func (s *Service) ProviderKind() string { return s.cfg.Provider }

// ProviderName returns the active provider's display name.
func (s *Service) ProviderName() string { return s.provider.Name() }

// ModelName returns the model identifier for the configured provider.
func (s *Service) ModelName() string {
	switch s.cfg.Provider {
	case KindGroq:
		return s.cfg.GroqModel
	case KindOpenAI:
		return s.cfg.OpenAIModel
	default:
		return s.cfg.ModelName
	}
}

// Device returns an opaque compute descriptor: "cloud" for remote
// providers, the sidecar descriptor for local.
func (s *Service) Device() string {
	if s.local != nil {
		return "sidecar"
	}
	return "cloud"
}

// Stats returns the shared statistics counters.
func (s *Service) Stats() *Stats { return s.stats }

// FillerFilter returns the per-segment filler classifier.
func (s *Service) FillerFilter() *textfilter.FillerFilter { return s.filler }

// HallucinationFilter returns the joined-text hallucination filter.
func (s *Service) HallucinationFilter() *textfilter.HallucinationFilter { return s.halluc }

// Hotwords returns the vocabulary registry.
func (s *Service) Hotwords() *hotwords.Registry { return s.hotwords }

// Status returns the full service snapshot for the status endpoint.
func (s *Service) Status() Status {
	return Status{
		Provider:      s.cfg.Provider,
		ProviderName:  s.ProviderName(),
		ModelName:     s.ModelName(),
		Ready:         s.IsReady(),
		Device:        s.Device(),
		Stats:         s.stats.Snapshot(),
		FillerFilter:  s.filler.Stats(),
		Hallucination: s.halluc.Stats(),
		Hotwords:      s.hotwords.Stats(),
	}
}
