package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LocalProvider calls a faster-whisper inference sidecar over an
// OpenAI-compatible /v1/audio/transcriptions endpoint. Unlike the cloud
// providers it returns segment-level output with per-segment average log
// probabilities, which the service aggregates into text and confidence.
//
// The sidecar serializes model access itself; this client is safe for
// concurrent use.
type LocalProvider struct {
	url         string
	model       string
	beamSize    int
	bestOf      int
	temperature float64
	vadFilter   bool
	vad         VadParams
	client      *http.Client
	log         zerolog.Logger

	mu       sync.Mutex
	ready    bool
	loadTime float64
}

// LocalOptions configures the local decoder client.
type LocalOptions struct {
	BaseURL     string // full transcription endpoint URL
	Model       string
	Timeout     time.Duration
	BeamSize    int
	BestOf      int
	Temperature float64
	VadFilter   bool
	Vad         VadParams
	Log         zerolog.Logger
}

// localResponse is the verbose_json response from the sidecar.
type localResponse struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// NewLocalProvider creates a local decoder client.
func NewLocalProvider(opts LocalOptions) *LocalProvider {
	return &LocalProvider{
		url:         opts.BaseURL,
		model:       opts.Model,
		beamSize:    opts.BeamSize,
		bestOf:      opts.BestOf,
		temperature: opts.Temperature,
		vadFilter:   opts.VadFilter,
		vad:         opts.Vad,
		client:      &http.Client{Timeout: opts.Timeout},
		log:         opts.Log,
	}
}

// Init probes the sidecar once and caches readiness. Safe to call again;
// subsequent calls after a successful probe are no-ops.
func (lp *LocalProvider) Init(ctx context.Context) error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.ready {
		return nil
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lp.healthURL(), nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	resp, err := lp.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe local decoder: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("local decoder unhealthy (status %d)", resp.StatusCode)
	}

	lp.ready = true
	lp.loadTime = time.Since(start).Seconds()
	lp.log.Info().Str("url", lp.url).Str("model", lp.model).Float64("probe_seconds", lp.loadTime).Msg("local decoder ready")
	return nil
}

// healthURL derives the sidecar health endpoint from the transcription URL.
func (lp *LocalProvider) healthURL() string {
	if i := strings.Index(lp.url, "/v1/"); i > 0 {
		return lp.url[:i] + "/health"
	}
	return strings.TrimSuffix(lp.url, "/") + "/health"
}

// IsReady reports whether the sidecar probe has succeeded.
func (lp *LocalProvider) IsReady() bool {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.ready
}

// Name returns the provider display name.
func (lp *LocalProvider) Name() string {
	return fmt.Sprintf("local (%s)", lp.model)
}

// LoadTime returns the probe duration in seconds, 0 if not yet ready.
func (lp *LocalProvider) LoadTime() float64 {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.loadTime
}

// TranscribeSegments sends an audio file to the decoder and returns the
// ordered segment list plus the audio duration in seconds. initialPrompt
// biases recognition toward the provided vocabulary and context; pass ""
// to omit it.
func (lp *LocalProvider) TranscribeSegments(ctx context.Context, audioPath, language, initialPrompt string) ([]Segment, float64, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, 0, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, 0, fmt.Errorf("copy audio data: %w", err)
	}

	if lp.model != "" {
		w.WriteField("model", lp.model)
	}
	if language != "" {
		w.WriteField("language", language)
	}
	w.WriteField("task", "transcribe")
	w.WriteField("temperature", fmt.Sprintf("%.2f", lp.temperature))
	w.WriteField("response_format", "verbose_json")

	if lp.beamSize > 0 {
		w.WriteField("beam_size", fmt.Sprintf("%d", lp.beamSize))
	}
	if lp.bestOf > 0 {
		w.WriteField("best_of", fmt.Sprintf("%d", lp.bestOf))
	}
	if initialPrompt != "" {
		w.WriteField("prompt", initialPrompt)
	}
	if lp.vadFilter {
		w.WriteField("vad_filter", "true")
		w.WriteField("vad_threshold", fmt.Sprintf("%.2f", lp.vad.Threshold))
		w.WriteField("vad_min_speech_duration_ms", fmt.Sprintf("%d", lp.vad.MinSpeechDurationMs))
		w.WriteField("vad_min_silence_duration_ms", fmt.Sprintf("%d", lp.vad.MinSilenceDurationMs))
		w.WriteField("vad_speech_pad_ms", fmt.Sprintf("%d", lp.vad.SpeechPadMs))
	}

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lp.url, &buf)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := lp.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("local decoder request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("local decoder error (status %d): %s", resp.StatusCode, string(body))
	}

	var result localResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}

	return result.Segments, result.Duration, nil
}

// Transcribe implements Provider with a plain join over segments and the
// standard log-probability confidence mapping. The service's local path
// uses TranscribeSegments directly so it can filter per segment; this
// method exists for callers that treat the decoder as a generic provider.
func (lp *LocalProvider) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	start := time.Now()
	segments, _, err := lp.TranscribeSegments(ctx, audioPath, language, "")
	if err != nil {
		return nil, err
	}

	var parts []string
	var totalLogprob float64
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		totalLogprob += seg.AvgLogprob
	}

	confidence := 0.0
	if len(parts) > 0 {
		confidence = LogprobConfidence(totalLogprob / float64(len(parts)))
	}
	return &Result{
		Text:       strings.TrimSpace(strings.Join(parts, " ")),
		Confidence: confidence,
		Elapsed:    time.Since(start).Seconds(),
	}, nil
}
