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

const groqSTTEndpoint = "https://api.groq.com/openai/v1/audio/transcriptions"

// groqConfidence is synthesized for non-empty results; the Groq API does
// not report recognition confidence. Deliberate approximation.
const groqConfidence = 0.90

// GroqProvider calls the Groq speech-to-text API.
// Implements the Provider interface.
type GroqProvider struct {
	endpoint string
	apiKey   string
	model    string // "whisper-large-v3" or "whisper-large-v3-turbo"
	timeout  time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	client *http.Client
	ready  bool
}

// groqResponse is the JSON response from the Groq transcription API.
type groqResponse struct {
	Text string `json:"text"`
}

// NewGroqProvider creates a Groq provider. An empty endpoint selects the
// official API URL. A missing API key is a configuration error, fatal at
// construction.
func NewGroqProvider(apiKey, model, endpoint string, timeout time.Duration, log zerolog.Logger) (*GroqProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("WHISPER_GROQ_API_KEY is required for the groq provider")
	}
	if endpoint == "" {
		endpoint = groqSTTEndpoint
	}
	return &GroqProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		timeout:  timeout,
		log:      log,
	}, nil
}

// ensureClient lazily builds the HTTP client and caches readiness.
func (gp *GroqProvider) ensureClient() *http.Client {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	if gp.client == nil {
		gp.client = &http.Client{Timeout: gp.timeout}
		gp.ready = true
		gp.log.Info().Str("model", gp.model).Msg("groq client initialized")
	}
	return gp.client
}

// IsReady reports whether the client is initialized, initializing it on
// first call.
func (gp *GroqProvider) IsReady() bool {
	gp.ensureClient()
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.ready
}

// Name returns the provider display name.
func (gp *GroqProvider) Name() string {
	return fmt.Sprintf("groq (%s)", gp.model)
}

// Transcribe sends an audio file to the Groq API. Confidence is
// synthesized: the API returns text only.
func (gp *GroqProvider) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	client := gp.ensureClient()
	start := time.Now()

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	w.WriteField("model", gp.model)
	if language != "" {
		w.WriteField("language", language)
	}
	w.WriteField("response_format", "json")
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gp.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+gp.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result groqResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	confidence := 0.0
	if text != "" {
		confidence = groqConfidence
	}

	elapsed := time.Since(start).Seconds()
	gp.log.Debug().Int("chars", len(text)).Float64("elapsed_s", elapsed).Msg("groq transcription complete")

	return &Result{Text: text, Confidence: confidence, Elapsed: elapsed}, nil
}
