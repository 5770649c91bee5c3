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

const openAISTTEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// openAIConfidence is synthesized for non-empty results; the OpenAI API
// does not report recognition confidence. Deliberate approximation.
const openAIConfidence = 0.92

// OpenAIProvider calls the OpenAI audio transcription API.
// Implements the Provider interface.
type OpenAIProvider struct {
	endpoint string
	apiKey   string
	model    string // "whisper-1"
	timeout  time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	client *http.Client
	ready  bool
}

// openAIResponse is the JSON response from the OpenAI transcription API.
type openAIResponse struct {
	Text string `json:"text"`
}

// NewOpenAIProvider creates an OpenAI provider. An empty endpoint selects
// the official API URL. A missing API key is a configuration error, fatal
// at construction.
func NewOpenAIProvider(apiKey, model, endpoint string, timeout time.Duration, log zerolog.Logger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("WHISPER_OPENAI_API_KEY is required for the openai provider")
	}
	if endpoint == "" {
		endpoint = openAISTTEndpoint
	}
	return &OpenAIProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		timeout:  timeout,
		log:      log,
	}, nil
}

// ensureClient lazily builds the HTTP client and caches readiness.
func (op *OpenAIProvider) ensureClient() *http.Client {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.client == nil {
		op.client = &http.Client{Timeout: op.timeout}
		op.ready = true
		op.log.Info().Str("model", op.model).Msg("openai client initialized")
	}
	return op.client
}

// IsReady reports whether the client is initialized, initializing it on
// first call.
func (op *OpenAIProvider) IsReady() bool {
	op.ensureClient()
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.ready
}

// Name returns the provider display name.
func (op *OpenAIProvider) Name() string {
	return fmt.Sprintf("openai (%s)", op.model)
}

// Transcribe sends an audio file to the OpenAI API. Confidence is
// synthesized: the API returns text only.
func (op *OpenAIProvider) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	client := op.ensureClient()
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

	w.WriteField("model", op.model)
	if language != "" {
		w.WriteField("language", language)
	}
	w.WriteField("response_format", "json")
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, op.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+op.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result openAIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	confidence := 0.0
	if text != "" {
		confidence = openAIConfidence
	}

	elapsed := time.Since(start).Seconds()
	op.log.Debug().Int("chars", len(text)).Float64("elapsed_s", elapsed).Msg("openai transcription complete")

	return &Result{Text: text, Confidence: confidence, Elapsed: elapsed}, nil
}
