package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/hotwords"
)

// fakeCloudAPI serves an OpenAI-compatible transcription endpoint that
// returns the given text and captures the auth header of the last request.
func fakeCloudAPI(t *testing.T, text string, lastAuth *string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lastAuth != nil {
			*lastAuth = r.Header.Get("Authorization")
		}
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestGroqTranscribe(t *testing.T) {
	var auth string
	ts := fakeCloudAPI(t, "こんにちは、元気ですか", &auth)

	gp, err := NewGroqProvider("gsk_test", "whisper-large-v3", ts.URL, 5*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewGroqProvider: %v", err)
	}
	if !gp.IsReady() {
		t.Error("groq provider should report ready after lazy init")
	}

	res, err := gp.Transcribe(context.Background(), writeTestAudio(t), "ja")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "こんにちは、元気ですか" {
		t.Errorf("Text = %q", res.Text)
	}
	// The API reports no recognition confidence, so a fixed value is
	// synthesized for non-empty text.
	if res.Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", res.Confidence)
	}
	if auth != "Bearer gsk_test" {
		t.Errorf("Authorization = %q, want bearer key", auth)
	}
}

func TestGroqTranscribeEmptyText(t *testing.T) {
	ts := fakeCloudAPI(t, "   ", nil)

	gp, err := NewGroqProvider("gsk_test", "whisper-large-v3", ts.URL, 5*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewGroqProvider: %v", err)
	}
	res, err := gp.Transcribe(context.Background(), writeTestAudio(t), "ja")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty after trim", res.Text)
	}
	if res.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0 for empty text", res.Confidence)
	}
}

func TestOpenAITranscribe(t *testing.T) {
	ts := fakeCloudAPI(t, "これはテストです", nil)

	op, err := NewOpenAIProvider("sk-test", "whisper-1", ts.URL, 5*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	res, err := op.Transcribe(context.Background(), writeTestAudio(t), "ja")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "これはテストです" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", res.Confidence)
	}
}

func TestOpenAITranscribeEmptyText(t *testing.T) {
	ts := fakeCloudAPI(t, "", nil)

	op, err := NewOpenAIProvider("sk-test", "whisper-1", ts.URL, 5*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	res, err := op.Transcribe(context.Background(), writeTestAudio(t), "ja")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0 for empty text", res.Confidence)
	}
}

func TestCloudDefaultEndpoints(t *testing.T) {
	gp, err := NewGroqProvider("gsk_test", "whisper-large-v3", "", 5*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if gp.endpoint != groqSTTEndpoint {
		t.Errorf("groq endpoint = %q, want official default", gp.endpoint)
	}

	op, err := NewOpenAIProvider("sk-test", "whisper-1", "", 5*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if op.endpoint != openAISTTEndpoint {
		t.Errorf("openai endpoint = %q, want official default", op.endpoint)
	}
}

func newCloudService(t *testing.T, endpoint string) *Service {
	t.Helper()
	cfg := testConfig("")
	cfg.Provider = KindGroq
	cfg.GroqAPIKey = "gsk_test"
	cfg.GroqModel = "whisper-large-v3"
	cfg.GroqEndpoint = endpoint
	svc, err := NewService(cfg, hotwords.New("", zerolog.Nop()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return svc
}

func TestTranscribeCloud(t *testing.T) {
	ts := fakeCloudAPI(t, "今日の議題について話します", nil)
	svc := newCloudService(t, ts.URL)

	res, err := svc.Transcribe(context.Background(), writeTestAudio(t), "ja", true, nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "今日の議題について話します" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", res.Confidence)
	}

	// Cloud APIs report no audio duration, so none accumulates.
	snap := svc.Stats().Snapshot()
	if snap.TotalRequests != 1 || snap.SuccessfulRequests != 1 {
		t.Errorf("stats = %+v, want one successful request", snap)
	}
	if snap.TotalAudioSeconds != 0 {
		t.Errorf("TotalAudioSeconds = %v, want 0 on the cloud path", snap.TotalAudioSeconds)
	}
}

func TestTranscribeCloudHallucination(t *testing.T) {
	ts := fakeCloudAPI(t, "ご視聴ありがとうございました", nil)
	svc := newCloudService(t, ts.URL)

	res, err := svc.Transcribe(context.Background(), writeTestAudio(t), "ja", true, nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want boilerplate emptied", res.Text)
	}
	if snap := svc.Stats().Snapshot(); snap.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", snap.FailedRequests)
	}
}

func TestTranscribeCloudError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(ts.Close)
	svc := newCloudService(t, ts.URL)

	_, err := svc.Transcribe(context.Background(), writeTestAudio(t), "ja", true, nil)
	if err == nil {
		t.Fatal("Transcribe should propagate the API error")
	}

	snap := svc.Stats().Snapshot()
	if snap.TotalRequests != 1 || snap.FailedRequests != 1 {
		t.Errorf("stats = %+v, want one failed request", snap)
	}
	if snap.TotalAudioSeconds != 0 {
		t.Errorf("TotalAudioSeconds = %v, want 0", snap.TotalAudioSeconds)
	}
}
