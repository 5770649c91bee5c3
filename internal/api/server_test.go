package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/config"
	"github.com/snarg/scribed/internal/hotwords"
)

func newTestServer(t *testing.T, authToken string, ready bool) *Server {
	t.Helper()
	decoder := fakeDecoder(t, nil, 0)
	url := decoder.URL
	if !ready {
		url = "http://127.0.0.1:1"
	}
	svc := newTestTranscribeService(t, url, ready)

	cfg := &config.Config{
		HTTPAddr:           ":0",
		MaxFileSizeMB:      25,
		MinAudioDurationMs: 500,
		MaxAudioDurationS:  300,
		TempDir:            t.TempDir(),
		AuthToken:          authToken,
	}
	return NewServer(cfg, svc, "test", time.Now(), zerolog.Nop())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "", true)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", res.Status)
	}
	if !res.ModelLoaded {
		t.Error("ModelLoaded = false, want true")
	}
	if res.Provider != "local" || res.ModelName != "large-v3" {
		t.Errorf("Provider/ModelName = %q/%q", res.Provider, res.ModelName)
	}
}

func TestHealthEndpointLoading(t *testing.T) {
	srv := newTestServer(t, "", false)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

	// Health stays 200 while loading; readiness is in the body.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res HealthResponse
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Status != "loading" || res.ModelLoaded {
		t.Errorf("Status/ModelLoaded = %q/%v, want loading/false", res.Status, res.ModelLoaded)
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	srv := newTestServer(t, "secret", true)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 without auth", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d, want 200 without auth", rec.Code)
	}
}

func TestStatusRequiresAuth(t *testing.T) {
	srv := newTestServer(t, "secret", true)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without token", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with token", rec.Code)
	}

	var res StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Server.Version != "test" {
		t.Errorf("Server.Version = %q, want test", res.Server.Version)
	}
	if res.Service.Provider != "local" {
		t.Errorf("Service.Provider = %q, want local", res.Service.Provider)
	}
	if !res.Service.FillerFilter.Enabled || !res.Service.Hallucination.Enabled {
		t.Error("filter snapshots should report enabled")
	}
}

func TestHotwordsEndpoints(t *testing.T) {
	srv := newTestServer(t, "", true)
	h := srv.http.Handler

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/hotwords", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"hotwords": ["DAO", "NFT", "DAO"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var added struct {
		Added int `json:"added"`
		Count int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &added)
	if added.Added != 2 || added.Count != 2 {
		t.Errorf("POST result = %+v, want added=2 count=2", added)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/hotwords", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var list struct {
		Hotwords []string `json:"hotwords"`
		Count    int      `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Count != 2 || len(list.Hotwords) != 2 {
		t.Errorf("GET result = %+v", list)
	}

	req := httptest.NewRequest("DELETE", "/api/v1/hotwords", bytes.NewBufferString(`{"hotwords": ["DAO", "missing"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	var removed struct {
		Removed int `json:"removed"`
		Count   int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &removed)
	if removed.Removed != 1 || removed.Count != 1 {
		t.Errorf("DELETE result = %+v, want removed=1 count=1", removed)
	}

	// Empty and malformed bodies are rejected.
	if rec := post(`{"hotwords": []}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty POST status = %d, want 400", rec.Code)
	}
	if rec := post(`{not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed POST status = %d, want 400", rec.Code)
	}
}

func TestHotwordsPersist(t *testing.T) {
	reg := hotwords.New(t.TempDir()+"/hotwords.json", zerolog.Nop())
	h := NewHotwordsHandler(reg, zerolog.Nop())

	req := httptest.NewRequest("POST", "/hotwords", bytes.NewBufferString(`{"hotwords": ["DAO"], "persist": true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Add(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// The registry file should now exist and reload cleanly.
	reloaded := hotwords.New(reg.Stats().Path, zerolog.Nop())
	if !reloaded.Contains("DAO") {
		t.Error("persisted registry should contain DAO after reload")
	}
}
