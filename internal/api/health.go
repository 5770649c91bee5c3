package api

import (
	"net/http"
	"time"

	"github.com/snarg/scribed/internal/transcribe"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status              string  `json:"status"`
	Version             string  `json:"version"`
	ModelLoaded         bool    `json:"model_loaded"`
	Provider            string  `json:"provider"`
	ModelName           string  `json:"model_name"`
	Device              string  `json:"device"`
	UptimeSeconds       int64   `json:"uptime_seconds"`
	RequestsProcessed   int64   `json:"requests_processed"`
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
}

// StatusResponse is the payload for GET /api/v1/status.
type StatusResponse struct {
	Server  serverInfo        `json:"server"`
	Service transcribe.Status `json:"service"`
}

type serverInfo struct {
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HealthHandler serves readiness and status snapshots.
type HealthHandler struct {
	svc       *transcribe.Service
	version   string
	startTime time.Time
}

// NewHealthHandler creates the health/status handler.
func NewHealthHandler(svc *transcribe.Service, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{svc: svc, version: version, startTime: startTime}
}

// Health handles GET /api/v1/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ready := h.svc.IsReady()
	status := "healthy"
	if !ready {
		status = "loading"
	}

	stats := h.svc.Stats()
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:              status,
		Version:             h.version,
		ModelLoaded:         ready,
		Provider:            h.svc.ProviderKind(),
		ModelName:           h.svc.ModelName(),
		Device:              h.svc.Device(),
		UptimeSeconds:       int64(time.Since(h.startTime).Seconds()),
		RequestsProcessed:   stats.TotalRequests(),
		AvgProcessingTimeMs: stats.AvgProcessingTime() * 1000,
	})
}

// Status handles GET /api/v1/status: the full service snapshot including
// both filters' introspection data and the vocabulary registry size.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{
		Server: serverInfo{
			Version:       h.version,
			UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		},
		Service: h.svc.Status(),
	})
}
