package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/audio"
	"github.com/snarg/scribed/internal/config"
	"github.com/snarg/scribed/internal/metrics"
	"github.com/snarg/scribed/internal/transcribe"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, svc *transcribe.Service, version string, startTime time.Time, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(CORS)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)

	limits := audio.Limits{
		MaxFileSizeMB:      cfg.MaxFileSizeMB,
		MinDurationMs:      cfg.MinAudioDurationMs,
		MaxDurationSeconds: cfg.MaxAudioDurationS,
	}

	health := NewHealthHandler(svc, version, startTime)

	// Health and metrics, no auth
	r.Get("/api/v1/health", health.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/status", health.Status)
			NewTranscribeHandler(svc, limits, cfg.TempDir, log).Routes(r)
			NewHotwordsHandler(svc.Hotwords(), log).Routes(r)
		})
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
