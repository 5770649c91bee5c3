package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/api"
	"github.com/snarg/scribed/internal/config"
	"github.com/snarg/scribed/internal/hotwords"
	"github.com/snarg/scribed/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&overrides.Provider, "provider", "", "transcription provider (local, groq, openai)")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("provider", cfg.Provider).Msg("scribed starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hotwords registry: file, then env defaults
	hwLog := log.With().Str("component", "hotwords").Logger()
	registry := hotwords.New(cfg.HotwordsFile, hwLog)
	if cfg.Hotwords != "" {
		registry.LoadList(cfg.Hotwords)
	}
	if cfg.HotwordsFile != "" {
		watcher, err := hotwords.Watch(registry, hwLog)
		if err != nil {
			log.Warn().Err(err).Msg("hotwords file watching disabled")
		} else {
			defer watcher.Close()
		}
	}

	// Transcription service. Configuration errors are fatal here.
	svcLog := log.With().Str("component", "transcribe").Logger()
	svc, err := transcribe.NewService(transcribe.Config{
		Provider:                  cfg.Provider,
		LocalURL:                  cfg.LocalURL,
		ModelName:                 cfg.ModelName,
		BeamSize:                  cfg.BeamSize,
		BestOf:                    cfg.BestOf,
		Temperature:               cfg.Temperature,
		VadFilter:                 cfg.VadFilter,
		GroqAPIKey:                cfg.GroqAPIKey,
		GroqModel:                 cfg.GroqModel,
		GroqEndpoint:              cfg.GroqEndpoint,
		OpenAIAPIKey:              cfg.OpenAIAPIKey,
		OpenAIModel:               cfg.OpenAIModel,
		OpenAIEndpoint:            cfg.OpenAIEndpoint,
		RequestTimeout:            cfg.RequestTimeout,
		FillerFilterEnabled:       cfg.FillerFilterEnabled,
		FillerMaxLength:           cfg.FillerMaxLength,
		HallucinationEnabled:      cfg.HallucinationEnabled,
		HallucinationMinRepeat:    cfg.HallucinationMinRepeat,
		HallucinationMaxPhraseLen: cfg.HallucinationMaxPhraseLen,
		Vad: transcribe.VadParams{
			Threshold:            cfg.VadThreshold,
			MinSpeechDurationMs:  cfg.VadMinSpeechMs,
			MinSilenceDurationMs: cfg.VadMinSilenceMs,
			SpeechPadMs:          cfg.VadSpeechPadMs,
		},
	}, registry, svcLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create transcription service")
	}

	// Provider init: probe the local sidecar / warm the cloud client.
	// A failed probe is not fatal: the service reports not-ready and
	// clients get MODEL_NOT_LOADED until the sidecar comes up.
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := svc.Init(initCtx); err != nil {
		log.Warn().Err(err).Msg("provider not ready at startup")
	}
	cancel()

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, svc, version, startTime, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("scribed stopped")
}
