package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/audio"
	"github.com/snarg/scribed/internal/transcribe"
)

// TranscribeHandler accepts audio uploads and runs them through the
// transcription pipeline. The uploaded file lives in a temp directory for
// the duration of the request and is removed before the response is sent.
type TranscribeHandler struct {
	svc     *transcribe.Service
	limits  audio.Limits
	tempDir string
	log     zerolog.Logger
}

// TranscriptionResult is the success payload for POST /transcribe.
type TranscriptionResult struct {
	Text             string  `json:"text"`
	Language         string  `json:"language"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
}

// NewTranscribeHandler creates a transcription upload handler.
func NewTranscribeHandler(svc *transcribe.Service, limits audio.Limits, tempDir string, log zerolog.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		svc:     svc,
		limits:  limits,
		tempDir: tempDir,
		log:     log.With().Str("handler", "transcribe").Logger(),
	}
}

// Routes registers the transcription endpoint.
func (h *TranscribeHandler) Routes(r chi.Router) {
	r.Post("/transcribe", h.Transcribe)
}

// Transcribe handles POST /api/v1/transcribe.
//
// Multipart form fields: audio_file (required), language (default "ja"),
// filter_aizuchi (default true), hotwords (comma-separated request-scoped
// vocabulary).
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if !h.svc.IsReady() {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrModelNotLoaded, "transcription provider is not loaded yet")
		return
	}

	start := time.Now()

	maxBytes := int64(h.limits.MaxFileSizeMB+1) << 20
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "missing audio_file field")
		return
	}
	defer file.Close()

	if !audio.IsSupportedFormat(header.Filename) {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidFormat, fmt.Sprintf("unsupported audio format: %q", header.Filename))
		return
	}

	tmpPath, err := h.saveTemp(file, header.Filename)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to save upload")
		WriteError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	defer os.Remove(tmpPath)

	if verr := audio.ValidateFile(r.Context(), tmpPath, h.limits); verr != nil {
		status := http.StatusBadRequest
		if verr.Code == audio.ErrCodeFileTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		WriteErrorWithCode(w, status, verr.Code, verr.Message)
		return
	}

	language := r.FormValue("language")
	if language == "" {
		language = "ja"
	}
	filterFillers := FormBool(r, "filter_aizuchi", true)
	extraHotwords := FormList(r, "hotwords")

	result, err := h.svc.Transcribe(r.Context(), tmpPath, language, filterFillers, extraHotwords)
	if err != nil {
		if errors.Is(err, transcribe.ErrNotReady) {
			WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrModelNotLoaded, err.Error())
			return
		}
		h.log.Error().Err(err).Str("language", language).Msg("transcription failed")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrTranscriptionFailed, err.Error())
		return
	}

	totalMs := time.Since(start).Milliseconds()
	h.log.Info().
		Int("chars", len(result.Text)).
		Float64("confidence", result.Confidence).
		Int64("total_ms", totalMs).
		Msg("transcription complete")

	WriteJSON(w, http.StatusOK, TranscriptionResult{
		Text:             result.Text,
		Language:         language,
		Confidence:       math.Round(result.Confidence*1000) / 1000,
		ProcessingTimeMs: totalMs,
	})
}

// saveTemp writes the uploaded audio to a temp file, preserving the
// original extension for the decoder.
func (h *TranscribeHandler) saveTemp(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".ogg"
	}
	tmp, err := os.CreateTemp(h.tempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return tmp.Name(), nil
}
