// Package audio holds upload-side audio file checks: format allowlist,
// size limits, and an optional ffprobe duration gate. These run before the
// transcription pipeline sees the file.
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// supportedExtensions are the audio containers the decoders accept.
var supportedExtensions = map[string]bool{
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".webm": true,
}

// Validation error codes surfaced to HTTP clients.
const (
	ErrCodeFileNotFound = "FILE_NOT_FOUND"
	ErrCodeFileTooLarge = "FILE_TOO_LARGE"
	ErrCodeTooShort     = "AUDIO_TOO_SHORT"
	ErrCodeTooLong      = "AUDIO_TOO_LONG"
)

// ValidationError describes why an audio file was rejected.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSupportedFormat reports whether the filename's extension is an
// accepted audio container.
func IsSupportedFormat(filename string) bool {
	if filename == "" {
		return false
	}
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Limits configure file validation.
type Limits struct {
	MaxFileSizeMB      int
	MinDurationMs      int
	MaxDurationSeconds int
}

// ValidateFile checks an on-disk audio file against the limits. The
// duration check requires ffprobe; when ffprobe is unavailable or fails,
// the duration gate is skipped rather than rejecting the file.
func ValidateFile(ctx context.Context, path string, limits Limits) *ValidationError {
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Code: ErrCodeFileNotFound, Message: path}
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	if limits.MaxFileSizeMB > 0 && sizeMB > float64(limits.MaxFileSizeMB) {
		return &ValidationError{
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("file is %.2fMB, max %dMB", sizeMB, limits.MaxFileSizeMB),
		}
	}

	if dur, ok := probeDuration(ctx, path); ok {
		durationMs := dur * 1000
		if limits.MinDurationMs > 0 && durationMs < float64(limits.MinDurationMs) {
			return &ValidationError{
				Code:    ErrCodeTooShort,
				Message: fmt.Sprintf("audio is %.0fms, min %dms", durationMs, limits.MinDurationMs),
			}
		}
		if limits.MaxDurationSeconds > 0 && dur > float64(limits.MaxDurationSeconds) {
			return &ValidationError{
				Code:    ErrCodeTooLong,
				Message: fmt.Sprintf("audio is %.2fs, max %ds", dur, limits.MaxDurationSeconds),
			}
		}
	}

	return nil
}

// probeDuration reads the audio duration via ffprobe. Returns false when
// ffprobe is missing or the file cannot be probed.
func probeDuration(ctx context.Context, path string) (float64, bool) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, false
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, false
	}
	return dur, true
}
