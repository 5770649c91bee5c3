package audio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestIsSupportedFormat(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"clip.ogg", true},
		{"clip.opus", true},
		{"clip.wav", true},
		{"clip.mp3", true},
		{"clip.m4a", true},
		{"clip.flac", true},
		{"clip.webm", true},
		{"CLIP.OGG", true}, // case-insensitive
		{"clip.aiff", false},
		{"clip.txt", false},
		{"clip", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSupportedFormat(tt.name); got != tt.want {
			t.Errorf("IsSupportedFormat(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValidateFileNotFound(t *testing.T) {
	err := ValidateFile(context.Background(), "/nonexistent/clip.ogg", Limits{MaxFileSizeMB: 25})
	if err == nil {
		t.Fatal("ValidateFile should reject a missing file")
	}
	if err.Code != ErrCodeFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeFileNotFound)
	}
}

func TestValidateFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.ogg")
	// 2MB of zeros against a 1MB limit.
	if err := os.WriteFile(path, bytes.Repeat([]byte{0}, 2<<20), 0o644); err != nil {
		t.Fatal(err)
	}

	err := ValidateFile(context.Background(), path, Limits{MaxFileSizeMB: 1})
	if err == nil {
		t.Fatal("ValidateFile should reject an oversized file")
	}
	if err.Code != ErrCodeFileTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeFileTooLarge)
	}
}

func TestValidateFileOK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.ogg")
	if err := os.WriteFile(path, []byte("OggS fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Not a real audio file, so the ffprobe duration gate is skipped and
	// only the size check applies.
	if err := ValidateFile(context.Background(), path, Limits{MaxFileSizeMB: 25, MinDurationMs: 500, MaxDurationSeconds: 300}); err != nil {
		t.Errorf("ValidateFile: %v", err)
	}
}

func TestValidationErrorString(t *testing.T) {
	err := &ValidationError{Code: ErrCodeFileTooLarge, Message: "file is 30.00MB, max 25MB"}
	want := "FILE_TOO_LARGE: file is 30.00MB, max 25MB"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
