package api

// Stable error codes returned to transcription clients. Not-ready and
// provider failures are distinct so callers can decide whether retrying
// makes sense.
const (
	ErrModelNotLoaded      = "MODEL_NOT_LOADED"
	ErrInvalidFormat       = "INVALID_FORMAT"
	ErrFileTooLarge        = "FILE_TOO_LARGE"
	ErrValidationFailed    = "VALIDATION_FAILED"
	ErrTranscriptionFailed = "TRANSCRIPTION_FAILED"
	ErrInvalidBody         = "INVALID_BODY"
)
