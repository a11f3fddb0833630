package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if a dispatcher may resubmit the job.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Diagnostics is raw tool output (transcoder stderr, engine message).
	// It is surfaced verbatim.
	Diagnostics string `json:"diagnostics,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Stage returns the pipeline stage the error belongs to.
func (e *AppError) Stage() Stage { return StageOf(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDiagnostics attaches raw tool output and returns the receiver.
func (e *AppError) WithDiagnostics(diag string) *AppError {
	e.Diagnostics = diag
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Stage constructors ---

// InputMissing reports a job without an audio payload.
func InputMissing(field string) *AppError {
	return New(ErrCodeInputMissing,
		fmt.Sprintf("missing input: no '%s' provided in job input", field),
		http.StatusBadRequest).WithDetail("field", field)
}

// InvalidInput reports a malformed job field or format hint.
func InvalidInput(reason string) *AppError {
	return New(ErrCodeInvalidInput, "invalid input: "+reason, http.StatusBadRequest)
}

// ModelUnavailable reports a failed model load.
func ModelUnavailable(cause error) *AppError {
	return New(ErrCodeModelUnavailable, "model load failed: "+cause.Error(),
		http.StatusServiceUnavailable).WithCause(cause)
}

// DecodeFailed reports malformed base64 or a scratch I/O failure.
func DecodeFailed(cause error) *AppError {
	return New(ErrCodeDecodeFailed, "decode failed: "+cause.Error(),
		http.StatusBadRequest).WithCause(cause)
}

// NormalizationFailed reports a non-zero transcoder exit. diagnostics is the
// transcoder's standard error, kept as-is.
func NormalizationFailed(exitCode int, diagnostics string, cause error) *AppError {
	return New(ErrCodeNormalizationFailed,
		fmt.Sprintf("normalization failed: transcoder exited with code %d", exitCode),
		http.StatusUnprocessableEntity).
		WithDiagnostics(diagnostics).
		WithDetail("exit_code", exitCode).
		WithCause(cause)
}

// NormalizationTimeout reports a transcoder that exceeded its time budget.
func NormalizationTimeout(budget time.Duration, diagnostics string, cause error) *AppError {
	return New(ErrCodeNormalizationTimeout,
		fmt.Sprintf("normalization failed: transcoder timed out after %s", budget),
		http.StatusGatewayTimeout).
		WithDiagnostics(diagnostics).
		WithDetail("timeout", budget.String()).
		WithCause(cause)
}

// IntegrityFailed reports unusable normalizer output. It is presented to the
// caller as a normalization failure.
func IntegrityFailed(reason string, cause error) *AppError {
	return New(ErrCodeIntegrityFailed, "normalization failed: "+reason,
		http.StatusUnprocessableEntity).WithCause(cause)
}

// TranscriptionFailed reports an engine failure with the library message.
func TranscriptionFailed(cause error) *AppError {
	return New(ErrCodeTranscriptionFailed, "transcription failed: "+cause.Error(),
		http.StatusInternalServerError).WithCause(cause)
}

// AudioLoadFailed reports an engine that could not load the waveform, as
// opposed to a model failure.
func AudioLoadFailed(cause error) *AppError {
	return New(ErrCodeAudioLoadFailed, "transcription failed: audio load failure: "+cause.Error(),
		http.StatusUnprocessableEntity).WithCause(cause)
}

// ServiceUnavailable reports a saturated or stopped dependency.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable,
		fmt.Sprintf("the %s is temporarily unavailable", service),
		http.StatusServiceUnavailable).WithDetail("service", service)
}

// Internal reports an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "internal error: "+cause.Error(),
		http.StatusInternalServerError).WithCause(cause)
}
