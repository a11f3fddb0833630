package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeNormalizationTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("NORMALIZATION_TIMEOUT should be retryable")
	}
	if New(ErrCodeInputMissing, "x", http.StatusBadRequest).Retryable {
		t.Error("INPUT_MISSING should not be retryable")
	}
}

func TestInputMissing(t *testing.T) {
	err := InputMissing("audio_base64")
	if err.Code != ErrCodeInputMissing {
		t.Errorf("expected INPUT_MISSING, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "missing input") {
		t.Errorf("expected message to mention missing input, got %q", err.Message)
	}
	if err.Details["field"] != "audio_base64" {
		t.Errorf("expected field detail, got %v", err.Details)
	}
	if err.Stage() != StageInput {
		t.Errorf("expected input stage, got %s", err.Stage())
	}
}

func TestNormalizationFailed_KeepsDiagnosticsVerbatim(t *testing.T) {
	stderr := "  [wav @ 0x55] invalid RIFF header\nerror while decoding\n"
	err := NormalizationFailed(1, stderr, fmt.Errorf("exit status 1"))
	if err.Diagnostics != stderr {
		t.Errorf("diagnostics changed: %q", err.Diagnostics)
	}
	if err.Details["exit_code"] != 1 {
		t.Errorf("expected exit_code=1, got %v", err.Details["exit_code"])
	}
	if err.Stage() != StageNormalization {
		t.Errorf("expected normalization stage, got %s", err.Stage())
	}
}

func TestNormalizationTimeout_Message(t *testing.T) {
	err := NormalizationTimeout(30*time.Second, "", nil)
	if !strings.Contains(err.Message, "timed out after 30s") {
		t.Errorf("expected timeout in message, got %q", err.Message)
	}
}

func TestIntegrityFailed_ReadsAsNormalization(t *testing.T) {
	err := IntegrityFailed("normalized output is empty", nil)
	if !strings.HasPrefix(err.Message, "normalization failed") {
		t.Errorf("expected normalization wording, got %q", err.Message)
	}
	if err.Stage() != StageIntegrity {
		t.Errorf("expected integrity stage, got %s", err.Stage())
	}
}

func TestAudioLoadFailed_DistinguishableFromModelFailure(t *testing.T) {
	cause := fmt.Errorf("failed to load audio: invalid data")
	audio := AudioLoadFailed(cause)
	model := TranscriptionFailed(fmt.Errorf("CUDA out of memory"))

	if audio.Code == model.Code {
		t.Fatal("audio-load and model failures must carry different codes")
	}
	if !strings.Contains(audio.Message, "audio load failure") {
		t.Errorf("expected audio-load flag in message, got %q", audio.Message)
	}
	if audio.Stage() != StageTranscription || model.Stage() != StageTranscription {
		t.Error("both belong to the transcription stage")
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
		stage  Stage
	}{
		{"InvalidInput", InvalidInput("bad rate"), ErrCodeInvalidInput, http.StatusBadRequest, StageInput},
		{"ModelUnavailable", ModelUnavailable(cause), ErrCodeModelUnavailable, http.StatusServiceUnavailable, StageModel},
		{"DecodeFailed", DecodeFailed(cause), ErrCodeDecodeFailed, http.StatusBadRequest, StageDecode},
		{"TranscriptionFailed", TranscriptionFailed(cause), ErrCodeTranscriptionFailed, http.StatusInternalServerError, StageTranscription},
		{"ServiceUnavailable", ServiceUnavailable("engine"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable, StageInternal},
		{"Internal", Internal(cause), ErrCodeInternal, http.StatusInternalServerError, StageInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("code = %s, want %s", tc.err.Code, tc.code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("status = %d, want %d", tc.err.HTTPStatus, tc.status)
			}
			if tc.err.Stage() != tc.stage {
				t.Errorf("stage = %s, want %s", tc.err.Stage(), tc.stage)
			}
		})
	}
}

func TestStageOf_UnknownCode(t *testing.T) {
	if StageOf("SOMETHING_ELSE") != StageInternal {
		t.Error("unknown codes should map to the internal stage")
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := New(ErrCodeDecodeFailed, "decode failed", http.StatusBadRequest)
	if got := err.Error(); got != "DECODE_FAILED: decode failed" {
		t.Errorf("unexpected format %q", got)
	}
	err.WithCause(fmt.Errorf("illegal base64 data"))
	if !strings.Contains(err.Error(), "cause: illegal base64 data") {
		t.Errorf("expected cause in %q", err.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := DecodeFailed(sentinel)
	if !stderrors.Is(err, sentinel) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestAsAppError_ThroughWrapping(t *testing.T) {
	inner := InputMissing("audio_base64")
	wrapped := fmt.Errorf("stage received: %w", inner)
	got, ok := AsAppError(wrapped)
	if !ok || got != inner {
		t.Fatal("expected AsAppError to unwrap to the original")
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("plain error is not an AppError")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
	orig := DecodeFailed(fmt.Errorf("x"))
	if Wrap(fmt.Errorf("ctx: %w", orig)) != orig {
		t.Error("Wrap should pass through AppErrors")
	}
	if Wrap(fmt.Errorf("plain")).Code != ErrCodeInternal {
		t.Error("Wrap should classify plain errors as internal")
	}
}
