package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors. Never retried.
const (
	// ErrCodeInputMissing indicates the job carried no audio payload.
	ErrCodeInputMissing ErrorCode = "INPUT_MISSING"
	// ErrCodeInvalidInput indicates malformed format hints or job fields.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Model errors.
const (
	// ErrCodeModelUnavailable indicates the recognition model could not be loaded.
	ErrCodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
)

// Decode errors.
const (
	// ErrCodeDecodeFailed indicates malformed base64 or a scratch I/O failure.
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"
)

// Normalization errors.
const (
	// ErrCodeNormalizationFailed indicates the transcoder exited non-zero.
	ErrCodeNormalizationFailed ErrorCode = "NORMALIZATION_FAILED"
	// ErrCodeNormalizationTimeout indicates the transcoder exceeded its budget.
	ErrCodeNormalizationTimeout ErrorCode = "NORMALIZATION_TIMEOUT"
	// ErrCodeIntegrityFailed indicates the transcoder output was missing,
	// empty or not canonical even though the process reported success.
	ErrCodeIntegrityFailed ErrorCode = "INTEGRITY_FAILED"
)

// Transcription errors.
const (
	// ErrCodeTranscriptionFailed indicates the engine failed on the waveform.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeAudioLoadFailed indicates the engine could not load the waveform.
	ErrCodeAudioLoadFailed ErrorCode = "AUDIO_LOAD_FAILED"
)

// Internal errors.
const (
	// ErrCodeInternal indicates an unexpected failure inside the service.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeServiceUnavailable indicates a saturated or stopped dependency.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Stage names the pipeline boundary an error code belongs to.
type Stage string

const (
	StageInput         Stage = "input"
	StageModel         Stage = "model"
	StageDecode        Stage = "decode"
	StageNormalization Stage = "normalization"
	StageIntegrity     Stage = "integrity"
	StageTranscription Stage = "transcription"
	StageInternal      Stage = "internal"
)

var codeStages = map[ErrorCode]Stage{
	ErrCodeInputMissing:         StageInput,
	ErrCodeInvalidInput:         StageInput,
	ErrCodeModelUnavailable:     StageModel,
	ErrCodeDecodeFailed:         StageDecode,
	ErrCodeNormalizationFailed:  StageNormalization,
	ErrCodeNormalizationTimeout: StageNormalization,
	ErrCodeIntegrityFailed:      StageIntegrity,
	ErrCodeTranscriptionFailed:  StageTranscription,
	ErrCodeAudioLoadFailed:      StageTranscription,
	ErrCodeInternal:             StageInternal,
	ErrCodeServiceUnavailable:   StageInternal,
}

// StageOf returns the stage a code belongs to.
func StageOf(code ErrorCode) Stage {
	if s, ok := codeStages[code]; ok {
		return s
	}
	return StageInternal
}

var retryableCodes = map[ErrorCode]bool{
	ErrCodeModelUnavailable:     true,
	ErrCodeNormalizationTimeout: true,
	ErrCodeServiceUnavailable:   true,
}

// IsRetryableCode reports whether a dispatcher may reasonably resubmit a job
// that failed with code. The pipeline itself never retries.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
