// Package validation checks job inputs and configuration structs.
//
// Struct tags go through go-playground/validator:
//
//	type Input struct {
//	    Format string `json:"format" validate:"omitempty,oneof=auto pcm_s16le"`
//	}
//	err := validation.Validate(in)
//
// Cross-field rules use the collecting Validator:
//
//	v := validation.New()
//	v.Custom(rate > 0, "sample_rate", "is required for raw PCM")
//	err := v.Err()
//
// Both return *errors.AppError with code INVALID_INPUT and a "fields" detail.
package validation
