package provider

import "context"

// RequestResponse is a provider that takes one input and returns one output.
// Subprocess runs and model inference both fit this shape.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}
