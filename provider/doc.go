// Package provider defines the contract shared by swappable backends: the
// transcoder adapter, recognition backends and the Kafka producer.
//
// A RequestResponse[I, O] takes one input and returns one output. Middleware
// wraps it with logging, metrics and tracing:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[audio.Request, *audio.Waveform](log),
//	    provider.WithMetrics[audio.Request, *audio.Waveform](metrics),
//	    provider.WithTracing[audio.Request, *audio.Waveform]("whisperjob"),
//	)(normalizer)
//
// Backends are built by name from a Registry of factories; a factory receives
// the raw config map and decodes it with DecodeConfig.
package provider
