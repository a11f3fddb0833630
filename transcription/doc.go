// Package transcription adapts speech-recognition engines to the job
// pipeline.
//
// A Backend loads a model and returns a Handle; the Handle loads canonical
// waveforms and transcribes them into segments of timed words. Model is the
// process-wide guard around one Handle: it loads the model once, lets late
// callers wait for an in-flight load, and bounds concurrent inference.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//   - transcription/mock: deterministic engine for local runs and tests
//
// # Usage
//
//	reg := transcription.NewRegistry()
//	reg.RegisterFactory(whisper.ProviderName, whisper.Factory())
//	backend, _ := reg.Create("whisper", cfg.Options)
//	model := transcription.NewModel(cfg, backend)
//	if err := model.Ensure(ctx); err != nil { ... }
//	res, err := model.Transcribe(ctx, "/tmp/job/normalized.wav", "en")
package transcription
