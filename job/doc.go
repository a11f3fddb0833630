// Package job runs one transcription job end to end.
//
// Pipeline.Process walks a job through a fixed sequence of states
// (received, model ready, decoded, normalized, transcribed, assembled) and
// always returns an Envelope: a Transcript on success or a Failure built from
// the stage error that stopped it. Temporary files live in a per-job Scratch
// directory that is removed on every exit path.
package job
