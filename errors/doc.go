// Package errors provides the structured error type used across whisperjob.
//
// Every failure a job can hit is represented as an *AppError carrying a
// machine-readable code. Each code belongs to exactly one pipeline Stage,
// which is how the orchestrator decides what the caller sees.
package errors
