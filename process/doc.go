// Package process runs external tools (the audio transcoder) as subprocesses
// with process-group signalling, output capture and deadline handling.
//
// Cancellation sends SIGTERM to the whole process group and escalates to
// SIGKILL after the grace period. Only the command's own Timeout is reported
// as ErrTimeout; a done caller context, deadline included, is ErrCanceled.
package process
