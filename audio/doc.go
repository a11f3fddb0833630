// Package audio turns untrusted input audio into the canonical waveform the
// recognition engine accepts: one channel, 16 kHz, signed 16-bit linear PCM
// in a WAV container.
//
// Normalization always goes through an external transcoder (ffmpeg). The
// Normalizer owns the command line, the timeout and the diagnostics, then
// verifies the output independently of the transcoder's exit status.
package audio
