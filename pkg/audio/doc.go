// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Buffer, Format and 16-bit sample conversion functions
// Package audio provides the decoded buffer type shared by the studio pipeline.
//
// Every decoder normalizes to a Buffer: one float32 slice per channel at
// SampleRate (48 kHz). Fades, edits, the scheduler and the encoders all work
// on Buffers.
//
// Conversions between float samples and signed 16-bit PCM are asymmetric to
// use the full int16 range:
//
//	audio.SampleToInt16(-1.0) // -32768
//	audio.SampleToInt16(1.0)  //  32767
package audio
