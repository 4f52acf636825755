// ABOUTME: Audio encoder package producing distributable blobs
// ABOUTME: Ogg Opus for compressed export, WAV for lossless export
// Package encode turns decoded buffers into files.
//
// Every encoder works on the first channel of a buffer, clipping samples to
// [-1, 1] and quantizing them to signed 16-bit before encoding. The Ogg Opus
// encoder writes fixed 20ms frames and pads the final partial frame.
//
// Accumulated raw stream bytes can be encoded directly with EncodeRaw, which
// returns nil when nothing was accumulated.
//
// Example:
//
//	enc, err := encode.New("opus", 128000)
//	blob, err := enc.Encode(buf)
package encode
