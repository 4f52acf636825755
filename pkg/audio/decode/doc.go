// ABOUTME: Chunk decoder package for streamed and loaded audio
// ABOUTME: Sniffs container signatures and falls back to raw 16-bit PCM
// Package decode turns raw audio bytes into normalized audio.Buffers.
//
// Decoding is two-stage. Sniff inspects the leading signature bytes to pick a
// container decoder (WAV, MP3, FLAC or Ogg Opus). When nothing matches, or
// the container decoder fails, the bytes are read as signed 16-bit
// little-endian mono PCM at 48 kHz. The outcome is a tagged Result rather
// than an error, because a bad chunk is skipped, not fatal.
//
// Example:
//
//	dec := decode.New(audio.SampleRate)
//	res := dec.Decode(chunk)
//	if !res.OK() {
//	    log.Printf("skipping chunk: %v", res.Err)
//	}
package decode
