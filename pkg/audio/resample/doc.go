// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts decoded buffers to the studio's fixed sample rate
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation over interleaved float32 samples. Decoders use it
// to bring 44.1 kHz MP3 and FLAC chunks up to 48 kHz.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	n := r.Resample(input, output)
//
//	buf48k := resample.Buffer(buf, audio.SampleRate)
package resample
