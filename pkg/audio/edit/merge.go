// ABOUTME: Merge operation joining buffers with a gap or a crossfade
// ABOUTME: Works on channel 0 and produces one mono buffer
package edit

import (
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/fade"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// Mode selects how adjacent buffers are joined
type Mode string

const (
	ModeGap       Mode = "gap"
	ModeCrossfade Mode = "crossfade"
)

// DefaultTransition is the gap or overlap length in seconds
const DefaultTransition = 0.5

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGap, ModeCrossfade:
		return Mode(s), nil
	}
	return "", studioerr.InvalidEdit.New("unknown merge mode %q", s)
}

// Merge joins channel 0 of each buffer into one mono buffer at audio.SampleRate.
// Inputs are copied, never modified.
func Merge(bufs []*audio.Buffer, mode Mode, transition float64) (*audio.Buffer, error) {
	if len(bufs) < 2 {
		return nil, studioerr.InvalidEdit.New("merge needs at least 2 buffers, got %d", len(bufs))
	}
	if transition < 0 {
		return nil, studioerr.InvalidEdit.New("negative transition %.3fs", transition)
	}

	sources := make([][]float32, len(bufs))
	for i, b := range bufs {
		if b == nil || b.Len() == 0 {
			return nil, studioerr.InvalidEdit.New("merge input %d is empty", i)
		}
		if b.SampleRate != audio.SampleRate {
			return nil, studioerr.InvalidEdit.New("merge input %d is %dHz, want %dHz", i, b.SampleRate, audio.SampleRate)
		}
		sources[i] = append([]float32(nil), b.Channels[0]...)
	}

	transitionSamples := fade.Samples(transition, audio.SampleRate)

	switch mode {
	case ModeGap:
		return mergeGap(sources, transitionSamples), nil
	case ModeCrossfade:
		for i, s := range sources {
			if transitionSamples > len(s) {
				return nil, studioerr.InvalidEdit.New("crossfade of %d samples exceeds input %d (%d samples)", transitionSamples, i, len(s))
			}
		}
		return mergeCrossfade(sources, transitionSamples), nil
	}

	return nil, studioerr.InvalidEdit.New("unknown merge mode %q", mode)
}

func mergeGap(sources [][]float32, gap int) *audio.Buffer {
	total := gap * (len(sources) - 1)
	for _, s := range sources {
		total += len(s)
	}

	out := audio.NewBuffer(1, total, audio.SampleRate)
	dst := out.Channels[0]

	offset := 0
	for i, s := range sources {
		fade.MicroFade(&audio.Buffer{Channels: [][]float32{s}, SampleRate: audio.SampleRate})
		copy(dst[offset:], s)
		offset += len(s)
		if i < len(sources)-1 {
			offset += gap
		}
	}

	return out
}

func mergeCrossfade(sources [][]float32, overlap int) *audio.Buffer {
	total := -overlap * (len(sources) - 1)
	for _, s := range sources {
		total += len(s)
	}

	out := audio.NewBuffer(1, total, audio.SampleRate)
	dst := out.Channels[0]

	offset := 0
	for i, s := range sources {
		if i > 0 {
			fade.RampIn(s, overlap)
		}
		if i < len(sources)-1 {
			fade.RampOut(s, overlap)
		}

		// Overlapping regions are summed, not replaced
		for j, v := range s {
			if offset+j < total {
				dst[offset+j] += v
			}
		}
		offset += len(s) - overlap
	}

	return out
}
