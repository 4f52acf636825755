// ABOUTME: Deterministic sine tone provider
// ABOUTME: Emits one paced run of tone chunks per sentence for demos and tests
package provider

import (
	"context"
	"io"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/encode"
)

// Tone chunk framings
const (
	FramingPCM = "pcm"
	FramingWAV = "wav"
)

// Tone synthesizes a sine wave whose length follows the word count
type Tone struct {
	Frequency      float64
	SampleRate     int
	SecondsPerWord float64
	ChunkDuration  float64
	Framing        string

	// Pace is the delay before each chunk after the first
	Pace time.Duration
}

// NewTone creates a 440Hz tone provider producing raw PCM chunks
func NewTone() *Tone {
	return &Tone{
		Frequency:      440.0, // A4 note
		SampleRate:     audio.SampleRate,
		SecondsPerWord: 0.3,
		ChunkDuration:  0.5,
		Framing:        FramingPCM,
	}
}

// Open renders every chunk up front and replays them with pacing
func (t *Tone) Open(ctx context.Context, req Request) (Stream, error) {
	chunks, err := t.Chunks(req)
	if err != nil {
		return nil, err
	}
	return NewSliceStream(chunks, t.Pace), nil
}

// Chunks renders the whole request
func (t *Tone) Chunks(req Request) ([]Chunk, error) {
	var chunks []Chunk
	var index uint64

	for _, sentence := range SplitSentences(req.Text) {
		words := len(strings.Fields(sentence))
		seconds := max(0.5, float64(words)*t.SecondsPerWord)
		total := int(seconds * float64(t.SampleRate))
		per := max(1, int(t.ChunkDuration*float64(t.SampleRate)))

		for done := 0; done < total; done += per {
			n := min(per, total-done)
			buf := t.render(index, n)
			index += uint64(n)

			c, err := t.frame(buf)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

func (t *Tone) render(start uint64, n int) *audio.Buffer {
	buf := audio.NewBuffer(1, n, t.SampleRate)
	for i := range buf.Channels[0] {
		ts := float64(start+uint64(i)) / float64(t.SampleRate)
		// 50% volume
		buf.Channels[0][i] = float32(0.5 * math.Sin(2*math.Pi*t.Frequency*ts))
	}
	return buf
}

func (t *Tone) frame(buf *audio.Buffer) (Chunk, error) {
	if t.Framing == FramingWAV {
		data, err := encode.NewWAV().Encode(buf)
		if err != nil {
			return Chunk{}, err
		}
		return Chunk{Data: data, MimeType: "audio/wav"}, nil
	}
	return Chunk{
		Data:     audio.FloatToPCM16(buf.Channels[0]),
		MimeType: "audio/pcm;rate=48000",
	}, nil
}

// SplitSentences breaks text at sentence punctuation, dropping empty pieces
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '।' || r == '\n'
	})

	var out []string
	for _, p := range parts {
		p = strings.TrimFunc(p, unicode.IsSpace)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SliceStream replays a fixed list of chunks
type SliceStream struct {
	chunks []Chunk
	pace   time.Duration
	next   int
}

// NewSliceStream creates a stream over chunks, waiting pace before each one after the first
func NewSliceStream(chunks []Chunk, pace time.Duration) *SliceStream {
	return &SliceStream{chunks: chunks, pace: pace}
}

// Next returns the next chunk or io.EOF
func (s *SliceStream) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	if s.next >= len(s.chunks) {
		return Chunk{}, io.EOF
	}
	if s.next > 0 && s.pace > 0 {
		timer := time.NewTimer(s.pace)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Chunk{}, ctx.Err()
		case <-timer.C:
		}
	}
	c := s.chunks[s.next]
	s.next++
	return c, nil
}

// Close releases nothing
func (s *SliceStream) Close() error { return nil }
