// ABOUTME: Text-to-speech provider interfaces
// ABOUTME: Defines requests, streamed chunks and the wire format shared with the TTS server
package provider

import (
	"context"
)

// Request describes one synthesis job
type Request struct {
	Text  string
	Voice string
	Style string

	// ReferenceAudio switches the provider into voice cloning mode
	ReferenceAudio []byte
}

// Cloning reports whether the request carries a reference clip
func (r Request) Cloning() bool {
	return len(r.ReferenceAudio) > 0
}

// Chunk is one piece of encoded audio as delivered by the provider
type Chunk struct {
	Data     []byte
	MimeType string
}

// Stream yields chunks until it returns io.EOF
type Stream interface {
	Next(ctx context.Context) (Chunk, error)
	Close() error
}

// Provider opens synthesis streams
type Provider interface {
	Open(ctx context.Context, req Request) (Stream, error)
}

// Checker is implemented by providers that can validate their settings
// without opening a stream
type Checker interface {
	Ready() error
}

// CheckReady returns p's configuration error when p can report one
func CheckReady(p Provider) error {
	if c, ok := p.(Checker); ok {
		return c.Ready()
	}
	return nil
}

// WireRequest is the JSON message a client sends to open a stream
type WireRequest struct {
	SSML           string `json:"ssml,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	Voice          string `json:"voice,omitempty"`
	Style          string `json:"style,omitempty"`
	ReferenceAudio []byte `json:"reference_audio,omitempty"`
	SampleRate     int    `json:"sample_rate"`
}

// WireFrame is one JSON message from the server
type WireFrame struct {
	Audio    []byte `json:"audio,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Final    bool   `json:"final,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BuildWireRequest renders req the way it is sent over the wire
func BuildWireRequest(req Request, sampleRate int) WireRequest {
	if req.Cloning() {
		return WireRequest{
			Prompt:         ClonePrompt(req.Text, req.Style),
			Style:          req.Style,
			ReferenceAudio: req.ReferenceAudio,
			SampleRate:     sampleRate,
		}
	}
	return WireRequest{
		SSML:       BuildSSML(req.Text),
		Voice:      LockVoice(req.Voice),
		Style:      req.Style,
		SampleRate: sampleRate,
	}
}
