// ABOUTME: WebSocket TTS provider
// ABOUTME: Sends one JSON request and streams base64 audio frames back
package provider

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// WebSocket streams synthesized audio from a remote endpoint
type WebSocket struct {
	URL        string
	APIKey     string
	SampleRate int
	Dialer     *websocket.Dialer
}

// NewWebSocket creates a provider for the endpoint at url
func NewWebSocket(url, apiKey string) *WebSocket {
	return &WebSocket{
		URL:        url,
		APIKey:     apiKey,
		SampleRate: audio.SampleRate,
		Dialer:     websocket.DefaultDialer,
	}
}

// Ready reports a missing credential or endpoint
func (w *WebSocket) Ready() error {
	if w.APIKey == "" {
		return studioerr.MissingPrerequisite.New("provider api key is not set")
	}
	if w.URL == "" {
		return studioerr.MissingPrerequisite.New("provider url is not set")
	}
	return nil
}

// Open dials the endpoint and sends the synthesis request
func (w *WebSocket) Open(ctx context.Context, req Request) (Stream, error) {
	if err := w.Ready(); err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+w.APIKey)

	conn, resp, err := w.Dialer.DialContext(ctx, w.URL, header)
	if err != nil {
		return nil, classifyDialError(err, resp, w.URL)
	}

	if err := conn.WriteJSON(BuildWireRequest(req, w.SampleRate)); err != nil {
		conn.Close()
		return nil, studioerr.ProviderFailure.Wrap(err, "failed to send request")
	}

	s := &wsStream{
		conn:   conn,
		frames: make(chan frameResult, 16),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// classifyDialError separates retryable outages from rejected requests
func classifyDialError(err error, resp *http.Response, url string) error {
	if resp == nil {
		return studioerr.ProviderFailure.Wrap(err, "dial %s", url)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return studioerr.ProviderFailure.Wrap(err, "dial %s: status %d", url, resp.StatusCode)
	default:
		return studioerr.ProviderRejected.Wrap(err, "dial %s: status %d", url, resp.StatusCode)
	}
}

type frameResult struct {
	frame WireFrame
	err   error
}

type wsStream struct {
	conn      *websocket.Conn
	frames    chan frameResult
	done      chan struct{}
	closeOnce sync.Once
}

func (s *wsStream) readLoop() {
	defer close(s.frames)

	for {
		var f WireFrame
		err := s.conn.ReadJSON(&f)

		select {
		case s.frames <- frameResult{frame: f, err: err}:
		case <-s.done:
			return
		}

		if err != nil || f.Final || f.Error != "" {
			return
		}
	}
}

// Next returns the next audio chunk, io.EOF after the final frame
func (s *wsStream) Next(ctx context.Context) (Chunk, error) {
	for {
		select {
		case <-ctx.Done():
			return Chunk{}, ctx.Err()
		case r, ok := <-s.frames:
			if !ok {
				return Chunk{}, io.EOF
			}
			if r.err != nil {
				if websocket.IsCloseError(r.err, websocket.CloseNormalClosure) {
					return Chunk{}, io.EOF
				}
				return Chunk{}, studioerr.ProviderFailure.Wrap(r.err, "stream read failed")
			}
			if r.frame.Error != "" {
				return Chunk{}, studioerr.ProviderRejected.New("provider error: %s", r.frame.Error)
			}
			if len(r.frame.Audio) == 0 {
				if r.frame.Final {
					return Chunk{}, io.EOF
				}
				continue
			}
			return Chunk{Data: r.frame.Audio, MimeType: r.frame.MimeType}, nil
		}
	}
}

// Close aborts the stream
func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	return err
}
