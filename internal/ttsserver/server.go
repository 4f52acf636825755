// ABOUTME: Local text-to-speech server speaking the studio websocket protocol
// ABOUTME: Synthesizes paced tone chunks per sentence and advertises itself over mDNS
package ttsserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-studio/internal/discovery"
	"github.com/Resonate-Protocol/resonate-studio/internal/provider"
)

// Config holds server configuration
type Config struct {
	Port int
	Name string

	// APIKey is the required bearer token. Any token is accepted when empty.
	APIKey string

	EnableMDNS bool
	Framing    string
	Pace       time.Duration
}

// Server serves synthesis requests on /tts
type Server struct {
	config   Config
	log      *slog.Logger
	upgrader websocket.Upgrader
	tone     *provider.Tone

	httpServer  *http.Server
	mux         *http.ServeMux
	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// New creates a new server instance
func New(config Config) *Server {
	tone := provider.NewTone()
	if config.Framing != "" {
		tone.Framing = config.Framing
	}

	s := &Server{
		config: config,
		log:    slog.With("component", "ttsserver"),
		tone:   tone,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Non-browser clients only send no Origin header
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(discovery.DefaultPath, s.handleTTS)
	return s
}

// Handler returns the HTTP handler serving the protocol
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	s.log.Info("tts server starting", "name", s.config.Name, "port", s.config.Port)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			s.log.Warn("failed to start mDNS advertisement", "error", err)
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	s.log.Info("websocket server listening", "addr", addr, "path", discovery.DefaultPath)

	var serverErr error
	select {
	case <-s.stopChan:
		s.log.Info("tts server shutting down")
	case err := <-errChan:
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Warn("http server shutdown error", "error", err)
	}

	s.wg.Wait()
	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Server) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return s.config.APIKey == "" || token == s.config.APIKey
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	shutdown := s.isShutdown
	s.shutdownMu.RUnlock()
	if shutdown {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	var req provider.WireRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.log.Warn("error reading request", "error", err)
		return
	}

	text := requestText(req)
	if strings.TrimSpace(text) == "" {
		conn.WriteJSON(provider.WireFrame{Error: "empty request"})
		return
	}

	chunks, err := s.tone.Chunks(provider.Request{Text: text})
	if err != nil {
		conn.WriteJSON(provider.WireFrame{Error: err.Error()})
		return
	}
	s.log.Info("synthesizing", "remote", r.RemoteAddr, "voice", req.Voice, "chunks", len(chunks))

	// A client that closes early ends the stream
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i, c := range chunks {
		if i > 0 && s.config.Pace > 0 {
			select {
			case <-time.After(s.config.Pace):
			case <-closed:
				return
			case <-s.stopChan:
				return
			}
		}
		frame := provider.WireFrame{Audio: c.Data, MimeType: c.MimeType, Final: i == len(chunks)-1}
		if err := conn.WriteJSON(frame); err != nil {
			s.log.Debug("client went away", "error", err)
			return
		}
	}

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
	}
}

var ssmlSentenceBreaks = strings.NewReplacer(
	`<break time="900ms"/>`, ". ",
	`<break time="400ms"/>`, ", ",
)

// requestText recovers plain text from an SSML document or a cloning prompt
func requestText(req provider.WireRequest) string {
	if req.SSML != "" {
		return stripTags(ssmlSentenceBreaks.Replace(req.SSML))
	}
	if _, quoted, ok := strings.Cut(req.Prompt, "Text: "); ok {
		if text, err := strconv.Unquote(strings.TrimSpace(quoted)); err == nil {
			return text
		}
		return quoted
	}
	return req.Prompt
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
