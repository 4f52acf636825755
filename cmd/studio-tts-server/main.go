// ABOUTME: Entry point for the local studio TTS server
// ABOUTME: Parses CLI flags and serves synthesized tone streams over websocket
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-studio/internal/logger"
	"github.com/Resonate-Protocol/resonate-studio/internal/provider"
	"github.com/Resonate-Protocol/resonate-studio/internal/ttsserver"
)

var (
	port    = flag.Int("port", 8928, "WebSocket server port")
	name    = flag.String("name", "", "Server friendly name (default: hostname-studio-tts)")
	apiKey  = flag.String("api-key", "", "Required bearer token (any token when empty)")
	logFile = flag.String("log-file", "studio-tts-server.log", "Log file path")
	debug   = flag.Bool("debug", false, "Enable debug logging")
	noMDNS  = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	framing = flag.String("framing", provider.FramingWAV, "Chunk framing (pcm or wav)")
	pace    = flag.Duration("pace", 200*time.Millisecond, "Delay between chunks")
)

func main() {
	flag.Parse()

	w, closer, err := logger.OpenFile(*logFile, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	level := "info"
	if *debug {
		level = "debug"
	}
	logger.Setup(w, level, "text")

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-studio-tts", hostname)
	}

	slog.Info("starting studio tts server", "name", serverName, "port", *port, "log_file", *logFile)

	srv := ttsserver.New(ttsserver.Config{
		Port:       *port,
		Name:       serverName,
		APIKey:     *apiKey,
		EnableMDNS: !*noMDNS,
		Framing:    *framing,
		Pace:       *pace,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("received signal, shutting down", "signal", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
