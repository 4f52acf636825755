// ABOUTME: Google Translate TTS provider
// ABOUTME: Synthesizes one MP3 per sentence and streams each file as a chunk
package provider

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Duckduckgot/gtts"

	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// GTTS needs no credentials and serves as the fallback provider
type GTTS struct {
	// TempDir is where sentence files are written, os.TempDir when empty
	TempDir string
}

// NewGTTS creates the fallback provider
func NewGTTS() *GTTS {
	return &GTTS{}
}

// Open prepares a per-request folder. Synthesis happens lazily in Next.
func (g *GTTS) Open(ctx context.Context, req Request) (Stream, error) {
	if req.Cloning() {
		return nil, studioerr.ProviderRejected.New("gtts does not support voice cloning")
	}
	sentences := SplitSentences(req.Text)
	if len(sentences) == 0 {
		return nil, studioerr.ProviderRejected.New("nothing to synthesize")
	}

	dir, err := os.MkdirTemp(g.TempDir, "studio-gtts-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create gtts folder: %w", err)
	}

	return &gttsStream{
		speech:    gtts.Speech{Folder: dir, Language: Language(req.Voice)},
		dir:       dir,
		sentences: sentences,
	}, nil
}

type gttsStream struct {
	speech    gtts.Speech
	dir       string
	sentences []string
	next      int
}

func (s *gttsStream) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	if s.next >= len(s.sentences) {
		return Chunk{}, io.EOF
	}

	name := fmt.Sprintf("sentence-%03d", s.next)
	path, err := s.speech.CreateSpeechFile(s.sentences[s.next], name)
	if err != nil {
		return Chunk{}, studioerr.ProviderFailure.Wrap(err, "gtts synthesis failed")
	}
	s.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return Chunk{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	os.Remove(path)

	return Chunk{Data: data, MimeType: "audio/mpeg"}, nil
}

func (s *gttsStream) Close() error {
	return os.RemoveAll(s.dir)
}
