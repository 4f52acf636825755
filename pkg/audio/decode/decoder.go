// ABOUTME: Decoder interface and tagged decode result
// ABOUTME: Common types shared by every container decoder
package decode

import "github.com/Resonate-Protocol/resonate-studio/pkg/audio"

// Decoder decodes one self-contained container blob
type Decoder interface {
	Decode(data []byte) (*audio.Buffer, error)
}

// DecoderFunc adapts a function to the Decoder interface
type DecoderFunc func(data []byte) (*audio.Buffer, error)

// Decode calls f(data)
func (f DecoderFunc) Decode(data []byte) (*audio.Buffer, error) {
	return f(data)
}

// Kind tags how a chunk was decoded
type Kind int

const (
	KindFailed Kind = iota
	KindContainer
	KindRawPCM
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindRawPCM:
		return "raw_pcm"
	default:
		return "failed"
	}
}

// Result is the outcome of decoding one chunk
type Result struct {
	Kind      Kind
	Container Container
	Buffer    *audio.Buffer

	// Err is set when Kind is KindFailed. When a container decode failed but
	// the raw fallback worked, Err holds the container error for logging.
	Err error
}

// OK reports whether a buffer was produced
func (r Result) OK() bool {
	return r.Kind != KindFailed && r.Buffer != nil
}
