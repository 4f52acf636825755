// ABOUTME: Container signature detection
// ABOUTME: Picks a decoder from the first bytes of a chunk
package decode

import "bytes"

// Container identifies an audio container format
type Container int

const (
	ContainerNone Container = iota
	ContainerWAV
	ContainerMP3
	ContainerFLAC
	ContainerOgg
)

func (c Container) String() string {
	switch c {
	case ContainerWAV:
		return "wav"
	case ContainerMP3:
		return "mp3"
	case ContainerFLAC:
		return "flac"
	case ContainerOgg:
		return "ogg"
	default:
		return "none"
	}
}

// Sniff returns the container indicated by data's signature bytes
func Sniff(data []byte) Container {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ContainerWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ContainerFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		return ContainerOgg
	case bytes.HasPrefix(data, []byte("ID3")):
		return ContainerMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return ContainerMP3
	}
	return ContainerNone
}
