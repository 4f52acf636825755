// ABOUTME: Audio device interface definition
// ABOUTME: Devices pull rendered frames from a Graph in real time
package output

import "fmt"

// Device drives a Graph's clock by consuming its frames
type Device interface {
	// Start begins pulling frames from g
	Start(g *Graph) error

	// Close releases device resources
	Close() error
}

// NewDevice returns the device for a backend name: "oto", "speaker" or "null"
func NewDevice(backend string) (Device, error) {
	switch backend {
	case "oto", "":
		return NewOto(), nil
	case "speaker", "beep":
		return NewSpeaker(), nil
	case "null", "none":
		return NewNull(), nil
	}
	return nil, fmt.Errorf("unknown audio backend: %s", backend)
}
