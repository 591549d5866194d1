//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Name identifies the backend
func (p *PortAudio) Name() string { return "portaudio" }

// DefaultSampleRate reports that PortAudio is unavailable
func (p *PortAudio) DefaultSampleRate() (int, error) {
	return 0, errPortAudioDisabled
}

// Open reports that PortAudio is unavailable
func (p *PortAudio) Open(cfg Config, fill FillFunc, onError ErrorFunc) error {
	return errPortAudioDisabled
}

// Close is a no-op
func (p *PortAudio) Close() error {
	return nil
}
