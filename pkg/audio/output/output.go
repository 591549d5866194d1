// ABOUTME: Audio output interface definition
// ABOUTME: Common callback-driven interface for audio playback backends
package output

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultBufferFrames is the period requested when Config.BufferFrames is 0
const DefaultBufferFrames = 512

var (
	// ErrDeviceStopped is reported when the device stops without Close
	ErrDeviceStopped = errors.New("audio device stopped unexpectedly")

	// ErrNotOpen is returned by operations that need an open stream
	ErrNotOpen = errors.New("output not opened")

	// ErrAlreadyOpen is returned when Open is called twice without Close
	ErrAlreadyOpen = errors.New("output already opened")
)

// FillFunc renders len(out) mono frames. It runs on the audio thread and
// must not block or allocate.
type FillFunc func(out []float32)

// ErrorFunc receives failures reported by the audio subsystem while the
// stream runs. It may be called from the audio thread and must not block.
type ErrorFunc func(err error)

// Config describes the stream to open
type Config struct {
	SampleRate   int
	BitDepth     int // 16, 24 or 32 (float); backends may substitute
	BufferFrames int // requested period size, 0 for the default
}

func (c Config) bufferFrames() int {
	if c.BufferFrames > 0 {
		return c.BufferFrames
	}
	return DefaultBufferFrames
}

// Output represents a mono audio output device driven by a fill callback
type Output interface {
	// Name identifies the backend
	Name() string

	// DefaultSampleRate queries the native rate of the default device
	DefaultSampleRate() (int, error)

	// Open creates and starts a stream that pulls frames from fill
	Open(cfg Config, fill FillFunc, onError ErrorFunc) error

	// Close stops and releases the stream. Once it returns no fill call is
	// in flight and none will follow.
	Close() error
}

// Backends lists the names accepted by New
var Backends = []string{"malgo", "oto", "portaudio", "null"}

// New creates an output backend by name
func New(name string) (Output, error) {
	switch strings.ToLower(name) {
	case "", "malgo":
		return NewMalgo(), nil
	case "oto":
		return NewOto(), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "null":
		return NewNull(0), nil
	}
	return nil, fmt.Errorf("unknown output backend: %q (supported: %s)", name, strings.Join(Backends, ", "))
}
