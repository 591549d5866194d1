// ABOUTME: Error values returned by the oscillator
// ABOUTME: Range and device errors checked with errors.Is and errors.As
package oscillator

import (
	"errors"
	"fmt"

	"github.com/barosc/barosc-go/pkg/waveform"
)

var (
	// ErrOutOfRange is returned when an amplitude or frequency falls outside
	// its allowed range. The stored value is left unchanged.
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvalidWaveType is returned for wave types outside the closed set
	ErrInvalidWaveType = waveform.ErrInvalidWaveType

	// ErrDevice matches every *DeviceError
	ErrDevice = errors.New("audio device error")

	// ErrClosed is returned by Start after Close
	ErrClosed = errors.New("oscillator closed")
)

// DeviceError reports a failure of the audio subsystem. When it surfaces
// during playback the oscillator has already gone idle; Start may be called
// again.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("audio device error: %v", e.Err)
	}
	return fmt.Sprintf("audio device error during %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is reports ErrDevice as a match
func (e *DeviceError) Is(target error) bool {
	return target == ErrDevice
}
