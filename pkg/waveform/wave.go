// ABOUTME: Wave type enumeration for the oscillator
// ABOUTME: Closed set of shapes with name parsing and validation
package waveform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWaveType is returned for any value outside the defined shapes
var ErrInvalidWaveType = errors.New("invalid wave type")

// WaveType selects the signal shape
type WaveType int

const (
	Sine WaveType = iota
	Square
	WhiteNoise
	PinkNoise
)

// WaveTypes lists every shape in menu order
var WaveTypes = []WaveType{Sine, Square, WhiteNoise, PinkNoise}

// Valid reports whether w is one of the defined shapes
func (w WaveType) Valid() bool {
	switch w {
	case Sine, Square, WhiteNoise, PinkNoise:
		return true
	}
	return false
}

func (w WaveType) String() string {
	switch w {
	case Sine:
		return "sine_wave"
	case Square:
		return "square_wave"
	case WhiteNoise:
		return "white_noise"
	case PinkNoise:
		return "pink_noise"
	}
	return fmt.Sprintf("WaveType(%d)", int(w))
}

// Title returns the human readable menu label
func (w WaveType) Title() string {
	switch w {
	case Sine:
		return "Sine Wave"
	case Square:
		return "Square Wave"
	case WhiteNoise:
		return "White Noise"
	case PinkNoise:
		return "Pink Noise"
	}
	return w.String()
}

// ParseWaveType converts a short or long shape name to a WaveType
func ParseWaveType(name string) (WaveType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sine_wave":
		return Sine, nil
	case "square", "square_wave":
		return Square, nil
	case "white", "white_noise":
		return WhiteNoise, nil
	case "pink", "pink_noise":
		return PinkNoise, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWaveType, name)
}

// MarshalText implements encoding.TextMarshaler
func (w WaveType) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWaveType, int(w))
	}
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (w *WaveType) UnmarshalText(text []byte) error {
	parsed, err := ParseWaveType(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
