// ABOUTME: Tests for wave type parsing and naming
// ABOUTME: Verifies the closed set of shapes rejects unknown names
package waveform

import (
	"errors"
	"testing"
)

func TestParseWaveType(t *testing.T) {
	tests := []struct {
		input    string
		expected WaveType
	}{
		{"sine", Sine},
		{"sine_wave", Sine},
		{"SQUARE", Square},
		{"square_wave", Square},
		{"white", WhiteNoise},
		{" white_noise ", WhiteNoise},
		{"pink", PinkNoise},
		{"Pink_Noise", PinkNoise},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseWaveType(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestParseWaveTypeRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "triangle", "sawtooth", "brown_noise", "sinewave"} {
		if _, err := ParseWaveType(name); !errors.Is(err, ErrInvalidWaveType) {
			t.Errorf("%q: expected ErrInvalidWaveType, got %v", name, err)
		}
	}
}

func TestWaveTypeValid(t *testing.T) {
	for _, w := range WaveTypes {
		if !w.Valid() {
			t.Errorf("%v should be valid", w)
		}
	}
	for _, w := range []WaveType{-1, 4, 100} {
		if w.Valid() {
			t.Errorf("%d should be invalid", int(w))
		}
	}
}

func TestWaveTypeStringRoundTrip(t *testing.T) {
	for _, w := range WaveTypes {
		parsed, err := ParseWaveType(w.String())
		if err != nil {
			t.Fatalf("%v: %v", w, err)
		}
		if parsed != w {
			t.Errorf("expected %v, got %v", w, parsed)
		}
	}
}

func TestWaveTypeMarshalTextInvalid(t *testing.T) {
	if _, err := WaveType(7).MarshalText(); !errors.Is(err, ErrInvalidWaveType) {
		t.Errorf("expected ErrInvalidWaveType, got %v", err)
	}
}
