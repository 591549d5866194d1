// ABOUTME: Block generators for sine, square and noise signals
// ABOUTME: Generator dispatches a wave type onto pre-sized scratch buffers
package waveform

import (
	"errors"
	"math"
	"math/rand/v2"
)

// ErrBlockSize is returned when the output block does not match the time block
var ErrBlockSize = errors.New("output block length does not match time block")

// SineBlock writes amplitude*sin(2*pi*frequency*t) for every t in times into dst.
func SineBlock(dst, times []float64, amplitude, frequency float64) {
	w := 2 * math.Pi * frequency
	for i, t := range times {
		dst[i] = amplitude * math.Sin(w*t)
	}
}

// SquareBlock derives a square wave from the sine of the same block: positive
// samples become +amplitude, negative ones -amplitude and exact zeros stay 0.
func SquareBlock(dst, times []float64, amplitude, frequency float64) {
	SineBlock(dst, times, amplitude, frequency)
	for i, v := range dst {
		switch {
		case v > 0:
			dst[i] = amplitude
		case v < 0:
			dst[i] = -amplitude
		}
	}
}

// WhiteNoiseBlock fills dst with independent uniform draws in [-amplitude, amplitude).
func WhiteNoiseBlock(dst []float64, rng *rand.Rand, amplitude float64) {
	for i := range dst {
		dst[i] = amplitude * (2*rng.Float64() - 1)
	}
}

// Generator owns the random source and FFT scratch used by the noise shapes.
// A Generator is not safe for concurrent use; the audio callback owns one.
type Generator struct {
	rng  *rand.Rand
	pink *PinkShaper
}

// NewGenerator creates a generator whose noise sequence is derived from seed
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		pink: NewPinkShaper(),
	}
}

// Prepare sizes the scratch buffers for blocks of up to frames samples so
// that Generate does not allocate for that block length.
func (g *Generator) Prepare(frames int) {
	g.pink.Prepare(frames)
}

// Generate writes one block of the requested shape into dst. frequency is
// ignored by the noise shapes. An unknown wave type leaves dst untouched and
// returns ErrInvalidWaveType.
func (g *Generator) Generate(w WaveType, times, dst []float64, amplitude, frequency float64) error {
	if len(dst) != len(times) {
		return ErrBlockSize
	}

	switch w {
	case Sine:
		SineBlock(dst, times, amplitude, frequency)
	case Square:
		SquareBlock(dst, times, amplitude, frequency)
	case WhiteNoise:
		WhiteNoiseBlock(dst, g.rng, amplitude)
	case PinkNoise:
		WhiteNoiseBlock(dst, g.rng, amplitude)
		g.pink.Shape(dst)
	default:
		return ErrInvalidWaveType
	}
	return nil
}
