// ABOUTME: Spectral shaping of white noise into pink noise
// ABOUTME: Real FFT, 1/sqrt(k+1) bin weighting, inverse FFT per block
package waveform

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PinkShaper turns a block of white noise into pink noise by dividing the
// k-th real FFT bin by sqrt(k+1). Each block is shaped on its own, so the
// spectrum is not continuous across block edges.
//
// A single FFT is kept and resized in place for each block length. Once
// Prepare(n) has run, Shape does not allocate for any block of up to n
// samples.
type PinkShaper struct {
	fft     *fourier.FFT
	size    int // largest block the FFT work memory holds
	coeffs  []complex128
	weights []float64
}

// NewPinkShaper creates an empty shaper
func NewPinkShaper() *PinkShaper {
	return &PinkShaper{}
}

// Prepare allocates the FFT and scratch for blocks of up to n samples
func (p *PinkShaper) Prepare(n int) {
	if n < 2 {
		return
	}
	p.grow(n)
}

// Shape replaces block with its pink-weighted version in place
func (p *PinkShaper) Shape(block []float64) {
	n := len(block)
	if n < 2 {
		// A single sample only has a DC bin, whose weight is 1.
		return
	}

	if n > p.size {
		p.grow(n)
	}
	if p.fft.Len() != n {
		// gonum reuses the work memory when it is large enough.
		p.fft.Reset(n)
	}

	bins := n/2 + 1
	coeffs := p.fft.Coefficients(p.coeffs[:bins], block)
	for k := range coeffs {
		coeffs[k] *= complex(p.weights[k], 0)
	}
	p.fft.Sequence(block, coeffs)

	// gonum leaves the inverse transform unnormalized.
	inv := 1 / float64(n)
	for i := range block {
		block[i] *= inv
	}
}

func (p *PinkShaper) grow(n int) {
	if n <= p.size {
		return
	}
	p.fft = fourier.NewFFT(n)
	p.size = n

	bins := n/2 + 1
	p.coeffs = make([]complex128, bins)
	p.weights = make([]float64, bins)
	for k := range p.weights {
		p.weights[k] = 1 / math.Sqrt(float64(k)+1)
	}
}
