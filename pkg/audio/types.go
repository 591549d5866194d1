// ABOUTME: Audio type definitions
// ABOUTME: Defines output formats and float to PCM sample conversion
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// Supported output bit depths. 32 means IEEE float.
	BitDepth16    = 16
	BitDepth24    = 24
	BitDepthFloat = 32
)

// Format describes an output stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Validate checks the format can be rendered by Encode
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	switch f.BitDepth {
	case BitDepth16, BitDepth24, BitDepthFloat:
		return nil
	}
	return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", f.BitDepth)
}

// BytesPerSample returns the encoded size of one sample of one channel
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// BytesPerFrame returns the encoded size of one frame across all channels
func (f Format) BytesPerFrame() int {
	return f.BytesPerSample() * f.Channels
}

// Clamp limits a float sample to [-1, 1]
func Clamp(sample float32) float32 {
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}

// FloatToInt16 converts a float sample to 16-bit PCM with clipping
func FloatToInt16(sample float32) int16 {
	return int16(math.Round(float64(Clamp(sample)) * math.MaxInt16))
}

// FloatToInt24 converts a float sample to 24-bit PCM (in an int32) with clipping
func FloatToInt24(sample float32) int32 {
	return int32(math.Round(float64(Clamp(sample)) * Max24Bit))
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// Encode writes mono samples into dst as little-endian PCM of the given bit
// depth, repeating each sample across channels. It returns the number of
// bytes written and never allocates. dst must hold len(samples) frames.
func Encode(dst []byte, samples []float32, bitDepth, channels int) int {
	n := 0
	for _, s := range samples {
		for ch := 0; ch < channels; ch++ {
			switch bitDepth {
			case BitDepth16:
				binary.LittleEndian.PutUint16(dst[n:], uint16(FloatToInt16(s)))
				n += 2
			case BitDepth24:
				b := SampleTo24Bit(FloatToInt24(s))
				dst[n], dst[n+1], dst[n+2] = b[0], b[1], b[2]
				n += 3
			case BitDepthFloat:
				binary.LittleEndian.PutUint32(dst[n:], math.Float32bits(Clamp(s)))
				n += 4
			}
		}
	}
	return n
}
