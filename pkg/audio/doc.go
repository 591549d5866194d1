// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and float sample to PCM conversions
// Package audio provides the output format description and sample
// conversions used by the output backends.
//
// Oscillator blocks are produced as float samples in [-1, 1]. Backends that
// need integer PCM convert them with FloatToInt16 / FloatToInt24 or encode a
// whole block with Encode:
//
//	format := audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 16}
//	buf := make([]byte, frames*format.BytesPerFrame())
//	n := audio.Encode(buf, samples, format.BitDepth, format.Channels)
package audio
