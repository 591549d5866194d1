// ABOUTME: Waveform synthesis package for calibration tones
// ABOUTME: Maps a block of sample times to a block of samples per wave shape
// Package waveform synthesizes calibration signals block by block.
//
// Four shapes are supported: sine, square, white noise and pink noise.
// Every generator works on a caller-supplied block of sample times and
// writes into a caller-supplied output block, so the hot path never
// allocates once a Generator has been prepared for the block size.
//
// Example:
//
//	gen := waveform.NewGenerator(1)
//	gen.Prepare(512)
//	err := gen.Generate(waveform.Sine, times, out, 0.5, 440)
package waveform
