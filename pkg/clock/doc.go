// ABOUTME: Sample clock package for block-based synthesis
// ABOUTME: Keeps the running sample index that gives each block its time offset
// Package clock provides SampleClock, the monotonically advancing sample
// index behind phase-continuous block synthesis.
//
// Successive blocks handed out by a SampleClock form one uninterrupted index
// walking up from zero, sliced into blocks of whatever size the audio
// subsystem asks for.
//
// Example:
//
//	c := clock.New(44100)
//	times := make([]float64, 512)
//	c.Next(times) // times[i] = i / 44100
//	c.Next(times) // times[i] = (512 + i) / 44100
package clock
