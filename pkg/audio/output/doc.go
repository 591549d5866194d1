// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface and malgo, oto, PortAudio and null backends
// Package output provides callback-driven mono audio outputs.
//
// Every backend pulls frames from a FillFunc on its own audio thread and
// reports device failures through an ErrorFunc. Close is synchronous: once it
// returns the fill function is no longer running.
//
// Supported backends:
//   - malgo (miniaudio): the default, a true data callback
//   - oto: pull-based io.Reader player
//   - portaudio: build with -tags portaudio
//   - null: a ticker-driven device for headless runs and tests
//
// Example:
//
//	out, err := output.New("malgo")
//	rate, err := out.DefaultSampleRate()
//	err = out.Open(output.Config{SampleRate: rate, BitDepth: 32}, fill, onError)
//	defer out.Close()
package output
