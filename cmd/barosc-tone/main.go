// ABOUTME: Plays each wave type in turn on the default output
// ABOUTME: Quick check that the audio chain and every generator work
package main

import (
	"flag"
	"log"
	"strings"
	"time"

	"github.com/barosc/barosc-go/pkg/audio/output"
	"github.com/barosc/barosc-go/pkg/oscillator"
	"github.com/barosc/barosc-go/pkg/waveform"
)

var (
	backend   = flag.String("backend", "malgo", "Audio backend ("+strings.Join(output.Backends, ", ")+")")
	waves     = flag.String("waves", "sine,square,white,pink", "Comma-separated wave types to play")
	amplitude = flag.Float64("amplitude", 0.5, "Amplitude (0.0 - 1.0)")
	frequency = flag.Float64("frequency", 440, "Frequency in Hz (20 - 20000)")
	duration  = flag.Duration("duration", 500*time.Millisecond, "How long each wave plays")
)

func main() {
	flag.Parse()

	var sequence []waveform.WaveType
	for _, name := range strings.Split(*waves, ",") {
		w, err := waveform.ParseWaveType(name)
		if err != nil {
			log.Fatalf("Invalid -waves: %v", err)
		}
		sequence = append(sequence, w)
	}

	out, err := output.New(*backend)
	if err != nil {
		log.Fatalf("Failed to select audio backend: %v", err)
	}

	for _, w := range sequence {
		osc, err := oscillator.New(oscillator.Config{
			Output:    out,
			WaveType:  w,
			Amplitude: *amplitude,
			Frequency: *frequency,
		})
		if err != nil {
			log.Fatalf("Failed to create oscillator: %v", err)
		}
		log.Printf("%s", osc)

		if err := osc.Start(); err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		time.Sleep(*duration)
		osc.Close()

		if err := osc.Err(); err != nil {
			log.Fatalf("Playback failed: %v", err)
		}
	}
}
