// ABOUTME: Entry point for the Bar Osc calibration oscillator
// ABOUTME: Parses CLI flags, opens the audio output and runs the menu and remote control
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/barosc/barosc-go/internal/calibrate"
	"github.com/barosc/barosc-go/internal/server"
	"github.com/barosc/barosc-go/internal/ui"
	"github.com/barosc/barosc-go/internal/version"
	"github.com/barosc/barosc-go/pkg/audio/output"
	"github.com/barosc/barosc-go/pkg/oscillator"
	"github.com/barosc/barosc-go/pkg/waveform"
)

var (
	backend      = flag.String("backend", "malgo", "Audio backend ("+strings.Join(output.Backends, ", ")+")")
	sampleRate   = flag.Int("sample-rate", 0, "Stream sample rate (default: the output device's rate)")
	bufferFrames = flag.Int("buffer-frames", output.DefaultBufferFrames, "Frames per audio callback")
	bitDepth     = flag.Int("bit-depth", 32, "Output sample format: 16, 24 or 32 (float)")
	wave         = flag.String("wave", "sine", "Initial wave type (sine, square, white, pink)")
	amplitude    = flag.Float64("amplitude", oscillator.DefaultAmplitude, "Initial amplitude (0.0 - 1.0)")
	frequency    = flag.Float64("frequency", oscillator.DefaultFrequency, "Initial frequency in Hz (20 - 20000)")
	port         = flag.Int("port", server.DefaultPort, "Remote control port")
	name         = flag.String("name", "", "Friendly name for remote control (default: hostname-barosc)")
	noRemote     = flag.Bool("no-remote", false, "Disable the remote control server")
	noMDNS       = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI        = flag.Bool("no-tui", false, "Disable the menu and start playing immediately")
	logFile      = flag.String("log-file", "barosc.log", "Log file path")
	debug        = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	oscName := *name
	if oscName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		oscName = fmt.Sprintf("%s-barosc", hostname)
	}

	waveType, err := waveform.ParseWaveType(*wave)
	if err != nil {
		log.Fatalf("Invalid -wave: %v", err)
	}

	out, err := output.New(*backend)
	if err != nil {
		log.Fatalf("Failed to select audio backend: %v", err)
	}

	log.Printf("Starting %s %s: %s (backend: %s)", version.Product, version.Version, oscName, out.Name())

	events := ui.NewEvents()
	var srv *server.Server

	osc, err := oscillator.New(oscillator.Config{
		Output:       out,
		SampleRate:   *sampleRate,
		BitDepth:     *bitDepth,
		BufferFrames: *bufferFrames,
		WaveType:     waveType,
		Amplitude:    *amplitude,
		Frequency:    *frequency,
		OnStateChange: func(state oscillator.State) {
			events.Send(ui.StateMsg{State: state})
			if srv != nil {
				srv.BroadcastStatus()
			}
		},
		OnError: func(err error) {
			log.Printf("Oscillator error: %v", err)
			events.Send(ui.ErrorMsg{Err: err})
			if srv != nil {
				srv.BroadcastStatus()
			}
		},
	})
	if err != nil {
		log.Fatalf("Failed to create oscillator: %v", err)
	}
	defer osc.Close()

	log.Printf("%s", osc)

	if !*noRemote {
		srv = server.New(server.Config{
			Port:       *port,
			Name:       oscName,
			EnableMDNS: !*noMDNS,
			Debug:      *debug,
		}, osc)

		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("Remote control unavailable: %v", err)
			}
		}()
		defer srv.Stop()
	}

	if useTUI {
		walker := calibrate.NewWalker(osc)
		defer walker.Cancel()

		if _, err := ui.Run(osc, walker, events).Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
		log.Printf("Oscillator stopped")
		return
	}

	if err := osc.Start(); err != nil {
		log.Fatalf("Failed to start oscillator: %v", err)
	}
	log.Printf("Playing; press Ctrl-C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received %v signal, shutting down", sig)
}
