//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback output using PortAudio
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	fill     FillFunc
	watchdog watchdog
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Name identifies the backend
func (p *PortAudio) Name() string { return "portaudio" }

// DefaultSampleRate reports the default output device's native rate
func (p *PortAudio) DefaultSampleRate() (int, error) {
	if err := portaudio.Initialize(); err != nil {
		return 0, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return 0, fmt.Errorf("failed to query default output device: %w", err)
	}
	return int(dev.DefaultSampleRate), nil
}

// Open initializes PortAudio and starts a float32 mono stream
func (p *PortAudio) Open(cfg Config, fill FillFunc, onError ErrorFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return ErrAlreadyOpen
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.fill = fill
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(cfg.SampleRate), cfg.bufferFrames(), func(out []float32) {
		p.watchdog.beat()
		p.fill(out)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	// PortAudio has no stop notification; a stream whose callbacks dry up
	// has lost its device.
	p.watchdog.start(stallInterval(cfg), onError)
	log.Printf("Audio output initialized: %dHz, mono, float (portaudio)", cfg.SampleRate)
	return nil
}

// Close stops the stream; Pa_StopStream waits for the callback to finish
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	p.watchdog.stop()
	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	p.stream = nil
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
