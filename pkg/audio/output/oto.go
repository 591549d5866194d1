// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds a persistent oto player from the fill callback via io.Reader
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/barosc/barosc-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// OtoDefaultSampleRate is reported by Oto.DefaultSampleRate before a
// context exists; oto has no device query.
const OtoDefaultSampleRate = 44100

// oto allows a single context per process
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// Oto output implementation using oto library
type Oto struct {
	mu     sync.Mutex
	player *oto.Player
	reader *otoReader
	done   chan struct{}
	wg     sync.WaitGroup
}

// otoReader adapts a FillFunc to the io.Reader oto pulls from
type otoReader struct {
	mu      sync.Mutex // held by Read; Close takes it to wait out a fill
	closed  bool
	fill    FillFunc
	format  audio.Format
	samples []float32
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

// Name identifies the backend
func (o *Oto) Name() string { return "oto" }

// DefaultSampleRate returns the rate of the process-wide context, or
// OtoDefaultSampleRate when none has been created yet
func (o *Oto) DefaultSampleRate() (int, error) {
	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		return otoFormat.SampleRate, nil
	}
	return OtoDefaultSampleRate, nil
}

// Open creates (or reuses) the oto context and starts a player
func (o *Oto) Open(cfg Config, fill FillFunc, onError ErrorFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return ErrAlreadyOpen
	}

	format := audio.Format{SampleRate: cfg.SampleRate, Channels: 1, BitDepth: cfg.BitDepth}
	switch format.BitDepth {
	case audio.BitDepth16, audio.BitDepthFloat:
	case 0:
		format.BitDepth = audio.BitDepthFloat
	default:
		log.Printf("Warning: oto does not support %d-bit output, using float", format.BitDepth)
		format.BitDepth = audio.BitDepthFloat
	}
	if err := format.Validate(); err != nil {
		return err
	}

	ctx, err := otoContext(format)
	if err != nil {
		return err
	}

	frames := cfg.bufferFrames()
	o.reader = &otoReader{
		fill:    fill,
		format:  format,
		samples: make([]float32, frames*4),
	}

	o.player = ctx.NewPlayer(o.reader)
	o.player.SetBufferSize(frames * format.BytesPerFrame())
	o.player.Play()

	o.done = make(chan struct{})
	o.wg.Add(1)
	go o.watch(o.player, o.done, onError)

	log.Printf("Audio output initialized: %dHz, mono, %d-bit (oto)", format.SampleRate, format.BitDepth)

	return nil
}

// watch polls the player for an asynchronous device error
func (o *Oto) watch(player *oto.Player, done <-chan struct{}, onError ErrorFunc) {
	defer o.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := player.Err(); err != nil {
				if onError != nil {
					onError(fmt.Errorf("oto player failed: %w", err))
				}
				return
			}
		}
	}
}

// Read renders whole frames into p
func (r *otoReader) Read(p []byte) (int, error) {
	frameSize := r.format.BytesPerFrame()
	n := len(p) / frameSize

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		clear(p[:n*frameSize])
		return n * frameSize, nil
	}

	return renderPCM(p, n, r.samples, r.format.BitDepth, r.fill), nil
}

// Close stops the player and waits for any in-flight Read
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}

	close(o.done)
	o.wg.Wait()

	o.reader.mu.Lock()
	o.reader.closed = true
	o.reader.mu.Unlock()

	o.player.Pause()
	if err := o.player.Close(); err != nil {
		log.Printf("Warning: oto player close error: %v", err)
	}
	o.player = nil
	o.reader = nil
	return nil
}

// otoContext returns the process-wide context, creating it on first use
func otoContext(format audio.Format) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		// oto cannot be reinitialized with another format
		if otoFormat != format {
			return nil, fmt.Errorf("oto context already initialized at %dHz %d-bit", otoFormat.SampleRate, otoFormat.BitDepth)
		}
		return otoCtx, nil
	}

	sampleFormat := oto.FormatFloat32LE
	if format.BitDepth == audio.BitDepth16 {
		sampleFormat = oto.FormatSignedInt16LE
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: 1,
		Format:       sampleFormat,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoFormat = format
	return ctx, nil
}
