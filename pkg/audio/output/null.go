// ABOUTME: Null audio output for headless runs and tests
// ABOUTME: Drives the fill callback from a ticker at the stream's real-time pace
package output

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// NullDefaultSampleRate is the rate a Null output reports when created with 0
const NullDefaultSampleRate = 48000

// Null is an output with no device behind it. It calls the fill function
// once per period from its own goroutine and discards the samples.
type Null struct {
	sampleRate int

	mu       sync.Mutex
	done     chan struct{}
	failures chan error
	wg       sync.WaitGroup

	frames atomic.Uint64
	blocks atomic.Uint64
}

// NewNull creates a null output reporting sampleRate as its native rate
func NewNull(sampleRate int) *Null {
	if sampleRate <= 0 {
		sampleRate = NullDefaultSampleRate
	}
	return &Null{sampleRate: sampleRate}
}

// Name identifies the backend
func (n *Null) Name() string { return "null" }

// DefaultSampleRate returns the configured rate
func (n *Null) DefaultSampleRate() (int, error) {
	return n.sampleRate, nil
}

// Open starts the pacing goroutine
func (n *Null) Open(cfg Config, fill FillFunc, onError ErrorFunc) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.done != nil {
		return ErrAlreadyOpen
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = n.sampleRate
	}
	frames := cfg.bufferFrames()
	period := time.Duration(float64(frames) / float64(rate) * float64(time.Second))

	n.done = make(chan struct{})
	n.failures = make(chan error, 1)
	n.wg.Add(1)
	go n.run(period, make([]float32, frames), fill, onError, n.done, n.failures)

	log.Printf("Audio output initialized: %dHz, mono, %d frames/period (null)", rate, frames)
	return nil
}

func (n *Null) run(period time.Duration, buf []float32, fill FillFunc, onError ErrorFunc, done <-chan struct{}, failures <-chan error) {
	defer n.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case err := <-failures:
			// the simulated device is gone; stop pulling
			if onError != nil {
				onError(err)
			}
			return
		case <-ticker.C:
			fill(buf)
			n.frames.Add(uint64(len(buf)))
			n.blocks.Add(1)
		}
	}
}

// Fail simulates the device disappearing mid-stream. The error is reported
// through the stream's ErrorFunc and no further fills happen.
func (n *Null) Fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failures == nil {
		return
	}
	select {
	case n.failures <- err:
	default:
	}
}

// Close stops the pacing goroutine and waits for it
func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.done == nil {
		return nil
	}
	close(n.done)
	n.wg.Wait()
	n.done = nil
	n.failures = nil
	return nil
}

// Frames returns the number of frames rendered so far
func (n *Null) Frames() uint64 {
	return n.frames.Load()
}

// Blocks returns the number of fill calls made so far
func (n *Null) Blocks() uint64 {
	return n.blocks.Load()
}
