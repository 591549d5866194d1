// ABOUTME: Helpers shared by the device backends
// ABOUTME: Chunked PCM rendering into fixed scratch and a stalled-stream watchdog
package output

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/barosc/barosc-go/pkg/audio"
)

// minStallInterval bounds how quickly a quiet stream is declared stalled
const minStallInterval = 500 * time.Millisecond

// renderPCM pulls frames mono frames from fill and encodes them into dst at
// bitDepth. Requests larger than scratch are rendered in several fill calls,
// so the device can ask for any period without an allocation. It returns the
// number of bytes written.
func renderPCM(dst []byte, frames int, scratch []float32, bitDepth int, fill FillFunc) int {
	written := 0
	for frames > 0 {
		n := min(frames, len(scratch))
		samples := scratch[:n]
		fill(samples)
		written += audio.Encode(dst[written:], samples, bitDepth, 1)
		frames -= n
	}
	return written
}

// watchdog reports ErrDeviceStopped when a stream's callbacks stop arriving
// while it is supposed to be running. Backends without a stop notification
// use it to surface device loss.
type watchdog struct {
	beats atomic.Uint64
	done  chan struct{}
	wg    sync.WaitGroup
}

// stallInterval allows twenty periods of silence, and never less than
// minStallInterval
func stallInterval(cfg Config) time.Duration {
	if cfg.SampleRate <= 0 {
		return minStallInterval
	}
	period := time.Duration(float64(cfg.bufferFrames()) / float64(cfg.SampleRate) * float64(time.Second))
	return max(20*period, minStallInterval)
}

// beat records one callback. It is safe on the audio thread.
func (w *watchdog) beat() {
	w.beats.Add(1)
}

func (w *watchdog) start(interval time.Duration, onError ErrorFunc) {
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.run(interval, w.done, onError)
}

func (w *watchdog) run(interval time.Duration, done <-chan struct{}, onError ErrorFunc) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := w.beats.Load()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		beats := w.beats.Load()
		if beats == last {
			if onError != nil {
				onError(ErrDeviceStopped)
			}
			return
		}
		last = beats
	}
}

// stop ends the watch and waits for it; it is a no-op if never started
func (w *watchdog) stop() {
	if w.done == nil {
		return
	}
	close(w.done)
	w.wg.Wait()
	w.done = nil
}
