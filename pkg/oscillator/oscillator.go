// ABOUTME: Oscillator that streams generated waveforms to an audio output
// ABOUTME: Owns the stream lifecycle, the sample clock and the audio callback
package oscillator

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/barosc/barosc-go/internal/metrics"
	"github.com/barosc/barosc-go/pkg/audio/output"
	"github.com/barosc/barosc-go/pkg/clock"
	"github.com/barosc/barosc-go/pkg/waveform"
)

// minScratchFrames is the smallest render block prepared up front. Backends
// may deliver periods larger than requested; those are rendered in chunks.
const minScratchFrames = 4096

// Config holds oscillator configuration
type Config struct {
	Output       output.Output
	SampleRate   int // 0 queries the output's default device
	BitDepth     int
	BufferFrames int

	WaveType  waveform.WaveType
	Amplitude float64
	Frequency float64

	// Seed for the noise generator, 0 picks a random one
	Seed uint64

	// OnStateChange is called after every transition, outside any lock
	OnStateChange func(State)

	// OnError is called with a *DeviceError when the device fails while
	// playing. The oscillator is already idle when it runs.
	OnError func(error)
}

// Stats counts callback activity since construction
type Stats struct {
	Callbacks       uint64
	Frames          uint64
	SilentCallbacks uint64
}

// stream is the state of one Start..Stop session
type stream struct {
	faults chan error
	done   chan struct{}
}

// report hands a failure to the watcher without blocking
func (s *stream) report(err error) {
	select {
	case s.faults <- err:
	default:
	}
}

// Oscillator is the audio stream controller
type Oscillator struct {
	config     Config
	out        output.Output
	params     *Store
	sampleRate int

	// control side
	mu      sync.Mutex
	state   State
	current *stream
	lastErr error
	closed  bool

	// producer side; gate is held by the callback while it renders
	gate    sync.Mutex
	armed   atomic.Bool
	clock   *clock.SampleClock
	gen     *waveform.Generator
	times   []float64
	samples []float64

	callbacks atomic.Uint64
	frames    atomic.Uint64
	silent    atomic.Uint64
}

// New creates an idle oscillator. A zero Frequency selects 440 Hz, and when
// Amplitude is also zero it selects 0.5. When SampleRate is 0 the rate is
// read once from the output's default device.
func New(config Config) (*Oscillator, error) {
	if config.Output == nil {
		return nil, errors.New("oscillator requires an output")
	}
	if config.Frequency == 0 {
		config.Frequency = DefaultFrequency
		if config.Amplitude == 0 {
			config.Amplitude = DefaultAmplitude
		}
	}
	if config.BufferFrames <= 0 {
		config.BufferFrames = output.DefaultBufferFrames
	}
	if config.Seed == 0 {
		config.Seed = rand.Uint64()
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		rate, err := config.Output.DefaultSampleRate()
		if err != nil {
			return nil, &DeviceError{Op: "sample rate query", Err: err}
		}
		sampleRate = rate
	}

	params, err := NewStore(Parameters{
		WaveType:   config.WaveType,
		Amplitude:  config.Amplitude,
		Frequency:  config.Frequency,
		SampleRate: sampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oscillator: %w", err)
	}

	scratch := max(config.BufferFrames, minScratchFrames)
	gen := waveform.NewGenerator(config.Seed)
	gen.Prepare(scratch)

	return &Oscillator{
		config:     config,
		out:        config.Output,
		params:     params,
		sampleRate: sampleRate,
		clock:      clock.New(sampleRate),
		gen:        gen,
		times:      make([]float64, scratch),
		samples:    make([]float64, scratch),
	}, nil
}

// SetWaveType changes the wave shape, effective from the next block
func (o *Oscillator) SetWaveType(w waveform.WaveType) error {
	return o.params.SetWaveType(w)
}

// SetAmplitude changes the amplitude, effective from the next block
func (o *Oscillator) SetAmplitude(a float64) error {
	return o.params.SetAmplitude(a)
}

// SetFrequency changes the frequency, effective from the next block
func (o *Oscillator) SetFrequency(f float64) error {
	return o.params.SetFrequency(f)
}

// Parameters returns a consistent snapshot of the current settings
func (o *Oscillator) Parameters() Parameters {
	return o.params.Snapshot()
}

// SampleRate returns the stream rate fixed at construction
func (o *Oscillator) SampleRate() int {
	return o.sampleRate
}

// State returns the current stream state
func (o *Oscillator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the device error that last forced the oscillator idle, or
// nil once a later Start succeeds
func (o *Oscillator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Stats returns callback counters
func (o *Oscillator) Stats() Stats {
	return Stats{
		Callbacks:       o.callbacks.Load(),
		Frames:          o.frames.Load(),
		SilentCallbacks: o.silent.Load(),
	}
}

// Start opens the output and begins streaming from sample index 0. Starting
// while playing does nothing. A failure to open the device is returned as a
// *DeviceError and leaves the oscillator idle.
func (o *Oscillator) Start() error {
	o.mu.Lock()

	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.state == Playing {
		o.mu.Unlock()
		return nil
	}

	s := &stream{
		faults: make(chan error, 1),
		done:   make(chan struct{}),
	}

	// no callback can be running here, the previous stream is closed
	o.gate.Lock()
	o.clock.Reset()
	o.current = s
	o.armed.Store(true)
	o.gate.Unlock()

	cfg := output.Config{
		SampleRate:   o.sampleRate,
		BitDepth:     o.config.BitDepth,
		BufferFrames: o.config.BufferFrames,
	}
	if err := o.out.Open(cfg, o.fill, s.report); err != nil {
		o.armed.Store(false)
		o.current = nil
		derr := &DeviceError{Op: "start", Err: err}
		o.lastErr = derr
		o.mu.Unlock()

		metrics.DeviceErrorsTotal.Inc()
		log.Printf("Failed to start %s output: %v", o.out.Name(), err)
		return derr
	}

	o.state = Playing
	o.lastErr = nil
	go o.watch(s)
	o.mu.Unlock()

	metrics.Playing.Set(1)
	log.Printf("Oscillator started: %s", o)
	o.notify(Playing)
	return nil
}

// Stop halts the stream and releases the output. It returns once no
// callback is in flight. Stopping while idle does nothing.
func (o *Oscillator) Stop() {
	o.mu.Lock()
	stopped := o.stopLocked()
	o.mu.Unlock()

	if stopped {
		log.Printf("Oscillator stopped")
		o.notify(Idle)
	}
}

// Close stops the stream and rejects further starts
func (o *Oscillator) Close() error {
	o.mu.Lock()
	stopped := o.stopLocked()
	o.closed = true
	o.mu.Unlock()

	if stopped {
		o.notify(Idle)
	}
	return nil
}

func (o *Oscillator) String() string {
	p := o.params.Snapshot()
	return fmt.Sprintf("oscillator(%d Hz, %s, amplitude %.2f, %.1f Hz)",
		p.SampleRate, p.WaveType, p.Amplitude, p.Frequency)
}

// stopLocked must be called with o.mu held
func (o *Oscillator) stopLocked() bool {
	if o.state != Playing {
		return false
	}

	o.armed.Store(false)
	// wait out a callback that passed the armed check before we cleared it
	o.gate.Lock()
	o.gate.Unlock()

	if err := o.out.Close(); err != nil {
		log.Printf("Failed to close %s output: %v", o.out.Name(), err)
	}

	close(o.current.done)
	o.current = nil
	o.state = Idle
	metrics.Playing.Set(0)
	return true
}

// watch turns a failure reported by the stream into a forced stop
func (o *Oscillator) watch(s *stream) {
	var cause error
	select {
	case <-s.done:
		return
	case cause = <-s.faults:
	}

	o.mu.Lock()
	if o.current != s {
		o.mu.Unlock()
		return
	}
	o.stopLocked()
	derr := &DeviceError{Op: "playback", Err: cause}
	o.lastErr = derr
	o.mu.Unlock()

	metrics.DeviceErrorsTotal.Inc()
	log.Printf("Oscillator stopped by device error: %v", cause)
	o.notify(Idle)
	if o.config.OnError != nil {
		o.config.OnError(derr)
	}
}

func (o *Oscillator) notify(state State) {
	if o.config.OnStateChange != nil {
		o.config.OnStateChange(state)
	}
}

// fill is the audio callback. It never waits on a lock held by control
// code: if Stop holds the gate, or the stream is disarmed, it writes
// silence.
func (o *Oscillator) fill(out []float32) {
	if !o.gate.TryLock() {
		o.silence(out)
		return
	}
	defer o.gate.Unlock()

	if !o.armed.Load() {
		o.silence(out)
		return
	}

	p := o.params.Snapshot()
	chunk := len(o.times)

	for off := 0; off < len(out); off += chunk {
		n := min(chunk, len(out)-off)
		times := o.times[:n]
		samples := o.samples[:n]

		o.clock.Next(times)
		if err := o.gen.Generate(p.WaveType, times, samples, p.Amplitude, p.Frequency); err != nil {
			clear(out[off:])
			o.armed.Store(false)
			o.current.report(err)
			break
		}
		for i, v := range samples {
			out[off+i] = float32(v)
		}
	}

	o.callbacks.Add(1)
	o.frames.Add(uint64(len(out)))
	metrics.CallbacksTotal.Inc()
	metrics.FramesTotal.Add(float64(len(out)))
}

func (o *Oscillator) silence(out []float32) {
	clear(out)
	o.silent.Add(1)
	metrics.SilentCallbacksTotal.Inc()
}
