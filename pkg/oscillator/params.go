// ABOUTME: Parameter store shared between control code and the audio callback
// ABOUTME: Validated writes, lock-free allocation-free snapshots
package oscillator

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/barosc/barosc-go/pkg/waveform"
)

// Parameter limits
const (
	MinAmplitude = 0.0
	MaxAmplitude = 1.0
	MinFrequency = 20.0
	MaxFrequency = 20000.0
)

// Default parameters for a new oscillator
const (
	DefaultWaveType  = waveform.Sine
	DefaultAmplitude = 0.5
	DefaultFrequency = 440.0
)

// Parameters is a consistent view of the oscillator settings
type Parameters struct {
	WaveType   waveform.WaveType
	Amplitude  float64
	Frequency  float64
	SampleRate int
}

// Validate checks every field against its allowed range
func (p Parameters) Validate() error {
	if !p.WaveType.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWaveType, int(p.WaveType))
	}
	if err := checkAmplitude(p.Amplitude); err != nil {
		return err
	}
	if err := checkFrequency(p.Frequency); err != nil {
		return err
	}
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d must be positive", ErrOutOfRange, p.SampleRate)
	}
	return nil
}

// The negated comparisons also reject NaN.
func checkAmplitude(a float64) error {
	if !(a >= MinAmplitude && a <= MaxAmplitude) {
		return fmt.Errorf("%w: amplitude %v not in [%v, %v]", ErrOutOfRange, a, MinAmplitude, MaxAmplitude)
	}
	return nil
}

func checkFrequency(f float64) error {
	if !(f >= MinFrequency && f <= MaxFrequency) {
		return fmt.Errorf("%w: frequency %v not in [%v, %v] Hz", ErrOutOfRange, f, MinFrequency, MaxFrequency)
	}
	return nil
}

// Store holds the current parameters. Writers serialize on a mutex and
// publish a fresh copy; readers load the published copy without locking.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Parameters]
}

// NewStore creates a store holding p
func NewStore(p Parameters) (*Store, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Store{}
	s.current.Store(&p)
	return s, nil
}

// Snapshot returns the latest published parameters. It never blocks and
// does not allocate, so the audio callback may call it.
func (s *Store) Snapshot() Parameters {
	return *s.current.Load()
}

// SetWaveType replaces the wave type
func (s *Store) SetWaveType(w waveform.WaveType) error {
	if !w.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWaveType, int(w))
	}
	s.update(func(p *Parameters) { p.WaveType = w })
	return nil
}

// SetAmplitude replaces the amplitude, which must be in [0, 1]
func (s *Store) SetAmplitude(a float64) error {
	if err := checkAmplitude(a); err != nil {
		return err
	}
	s.update(func(p *Parameters) { p.Amplitude = a })
	return nil
}

// SetFrequency replaces the frequency, which must be in [20, 20000] Hz
func (s *Store) SetFrequency(f float64) error {
	if err := checkFrequency(f); err != nil {
		return err
	}
	s.update(func(p *Parameters) { p.Frequency = f })
	return nil
}

func (s *Store) update(fn func(p *Parameters)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.current.Load()
	fn(&next)
	s.current.Store(&next)
}
