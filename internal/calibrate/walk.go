// ABOUTME: Octave walk calibration sequence
// ABOUTME: Steps a sine from A0 to A6 by octaves or third octaves, then restores settings
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/barosc/barosc-go/pkg/oscillator"
	"github.com/barosc/barosc-go/pkg/waveform"
)

// Walk range: A0 to A6
const (
	StartFrequency = 27.5
	EndFrequency   = 1760.0
)

// DefaultInterval is how long each step plays
const DefaultInterval = 2 * time.Second

// ErrWalkRunning is returned by Begin while another walk is in progress
var ErrWalkRunning = errors.New("octave walk already running")

// Mode selects the step size
type Mode int

const (
	Octaves Mode = iota
	ThirdOctaves
)

// Ratio returns the frequency ratio between successive steps
func (m Mode) Ratio() float64 {
	if m == ThirdOctaves {
		return math.Cbrt(2)
	}
	return 2
}

func (m Mode) String() string {
	if m == ThirdOctaves {
		return "Octave Walk ⅓"
	}
	return "Octave Walk"
}

// Frequencies lists every step of a walk. Step k is computed directly as
// StartFrequency*ratio^k so the last step lands on EndFrequency.
func (m Mode) Frequencies() []float64 {
	perOctave := 1
	if m == ThirdOctaves {
		perOctave = 3
	}
	octaves := int(math.Round(math.Log2(EndFrequency / StartFrequency)))
	steps := make([]float64, 0, octaves*perOctave+1)
	for k := 0; k <= octaves*perOctave; k++ {
		steps = append(steps, StartFrequency*math.Exp2(float64(k)/float64(perOctave)))
	}
	return steps
}

// Tuner is the part of the oscillator a walk drives
type Tuner interface {
	State() oscillator.State
	Start() error
	Stop()
	Parameters() oscillator.Parameters
	SetWaveType(w waveform.WaveType) error
	SetFrequency(f float64) error
}

// Step describes the tone currently playing
type Step struct {
	Mode      Mode
	Index     int
	Total     int
	Frequency float64
}

// Config holds walk configuration
type Config struct {
	Mode     Mode
	Interval time.Duration

	// OnStep is called as each step starts playing
	OnStep func(Step)
}

// Run plays a walk to completion or until ctx is done, and restores the
// tuner's wave type and frequency before returning. It stops the tuner
// first if it was playing and leaves it stopped.
func Run(ctx context.Context, tuner Tuner, config Config) error {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	steps := config.Mode.Frequencies()

	if tuner.State() == oscillator.Playing {
		tuner.Stop()
	}

	saved := tuner.Parameters()
	defer func() {
		tuner.Stop()
		if err := tuner.SetWaveType(saved.WaveType); err != nil {
			log.Printf("Failed to restore wave type: %v", err)
		}
		if err := tuner.SetFrequency(saved.Frequency); err != nil {
			log.Printf("Failed to restore frequency: %v", err)
		}
	}()

	if err := tuner.SetWaveType(waveform.Sine); err != nil {
		return fmt.Errorf("failed to select sine: %w", err)
	}

	log.Printf("%s started: %d steps, %v each", config.Mode, len(steps), config.Interval)

	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()

	for i, freq := range steps {
		if i > 0 {
			select {
			case <-ctx.Done():
				log.Printf("%s cancelled at %.1f Hz", config.Mode, steps[i-1])
				return ctx.Err()
			case <-ticker.C:
			}
			tuner.Stop()
		}

		if err := tuner.SetFrequency(freq); err != nil {
			return fmt.Errorf("failed to set step frequency: %w", err)
		}
		if config.OnStep != nil {
			config.OnStep(Step{Mode: config.Mode, Index: i, Total: len(steps), Frequency: freq})
		}
		if err := tuner.Start(); err != nil {
			return fmt.Errorf("failed to play step %d: %w", i, err)
		}
	}

	// let the last step play its full interval
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
	}

	log.Printf("%s finished", config.Mode)
	return nil
}

// Walker runs at most one walk at a time in the background
type Walker struct {
	tuner Tuner

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWalker creates a walker for tuner
func NewWalker(tuner Tuner) *Walker {
	return &Walker{tuner: tuner}
}

// Begin starts a walk in the background. onDone receives the walk's result
// and may be nil.
func (w *Walker) Begin(config Config, onDone func(error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWalkRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go func() {
		err := Run(ctx, w.tuner, config)

		w.mu.Lock()
		if w.done == done {
			w.cancel = nil
			w.done = nil
		}
		w.mu.Unlock()
		cancel()
		close(done)

		if onDone != nil {
			onDone(err)
		}
	}()
	return nil
}

// Running reports whether a walk is in progress
func (w *Walker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Cancel stops a running walk and waits until settings are restored
func (w *Walker) Cancel() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
