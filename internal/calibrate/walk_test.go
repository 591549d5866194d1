// ABOUTME: Tests for the octave walk
// ABOUTME: Tests step frequencies, playback order, cancellation and restore
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/barosc/barosc-go/pkg/oscillator"
	"github.com/barosc/barosc-go/pkg/waveform"
)

// fakeTuner records what a walk does to it
type fakeTuner struct {
	mu       sync.Mutex
	state    oscillator.State
	params   oscillator.Parameters
	played   []float64
	stops    int
	startErr error
}

func newFakeTuner() *fakeTuner {
	return &fakeTuner{params: oscillator.Parameters{
		WaveType:   waveform.PinkNoise,
		Amplitude:  0.5,
		Frequency:  1000,
		SampleRate: 48000,
	}}
}

func (f *fakeTuner) State() oscillator.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTuner) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.params.WaveType != waveform.Sine {
		return fmt.Errorf("expected sine during walk, got %s", f.params.WaveType)
	}
	f.state = oscillator.Playing
	f.played = append(f.played, f.params.Frequency)
	return nil
}

func (f *fakeTuner) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == oscillator.Playing {
		f.stops++
	}
	f.state = oscillator.Idle
}

func (f *fakeTuner) Parameters() oscillator.Parameters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

func (f *fakeTuner) SetWaveType(w waveform.WaveType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params.WaveType = w
	return nil
}

func (f *fakeTuner) SetFrequency(freq float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params.Frequency = freq
	return nil
}

func TestFrequencies(t *testing.T) {
	tests := []struct {
		mode  Mode
		count int
	}{
		{Octaves, 7},
		{ThirdOctaves, 19},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			steps := tt.mode.Frequencies()
			if len(steps) != tt.count {
				t.Fatalf("expected %d steps, got %d", tt.count, len(steps))
			}
			if steps[0] != StartFrequency {
				t.Errorf("expected first step %v, got %v", StartFrequency, steps[0])
			}
			if steps[len(steps)-1] != EndFrequency {
				t.Errorf("expected last step %v, got %v", EndFrequency, steps[len(steps)-1])
			}
			for i := 1; i < len(steps); i++ {
				ratio := steps[i] / steps[i-1]
				if math.Abs(ratio-tt.mode.Ratio()) > 1e-9 {
					t.Errorf("step %d: expected ratio %v, got %v", i, tt.mode.Ratio(), ratio)
				}
			}
		})
	}
}

func TestOctaveFrequencies(t *testing.T) {
	expected := []float64{27.5, 55, 110, 220, 440, 880, 1760}
	got := Octaves.Frequencies()
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("step %d: expected %v, got %v", i, expected[i], got[i])
		}
	}
}

func TestRunPlaysEveryStepAndRestores(t *testing.T) {
	tuner := newFakeTuner()
	tuner.state = oscillator.Playing

	var steps []Step
	err := Run(context.Background(), tuner, Config{
		Mode:     Octaves,
		Interval: time.Millisecond,
		OnStep:   func(s Step) { steps = append(steps, s) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := Octaves.Frequencies()
	if len(tuner.played) != len(expected) {
		t.Fatalf("expected %d steps played, got %v", len(expected), tuner.played)
	}
	for i := range expected {
		if tuner.played[i] != expected[i] {
			t.Errorf("step %d: expected %v, got %v", i, expected[i], tuner.played[i])
		}
	}
	if len(steps) != len(expected) || steps[0].Total != len(expected) {
		t.Errorf("expected %d step notifications, got %d", len(expected), len(steps))
	}

	p := tuner.Parameters()
	if p.WaveType != waveform.PinkNoise {
		t.Errorf("expected wave type restored to pink noise, got %s", p.WaveType)
	}
	if p.Frequency != 1000 {
		t.Errorf("expected frequency restored to 1000, got %v", p.Frequency)
	}
	if tuner.State() != oscillator.Idle {
		t.Errorf("expected idle after walk, got %s", tuner.State())
	}
	// the initial stop plus one per step
	if tuner.stops != len(expected)+1 {
		t.Errorf("expected %d stops, got %d", len(expected)+1, tuner.stops)
	}
}

func TestRunThirdOctavesRestores(t *testing.T) {
	tuner := newFakeTuner()

	err := Run(context.Background(), tuner, Config{Mode: ThirdOctaves, Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tuner.played) != 19 {
		t.Errorf("expected 19 steps, got %d", len(tuner.played))
	}
	if p := tuner.Parameters(); p.WaveType != waveform.PinkNoise || p.Frequency != 1000 {
		t.Errorf("expected settings restored, got %s at %v", p.WaveType, p.Frequency)
	}
}

func TestRunCancelRestores(t *testing.T) {
	tuner := newFakeTuner()
	ctx, cancel := context.WithCancel(context.Background())

	err := Run(ctx, tuner, Config{
		Mode:     Octaves,
		Interval: time.Hour,
		OnStep: func(s Step) {
			if s.Index == 0 {
				cancel()
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if len(tuner.played) != 1 || tuner.played[0] != StartFrequency {
		t.Errorf("expected only the first step played, got %v", tuner.played)
	}
	if tuner.State() != oscillator.Idle {
		t.Errorf("expected idle after cancel, got %s", tuner.State())
	}
	if p := tuner.Parameters(); p.WaveType != waveform.PinkNoise || p.Frequency != 1000 {
		t.Errorf("expected settings restored, got %s at %v", p.WaveType, p.Frequency)
	}
}

func TestRunStartFailure(t *testing.T) {
	tuner := newFakeTuner()
	tuner.startErr = errors.New("no device")

	err := Run(context.Background(), tuner, Config{Interval: time.Millisecond})
	if !errors.Is(err, tuner.startErr) {
		t.Fatalf("expected start error, got %v", err)
	}
	if p := tuner.Parameters(); p.WaveType != waveform.PinkNoise || p.Frequency != 1000 {
		t.Errorf("expected settings restored, got %s at %v", p.WaveType, p.Frequency)
	}
}

func TestWalkerSingleWalk(t *testing.T) {
	tuner := newFakeTuner()
	w := NewWalker(tuner)

	if err := w.Begin(Config{Interval: time.Hour}, nil); err != nil {
		t.Fatal(err)
	}
	if !w.Running() {
		t.Error("expected walk running")
	}
	if err := w.Begin(Config{Interval: time.Hour}, nil); !errors.Is(err, ErrWalkRunning) {
		t.Errorf("expected ErrWalkRunning, got %v", err)
	}

	w.Cancel()

	if w.Running() {
		t.Error("expected walk stopped after cancel")
	}
	if p := tuner.Parameters(); p.WaveType != waveform.PinkNoise || p.Frequency != 1000 {
		t.Errorf("expected settings restored, got %s at %v", p.WaveType, p.Frequency)
	}

	// a new walk may begin once the previous one is gone
	if err := w.Begin(Config{Interval: time.Hour}, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	w.Cancel()
}

func TestWalkerReportsCompletion(t *testing.T) {
	tuner := newFakeTuner()
	w := NewWalker(tuner)
	result := make(chan error, 1)

	if err := w.Begin(Config{Interval: time.Millisecond}, func(err error) { result <- err }); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("walk did not finish")
	}
	if w.Running() {
		t.Error("expected walker idle after completion")
	}
}
