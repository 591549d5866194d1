// ABOUTME: Tests for the oscillator stream controller
// ABOUTME: Drives the audio callback by hand through a fake output
package oscillator

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/barosc/barosc-go/pkg/audio/output"
	"github.com/barosc/barosc-go/pkg/waveform"
)

// fakeOutput records the callback instead of running a device
type fakeOutput struct {
	mu       sync.Mutex
	rate     int
	rateErr  error
	openErr  error
	cfg      output.Config
	fill     output.FillFunc
	onError  output.ErrorFunc
	opens    int
	closes   int
	lastFill output.FillFunc
}

func (f *fakeOutput) Name() string { return "fake" }

func (f *fakeOutput) DefaultSampleRate() (int, error) {
	return f.rate, f.rateErr
}

func (f *fakeOutput) Open(cfg output.Config, fill output.FillFunc, onError output.ErrorFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.cfg = cfg
	f.fill = fill
	f.lastFill = fill
	f.onError = onError
	f.opens++
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fill = nil
	f.onError = nil
	f.closes++
	return nil
}

// render runs one callback of n frames, or returns nil when no stream is open
func (f *fakeOutput) render(n int) []float32 {
	f.mu.Lock()
	fill := f.fill
	f.mu.Unlock()
	if fill == nil {
		return nil
	}
	buf := make([]float32, n)
	fill(buf)
	return buf
}

func (f *fakeOutput) fail(err error) {
	f.mu.Lock()
	onError := f.onError
	f.mu.Unlock()
	onError(err)
}

func (f *fakeOutput) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes
}

func newTestOscillator(t *testing.T, cfg Config) (*Oscillator, *fakeOutput) {
	t.Helper()
	fake := &fakeOutput{rate: 44100}
	cfg.Output = fake
	osc, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create oscillator: %v", err)
	}
	t.Cleanup(func() { osc.Close() })
	return osc, fake
}

func expectedSine(start, n int, rate, amp, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		tm := float64(start+i) / rate
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*tm))
	}
	return out
}

func TestNewDefaults(t *testing.T) {
	osc, _ := newTestOscillator(t, Config{})

	p := osc.Parameters()
	if p.WaveType != waveform.Sine {
		t.Errorf("expected sine, got %s", p.WaveType)
	}
	if p.Amplitude != DefaultAmplitude {
		t.Errorf("expected amplitude %v, got %v", DefaultAmplitude, p.Amplitude)
	}
	if p.Frequency != DefaultFrequency {
		t.Errorf("expected frequency %v, got %v", DefaultFrequency, p.Frequency)
	}
	if p.SampleRate != 44100 {
		t.Errorf("expected sample rate from device 44100, got %d", p.SampleRate)
	}
	if osc.State() != Idle {
		t.Errorf("expected idle, got %s", osc.State())
	}
}

func TestNewRejectsBadParameters(t *testing.T) {
	_, err := New(Config{Output: &fakeOutput{rate: 48000}, Amplitude: 0.5, Frequency: 5})
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}

	_, err = New(Config{Output: &fakeOutput{rate: 48000}, WaveType: 9, Frequency: 440})
	if !errors.Is(err, ErrInvalidWaveType) {
		t.Errorf("expected ErrInvalidWaveType, got %v", err)
	}
}

func TestNewSampleRateQueryFails(t *testing.T) {
	_, err := New(Config{Output: &fakeOutput{rateErr: errors.New("no device")}})

	var derr *DeviceError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if !errors.Is(err, ErrDevice) {
		t.Error("expected DeviceError to match ErrDevice")
	}
}

func TestSineScenario(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{
		SampleRate: 44100,
		WaveType:   waveform.Sine,
		Amplitude:  0.5,
		Frequency:  440,
	})

	if err := osc.Start(); err != nil {
		t.Fatal(err)
	}

	got := fake.render(512)
	want := expectedSine(0, 512, 44100, 0.5, 440)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	if fake.cfg.SampleRate != 44100 {
		t.Errorf("expected stream opened at 44100, got %d", fake.cfg.SampleRate)
	}
}

func TestBlocksAreContinuous(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 48000, Amplitude: 1, Frequency: 1000})
	osc.Start()

	start := 0
	for _, n := range []int{1, 7, 512, 100, 333} {
		got := fake.render(n)
		want := expectedSine(start, n, 48000, 1, 1000)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("block at %d, sample %d: expected %v, got %v", start, i, want[i], got[i])
			}
		}
		start += n
	}
}

func TestLargeBlockRenderedInChunks(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 48000, Amplitude: 0.5, Frequency: 440})
	osc.Start()

	n := minScratchFrames*2 + 17
	got := fake.render(n)
	want := expectedSine(0, n, 48000, 0.5, 440)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDoubleStartAndStop(t *testing.T) {
	var transitions []State
	osc, fake := newTestOscillator(t, Config{
		SampleRate:    44100,
		OnStateChange: func(s State) { transitions = append(transitions, s) },
	})

	if err := osc.Start(); err != nil {
		t.Fatal(err)
	}
	fake.render(100)

	// second start must not reopen or reset the clock
	if err := osc.Start(); err != nil {
		t.Fatal(err)
	}
	if osc.clock.Index() != 100 {
		t.Errorf("expected index 100 after second start, got %d", osc.clock.Index())
	}

	osc.Stop()
	osc.Stop()

	opens, closes := fake.counts()
	if opens != 1 {
		t.Errorf("expected 1 open, got %d", opens)
	}
	if closes != 1 {
		t.Errorf("expected 1 close, got %d", closes)
	}
	if osc.State() != Idle {
		t.Errorf("expected idle, got %s", osc.State())
	}
	if len(transitions) != 2 || transitions[0] != Playing || transitions[1] != Idle {
		t.Errorf("expected [playing idle], got %v", transitions)
	}
}

func TestStopWhileIdle(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 44100})

	osc.Stop()

	if _, closes := fake.counts(); closes != 0 {
		t.Errorf("expected no close, got %d", closes)
	}
}

func TestRestartResetsClock(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 44100, Amplitude: 0.5, Frequency: 440})

	osc.Start()
	fake.render(300)
	osc.Stop()

	osc.Start()
	got := fake.render(64)
	want := expectedSine(0, 64, 44100, 0.5, 440)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestWaveChangeMidStream(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 44100, Amplitude: 0.5, Frequency: 440})
	osc.Start()

	fake.render(256)
	if err := osc.SetWaveType(waveform.Square); err != nil {
		t.Fatal(err)
	}
	got := fake.render(256)

	times := make([]float64, 256)
	for i := range times {
		times[i] = float64(256+i) / 44100
	}
	want := make([]float64, 256)
	waveform.SquareBlock(want, times, 0.5, 440)

	for i := range want {
		if got[i] != float32(want[i]) {
			t.Fatalf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
		if got[i] != 0.5 && got[i] != -0.5 && got[i] != 0 {
			t.Fatalf("sample %d: unexpected square level %v", i, got[i])
		}
	}
}

func TestParameterChangeAppliesAtNextBlock(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 44100, Amplitude: 0.5, Frequency: 440})
	osc.Start()

	fake.render(128)
	osc.SetAmplitude(0.25)
	osc.SetFrequency(1000)
	got := fake.render(128)

	want := expectedSine(128, 128, 44100, 0.25, 1000)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestCallbackSilentAfterStop(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 44100, Amplitude: 1, Frequency: 440})
	osc.Start()
	fake.render(64)
	osc.Stop()

	// a late callback from the device must not render
	buf := make([]float32, 64)
	for i := range buf {
		buf[i] = 1
	}
	fake.lastFill(buf)

	for i, v := range buf {
		if v != 0 {
			t.Fatalf("sample %d: expected silence, got %v", i, v)
		}
	}
	if osc.Stats().SilentCallbacks != 1 {
		t.Errorf("expected 1 silent callback, got %d", osc.Stats().SilentCallbacks)
	}
}

func TestCallbackSilentWhileGateHeld(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 44100, Amplitude: 1, Frequency: 440})
	osc.Start()

	osc.gate.Lock()
	got := fake.render(32)
	osc.gate.Unlock()

	for i, v := range got {
		if v != 0 {
			t.Fatalf("sample %d: expected silence, got %v", i, v)
		}
	}
	if osc.clock.Index() != 0 {
		t.Errorf("expected clock untouched, got index %d", osc.clock.Index())
	}
}

func TestCallbackDoesNotAllocate(t *testing.T) {
	for _, w := range waveform.WaveTypes {
		t.Run(w.String(), func(t *testing.T) {
			osc, fake := newTestOscillator(t, Config{SampleRate: 48000, WaveType: w, Amplitude: 0.5, Frequency: 440})
			osc.Start()

			buf := make([]float32, 512)
			fill := fake.lastFill
			allocs := testing.AllocsPerRun(100, func() {
				fill(buf)
			})
			if allocs != 0 {
				t.Errorf("expected 0 allocations, got %v", allocs)
			}
		})
	}
}

func TestCallbackDoesNotAllocateWithVaryingPeriods(t *testing.T) {
	// Devices do not always deliver the requested period.
	periods := []int{441, 1024, 940, 2048, 1500, 777, 4096, 6000, 1}

	for _, w := range waveform.WaveTypes {
		t.Run(w.String(), func(t *testing.T) {
			osc, fake := newTestOscillator(t, Config{SampleRate: 44100, BufferFrames: 512, WaveType: w, Amplitude: 0.5, Frequency: 440})
			osc.Start()

			bufs := make([][]float32, len(periods))
			for i, n := range periods {
				bufs[i] = make([]float32, n)
			}
			fill := fake.lastFill
			allocs := testing.AllocsPerRun(20, func() {
				for _, buf := range bufs {
					fill(buf)
				}
			})
			if allocs != 0 {
				t.Errorf("expected 0 allocations, got %v", allocs)
			}

			for i, buf := range bufs {
				for j, v := range buf {
					if math.Abs(float64(v)) > 0.5+1e-6 {
						t.Fatalf("period %d sample %d out of range: %v", periods[i], j, v)
					}
				}
			}
		})
	}
}

func TestStartFailure(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 44100})
	fake.openErr = errors.New("device busy")

	err := osc.Start()
	if !errors.Is(err, ErrDevice) {
		t.Fatalf("expected device error, got %v", err)
	}
	if osc.State() != Idle {
		t.Errorf("expected idle, got %s", osc.State())
	}
	if !errors.Is(osc.Err(), ErrDevice) {
		t.Errorf("expected Err to report the device error, got %v", osc.Err())
	}

	fake.openErr = nil
	if err := osc.Start(); err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	if osc.Err() != nil {
		t.Errorf("expected error cleared after successful start, got %v", osc.Err())
	}
}

func TestDeviceErrorForcesIdle(t *testing.T) {
	reported := make(chan error, 1)
	osc, fake := newTestOscillator(t, Config{
		SampleRate: 44100,
		OnError:    func(err error) { reported <- err },
	})
	osc.Start()
	fake.render(64)

	unplugged := errors.New("device unplugged")
	fake.fail(unplugged)

	var err error
	select {
	case err = <-reported:
	case <-time.After(2 * time.Second):
		t.Fatal("device error was not reported")
	}

	var derr *DeviceError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DeviceError, got %T", err)
	}
	if !errors.Is(err, unplugged) {
		t.Errorf("expected cause %v, got %v", unplugged, derr.Err)
	}
	if osc.State() != Idle {
		t.Errorf("expected idle after device error, got %s", osc.State())
	}
	if _, closes := fake.counts(); closes != 1 {
		t.Errorf("expected stream closed once, got %d", closes)
	}

	// the caller may start again
	if err := osc.Start(); err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	if osc.State() != Playing {
		t.Errorf("expected playing, got %s", osc.State())
	}
}

func TestStartAfterClose(t *testing.T) {
	osc, _ := newTestOscillator(t, Config{SampleRate: 44100})
	osc.Start()
	osc.Close()

	if osc.State() != Idle {
		t.Errorf("expected idle after close, got %s", osc.State())
	}
	if err := osc.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestConcurrentSettersWhilePlaying(t *testing.T) {
	osc, fake := newTestOscillator(t, Config{SampleRate: 48000, Amplitude: 0.5, Frequency: 440})
	osc.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			osc.SetFrequency(float64(20 + i*50))
			osc.SetAmplitude(float64(i%10) / 10)
			osc.SetWaveType(waveform.WaveTypes[i%len(waveform.WaveTypes)])
		}
	}()

	for i := 0; i < 200; i++ {
		for _, v := range fake.render(128) {
			if v < -1 || v > 1 || math.IsNaN(float64(v)) {
				t.Fatalf("sample out of range: %v", v)
			}
		}
	}
	wg.Wait()

	if osc.Stats().Frames != 200*128 {
		t.Errorf("expected %d frames, got %d", 200*128, osc.Stats().Frames)
	}
}

func TestString(t *testing.T) {
	osc, _ := newTestOscillator(t, Config{SampleRate: 44100, WaveType: waveform.PinkNoise, Amplitude: 0.25, Frequency: 1000})

	s := osc.String()
	for _, part := range []string{"44100", "pink_noise", "0.25", "1000.0"} {
		if !strings.Contains(s, part) {
			t.Errorf("expected %q in %q", part, s)
		}
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "idle" || Playing.String() != "playing" {
		t.Errorf("unexpected state names: %s, %s", Idle, Playing)
	}
}
