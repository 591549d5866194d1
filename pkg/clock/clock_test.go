// ABOUTME: Tests for the sample clock
// ABOUTME: Verifies block continuity, reset and allocation behavior
package clock

import (
	"testing"
)

func TestFirstBlockStartsAtZero(t *testing.T) {
	c := New(44100)
	times := c.NextBlockTimes(3)

	expected := []float64{0, 1.0 / 44100, 2.0 / 44100}
	for i := range expected {
		if times[i] != expected[i] {
			t.Errorf("index %d: expected %v, got %v", i, expected[i], times[i])
		}
	}
	if c.Index() != 3 {
		t.Errorf("expected index 3, got %d", c.Index())
	}
}

func TestBlocksAreContinuous(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
	}{
		{"uniform", []int{256, 256, 256, 256}},
		{"varying", []int{1, 7, 512, 3, 1024, 2}},
		{"with empty", []int{10, 0, 10, 0, 0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const rate = 48000
			c := New(rate)
			var consumed uint64

			for k, n := range tt.sizes {
				times := c.NextBlockTimes(n)
				if len(times) != n {
					t.Fatalf("block %d: expected %d times, got %d", k, n, len(times))
				}
				for i, v := range times {
					expected := float64(consumed+uint64(i)) / rate
					if v != expected {
						t.Fatalf("block %d sample %d: expected %v, got %v", k, i, expected, v)
					}
				}
				consumed += uint64(n)
				if c.Index() != consumed {
					t.Fatalf("block %d: expected index %d, got %d", k, consumed, c.Index())
				}
			}
		})
	}
}

func TestBlocksMatchSingleWalk(t *testing.T) {
	const rate = 44100
	whole := New(rate).NextBlockTimes(1000)

	sliced := New(rate)
	var got []float64
	for _, n := range []int{100, 37, 463, 400} {
		got = append(got, sliced.NextBlockTimes(n)...)
	}

	if len(got) != len(whole) {
		t.Fatalf("expected %d samples, got %d", len(whole), len(got))
	}
	for i := range whole {
		if got[i] != whole[i] {
			t.Fatalf("sample %d: expected %v, got %v", i, whole[i], got[i])
		}
	}
}

func TestReset(t *testing.T) {
	c := New(44100)
	c.NextBlockTimes(512)
	c.Reset()

	if c.Index() != 0 {
		t.Fatalf("expected index 0 after reset, got %d", c.Index())
	}
	times := c.NextBlockTimes(2)
	if times[0] != 0 {
		t.Errorf("expected first time 0 after reset, got %v", times[0])
	}
}

func TestNextDoesNotAllocate(t *testing.T) {
	c := New(44100)
	times := make([]float64, 512)
	allocs := testing.AllocsPerRun(100, func() {
		c.Next(times)
	})
	if allocs != 0 {
		t.Errorf("expected 0 allocations, got %v", allocs)
	}
}

func TestSampleRate(t *testing.T) {
	if New(96000).SampleRate() != 96000 {
		t.Error("expected sample rate 96000")
	}
}
