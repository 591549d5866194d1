// ABOUTME: Monotonic sample index with block time generation
// ABOUTME: Produces gap-free, repeat-free time blocks across callbacks
package clock

// SampleClock hands out consecutive blocks of sample times. It is owned by a
// single goroutine (the audio callback) and is not safe for concurrent use.
type SampleClock struct {
	index      uint64
	sampleRate float64
}

// New creates a clock at index zero for the given sample rate
func New(sampleRate int) *SampleClock {
	return &SampleClock{sampleRate: float64(sampleRate)}
}

// Next fills times with (index+i)/sampleRate and advances the index by
// len(times). It does not allocate.
func (c *SampleClock) Next(times []float64) {
	for i := range times {
		times[i] = float64(c.index+uint64(i)) / c.sampleRate
	}
	c.index += uint64(len(times))
}

// NextBlockTimes returns a newly allocated block of frames sample times and
// advances the index. Use Next on the audio thread.
func (c *SampleClock) NextBlockTimes(frames int) []float64 {
	times := make([]float64, frames)
	c.Next(times)
	return times
}

// Reset rewinds the index to zero for a fresh stream
func (c *SampleClock) Reset() {
	c.index = 0
}

// Index returns the index of the next sample to be handed out
func (c *SampleClock) Index() uint64 {
	return c.index
}

// SampleRate returns the rate the clock converts indices with
func (c *SampleClock) SampleRate() int {
	return int(c.sampleRate)
}
