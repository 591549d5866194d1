// ABOUTME: Stream state of the oscillator
// ABOUTME: Idle until started, Playing while the output pulls samples
package oscillator

// State is the lifecycle state of the output stream
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	}
	return "unknown"
}
