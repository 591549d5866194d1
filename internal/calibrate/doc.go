// Package calibrate implements the octave walk used to check a monitoring
// chain across the low and mid range.
//
// A walk plays a sine at A0 (27.5 Hz) and moves up one octave, or one third
// of an octave, per interval until A6 (1760 Hz) has played. The wave type
// and frequency in effect before the walk are restored afterwards, whether
// it finishes or is cancelled.
package calibrate
