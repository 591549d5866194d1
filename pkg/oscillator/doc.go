// Package oscillator drives a calibration tone generator on an audio output.
//
// An Oscillator owns the parameter store, the sample clock and the stream
// handle. Parameters may be changed from any goroutine while the stream is
// playing; the audio callback reads them once per block through a lock-free
// snapshot, so changes take effect at the next block boundary.
//
// Basic usage:
//
//	osc, err := oscillator.New(oscillator.Config{Output: out})
//	if err != nil {
//		return err
//	}
//	defer osc.Close()
//
//	if err := osc.Start(); err != nil {
//		return err
//	}
//	osc.SetFrequency(1000)
//	osc.Stop()
package oscillator
