// ABOUTME: Text and slider mappings shown by the menu and status output
// ABOUTME: Base-2 logarithmic frequency slider and dBFS volume titles
package display

import (
	"fmt"
	"math"
)

// sliderScale spreads log2(frequency) over the slider range
const sliderScale = 1e4

// Slider range covering 20 Hz - 20 kHz
var (
	SliderMin = FrequencyToSlider(20)
	SliderMax = FrequencyToSlider(20000)
)

// SliderToFrequency converts a slider position to a whole-Hz frequency
func SliderToFrequency(value float64) float64 {
	return math.Round(math.Pow(2, value/sliderScale))
}

// FrequencyToSlider converts a frequency to a slider position
func FrequencyToSlider(freq float64) float64 {
	return math.Log2(freq) * sliderScale
}

// FrequencyTitle formats a frequency as "Frequency: 440 Hz" below 10 kHz
// and "Frequency: 15.0 kHz" above
func FrequencyTitle(freq float64) string {
	if freq >= 10000 {
		return fmt.Sprintf("Frequency: %.1f kHz", freq/1000)
	}
	if freq == math.Trunc(freq) {
		return fmt.Sprintf("Frequency: %.0f Hz", freq)
	}
	return fmt.Sprintf("Frequency: %.1f Hz", freq)
}

// DBFS converts a linear amplitude to decibels relative to full scale,
// rounded to one decimal
func DBFS(amp float64) float64 {
	if amp <= 0 {
		return math.Inf(-1)
	}
	return math.Round(20*math.Log10(amp)*10) / 10
}

// AmplitudeTitle formats an amplitude as "Volume: -6.0 dBFS". Silence reads
// -∞ and full scale reads -0.0.
func AmplitudeTitle(amp float64) string {
	db := DBFS(amp)
	switch {
	case math.IsInf(db, -1):
		return "Volume: -∞ dBFS"
	case db == 0:
		return "Volume: -0.0 dBFS"
	}
	return fmt.Sprintf("Volume: %.1f dBFS", db)
}
