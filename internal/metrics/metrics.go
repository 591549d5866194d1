// ABOUTME: Prometheus collectors for the oscillator stream and control server
// ABOUTME: Registered on the default registry and served from /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	Playing = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "barosc_playing",
		Help: "1 while the oscillator stream is running",
	})
	ControlSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "barosc_control_sessions",
		Help: "Number of connected remote control sessions",
	})
)

// Counters
var (
	CallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barosc_callbacks_total",
		Help: "Total audio callbacks serviced",
	})
	FramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barosc_frames_total",
		Help: "Total frames rendered by the generator",
	})
	SilentCallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barosc_silent_callbacks_total",
		Help: "Callbacks answered with silence because the stream was stopping",
	})
	DeviceErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barosc_device_errors_total",
		Help: "Total device errors that forced the stream idle",
	})
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "barosc_commands_total",
		Help: "Remote control commands by command and outcome",
	}, []string{"command", "outcome"})
)
