package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the tone engine's collectors. Each engine owns its own set so
// several engines can live in one process; pass a nil Registerer to keep them
// unregistered.
type Metrics struct {
	// Gauges
	ActiveTones prometheus.Gauge

	// Counters
	TonesStarted     prometheus.Counter
	TonesSuperseded  prometheus.Counter
	TonesStopped     prometheus.Counter
	InvalidRequests  prometheus.Counter
	DeviceFailures   prometheus.Counter
	TeardownFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveTones: f.NewGauge(prometheus.GaugeOpts{
			Name: "audiometer_active_tones",
			Help: "Tone sessions whose voice is still connected to the device",
		}),
		TonesStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "audiometer_tones_started_total",
			Help: "Total tone sessions created",
		}),
		TonesSuperseded: f.NewCounter(prometheus.CounterOpts{
			Name: "audiometer_tones_superseded_total",
			Help: "Tone sessions force-stopped by a newer tone",
		}),
		TonesStopped: f.NewCounter(prometheus.CounterOpts{
			Name: "audiometer_tones_stopped_total",
			Help: "Tone sessions stopped by an explicit stop request",
		}),
		InvalidRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "audiometer_invalid_requests_total",
			Help: "Tone requests rejected for invalid parameters",
		}),
		DeviceFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "audiometer_device_failures_total",
			Help: "Failed attempts to open or resume the output device",
		}),
		TeardownFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "audiometer_teardown_failures_total",
			Help: "Scheduled session teardowns that failed and were skipped",
		}),
	}
}
