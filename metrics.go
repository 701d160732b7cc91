package sidelink

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	subframesBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sltx",
			Subsystem: "loop",
			Name:      "subframes_built_total",
			Help:      "Subframes assembled successfully.",
		},
	)
	subframesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sltx",
			Subsystem: "radio",
			Name:      "subframes_sent_total",
			Help:      "Subframes accepted by the radio.",
		},
	)
	subframesDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sltx",
			Subsystem: "loop",
			Name:      "subframes_discarded_total",
			Help:      "Subframes dropped before transmission.",
		},
		[]string{"reason"},
	)
	sendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sltx",
			Subsystem: "radio",
			Name:      "send_duration_seconds",
			Help:      "Time the radio send call blocked.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)
	payloadDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sltx",
			Subsystem: "payload",
			Name:      "datagrams_dropped_total",
			Help:      "Payload datagrams dropped because the queue was full.",
		},
	)
	loopState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sltx",
			Subsystem: "loop",
			Name:      "state",
			Help:      "Current transmission loop state (0 idle, 1 configuring, 2 building, 3 transmitting, 4 closed).",
		},
	)
)

// RegisterMetrics adds the transmitter metrics to the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(subframesBuilt, subframesSent, subframesDiscarded, sendDuration, payloadDropped, loopState)
	})
}

func recordBuilt() {
	subframesBuilt.Inc()
}

func recordSent(d time.Duration) {
	subframesSent.Inc()
	sendDuration.Observe(d.Seconds())
}

func recordDiscarded(reason string) {
	subframesDiscarded.WithLabelValues(reason).Inc()
}

func recordPayloadDropped() {
	payloadDropped.Inc()
}

func recordState(s State) {
	loopState.Set(float64(s))
}
