// SPDX-License-Identifier: MIT
package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the analyzer's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	samples       prometheus.Counter   // Samples accepted by PushSamples.
	transforms    prometheus.Counter   // Completed forward transforms.
	framesDropped prometheus.Counter   // Frames not delivered to a full subscriber.
	transformTime prometheus.Histogram // Wall time of one transform including history update.
}

// NewMetrics registers the analyzer collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics
// handler, or a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		samples: factory.NewCounter(prometheus.CounterOpts{
			Name: "consolefft_samples_total",
			Help: "Total number of PCM samples pushed into the analyzer",
		}),
		transforms: factory.NewCounter(prometheus.CounterOpts{
			Name: "consolefft_transforms_total",
			Help: "Total number of completed forward transforms",
		}),
		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "consolefft_frames_dropped_total",
			Help: "Total number of frames dropped because a subscriber was not keeping up",
		}),
		transformTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "consolefft_transform_duration_seconds",
			Help:    "Time spent transforming one window and updating the history",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

func (m *Metrics) addSamples(n int) {
	if m == nil {
		return
	}
	m.samples.Add(float64(n))
}

func (m *Metrics) observeTransform(d time.Duration) {
	if m == nil {
		return
	}
	m.transforms.Inc()
	m.transformTime.Observe(d.Seconds())
}

func (m *Metrics) frameDropped() {
	if m == nil {
		return
	}
	m.framesDropped.Inc()
}
