package cfcode

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusConfig is a config of the Prometheus metrics provided by the [Chain].
//
// An instance can be created only by the [Prometheus] function. The zero value is invalid.
type PrometheusConfig struct {
	// Namespace of the metrics.
	Namespace string
	// Subsystem of the metrics.
	Subsystem string
	// Options for the coder calls counter.
	Calls prometheus.CounterOpts
	// Options for the coder errors counter.
	Errors prometheus.CounterOpts
	// Options for the diagnostics counter.
	Diagnostics prometheus.CounterOpts
	// Options for the chain duration histogram.
	Duration prometheus.HistogramOpts

	registerer prometheus.Registerer
}

// Prometheus returns a [PrometheusConfig] with the provided registerer. If registerer is nil,
// metrics will not be registered. Many default parameters can be configured by passing
// configuration functions.
func Prometheus(
	registerer prometheus.Registerer,
	configFuncs ...func(c *PrometheusConfig),
) *PrometheusConfig {
	const (
		namespace = "cfcode"
		subsystem = ""
	)

	c := PrometheusConfig{
		registerer: registerer,
		Namespace:  namespace,
		Subsystem:  subsystem,
		Calls: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calls",
			Help:      "Number of coder calls",
		},
		Errors: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors",
			Help:      "Number of failed coder calls",
		},
		Diagnostics: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "diagnostics",
			Help:      "Number of diagnostics reported by coders",
		},
		Duration: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Duration of building a decoded or encoded variable",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	}

	for _, cf := range configFuncs {
		if cf != nil {
			cf(&c)
		}
	}

	return &c
}

func (c *PrometheusConfig) metrics() *metrics {
	m := metrics{
		calls:       prometheus.NewCounterVec(c.Calls, []string{"coder", "op"}),
		errors:      prometheus.NewCounterVec(c.Errors, []string{"coder", "op"}),
		diagnostics: prometheus.NewCounterVec(c.Diagnostics, []string{"kind"}),
		duration:    prometheus.NewHistogramVec(c.Duration, []string{"op"}),
	}

	if c.registerer != nil {
		c.registerer.MustRegister(
			m.calls,
			m.errors,
			m.diagnostics,
			m.duration,
		)
	}

	return &m
}
