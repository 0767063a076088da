package cfcode

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teenjuna/cfcode/diag"
)

type metrics struct {
	calls       *prometheus.CounterVec
	errors      *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func (m *metrics) call(coder CoderKind, op string, err error) {
	m.calls.WithLabelValues(coder.String(), op).Inc()
	if err != nil {
		m.errors.WithLabelValues(coder.String(), op).Inc()
	}
}

func (m *metrics) observe(op string, start time.Time) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// sink counts diagnostics by kind.
func (m *metrics) sink() diag.Sink {
	return diag.SinkFunc(func(d diag.Diagnostic) {
		m.diagnostics.WithLabelValues(d.Kind.String()).Add(float64(max(d.Count, 1)))
	})
}
