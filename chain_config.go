package cfcode

import (
	"go.uber.org/zap"

	"github.com/teenjuna/cfcode/diag"
)

// ChainConfig configures a [Chain].
type ChainConfig struct {
	coders     []Coder
	sink       diag.Sink
	logger     *zap.Logger
	prometheus *PrometheusConfig
}

type ChainConfigFunc = func(c *ChainConfig)

// Coders sets the coders of the chain in decoding order.
func (c *ChainConfig) Coders(coders ...Coder) {
	if len(coders) == 0 {
		panic("coders can't be empty")
	}
	for _, coder := range coders {
		if coder == nil {
			panic("coder can't be nil")
		}
	}
	c.coders = coders
}

// Sink sets the sink receiving diagnostics. Nil discards them.
func (c *ChainConfig) Sink(sink diag.Sink) {
	c.sink = sink
}

// Logger sets the logger. Coder steps are logged at debug level and diagnostics at warn level.
func (c *ChainConfig) Logger(logger *zap.Logger) {
	if logger == nil {
		panic("logger can't be nil")
	}
	c.logger = logger
}

// Prometheus sets the metrics config. See [Prometheus].
func (c *ChainConfig) Prometheus(prometheus *PrometheusConfig) {
	if prometheus == nil {
		panic("prometheus can't be nil")
	}
	c.prometheus = prometheus
}
