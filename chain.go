package cfcode

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/teenjuna/cfcode/diag"
)

const (
	opDecode = "decode"
	opEncode = "encode"
)

// Chain is an ordered pipeline of coders. Decode applies them in order and Encode in reverse.
//
// A Chain holds no per-call state and can be used from multiple goroutines.
type Chain struct {
	cfg     *ChainConfig
	metrics *metrics
	sink    diag.Sink
}

// NewChain creates a Chain with the provided configuration functions.
//
// Default configuration:
//   - Coders: [DefaultCoders]
//   - Sink: nil (diagnostics are only logged)
//   - Logger: zap.NewNop()
//   - Prometheus: Prometheus(nil)
func NewChain(configFuncs ...ChainConfigFunc) *Chain {
	cfg := &ChainConfig{}
	cfg.Coders(DefaultCoders()...)
	cfg.Logger(zap.NewNop())
	cfg.Prometheus(Prometheus(nil))
	for _, cf := range configFuncs {
		cf(cfg)
	}

	metrics := cfg.prometheus.metrics()

	return &Chain{
		cfg:     cfg,
		metrics: metrics,
		sink:    diag.Multi(cfg.sink, diag.Zap(cfg.logger), metrics.sink()),
	}
}

// Coders returns the coders in decoding order.
func (c *Chain) Coders() []Coder {
	return slices.Clone(c.cfg.coders)
}

// Decode decodes v with every coder in order. It stops at the first error.
func (c *Chain) Decode(v *Variable, name string) (*Variable, error) {
	return c.run(opDecode, slices.Values(c.cfg.coders), v, name)
}

// Encode encodes v with every coder in reverse order. It stops at the first error.
func (c *Chain) Encode(v *Variable, name string) (*Variable, error) {
	return c.run(opEncode, func(yield func(Coder) bool) {
		for _, coder := range slices.Backward(c.cfg.coders) {
			if !yield(coder) {
				return
			}
		}
	}, v, name)
}

func (c *Chain) run(op string, coders iter.Seq[Coder], v *Variable, name string) (*Variable, error) {
	defer c.metrics.observe(op, time.Now())

	for coder := range coders {
		var (
			out *Variable
			err error
		)
		if op == opDecode {
			out, err = coder.Decode(v, name, c.sink)
		} else {
			out, err = coder.Encode(v, name, c.sink)
		}
		c.metrics.call(coder.Kind(), op, err)
		if err != nil {
			c.cfg.logger.Debug("coder failed",
				zap.String("variable", name),
				zap.Stringer("coder", coder.Kind()),
				zap.String("op", op),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%s %s: %w", op, coder.Kind(), err)
		}

		c.cfg.logger.Debug("coder applied",
			zap.String("variable", name),
			zap.Stringer("coder", coder.Kind()),
			zap.String("op", op),
			zap.Bool("changed", out != v),
			zap.Stringer("dtype", out.Data.DType()),
		)
		v = out
	}

	return v, nil
}
