package diag

import "go.uber.org/zap"

// Zap returns a [Sink] that logs every diagnostic as a warning.
func Zap(logger *zap.Logger) Sink {
	return SinkFunc(func(d Diagnostic) {
		logger.Warn(d.Message,
			zap.String("variable", d.Variable),
			zap.Stringer("kind", d.Kind),
			zap.Int("count", d.Count),
		)
	})
}
