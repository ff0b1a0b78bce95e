package txpager

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/Alp4ka/txpager"

// TxOption configures a Transaction.
type TxOption func(*txConfig)

type txConfig struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func newTxConfig(opts []TxOption) txConfig {
	cfg := txConfig{
		logger: zap.NewNop(),
		tracer: otel.Tracer(instrumentationName),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// WithLogger sets the logger for lifecycle events. Nil keeps the no-op
// logger.
func WithLogger(logger *zap.Logger) TxOption {
	return func(cfg *txConfig) {
		if logger != nil {
			cfg.logger = logger.With(zap.String("component", "txpager"))
		}
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(tracer trace.Tracer) TxOption {
	return func(cfg *txConfig) {
		if tracer != nil {
			cfg.tracer = tracer
		}
	}
}
