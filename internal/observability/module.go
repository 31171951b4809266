// Package observability wires logging, tracing and metrics into the fx graph.
package observability

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ecoledger/ecoledger/internal/config"
	"github.com/ecoledger/ecoledger/internal/observability/logger"
	"github.com/ecoledger/ecoledger/internal/observability/metrics"
	"github.com/ecoledger/ecoledger/internal/observability/tracing"
)

var Module = fx.Module("observability",
	fx.Provide(newLogger),
	fx.Provide(newEngineMetrics),
	fx.Invoke(tracing.NewProvider),
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{Environment: cfg.Environment})
}

func newEngineMetrics(cfg config.Config) *metrics.EngineMetrics {
	return metrics.EngineWithConfig(metrics.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
	})
}
