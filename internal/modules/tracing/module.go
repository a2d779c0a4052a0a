package tracing

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"signal_relay/internal/modules/config"
	"signal_relay/pkg/tracing"
)

// Init: при tracing.enabled спаны уходят в jaeger-агент,
// иначе opentracing остаётся на NoopTracer.
func Init(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) error {
	if !cfg.Tracing.Enabled {
		return nil
	}

	_, closeFn, err := tracing.InitTracer(tracing.Config{
		Service: cfg.Service.Name,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	}, log.Named("jaeger"))
	if err != nil {
		return err
	}
	log.Info("tracing enabled", zap.String("agent", cfg.Tracing.Host), zap.Int("port", cfg.Tracing.Port))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})
	return nil
}

func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(Init),
	)
}
