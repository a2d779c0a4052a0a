package config

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"signal_relay/pkg/logger"
)

// NewLogger — процессный zap-логгер по секции log.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Service:     cfg.Service.Name,
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
}

// Module регистрирует конфиг и логгер как fx-провайдеры; события fx идут в тот же zap.
func Module(opts Options) fx.Option {
	return fx.Module("config",
		fx.Supply(opts),
		fx.Provide(
			NewConfig,
			NewLogger,
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)
}
