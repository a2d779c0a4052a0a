package trading

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"signal_relay/internal/modules/config"
	openapi "signal_relay/internal/modules/openapi/service"
	"signal_relay/internal/modules/trading/service"
	"signal_relay/internal/sizing"
	"signal_relay/pkg/metrics"
)

// NewSizer собирает расчёт объёма из секции trading.
func NewSizer(cfg *config.Config) (sizing.Sizer, error) {
	t := cfg.Trading
	distance, err := sizing.PipDistanceByName(t.PipDistance)
	if err != nil {
		return sizing.Sizer{}, err
	}
	return sizing.Sizer{
		RiskFraction:      t.RiskFraction,
		MinWorkingBalance: t.MinWorkingBalance,
		PipValueMetals:    t.PipValueMetals,
		PipValueDefault:   t.PipValueDefault,
		MetalsID:          t.MetalsInstrumentID,
		Distance:          distance,
	}, nil
}

func NewService(cfg *config.Config, client *openapi.Client, sizer sizing.Sizer, log *zap.Logger, m *metrics.Metrics) *service.Service {
	return service.NewService(client, service.Config{
		MetalsID:    cfg.Trading.MetalsInstrumentID,
		Label:       cfg.Trading.Label,
		Instruments: cfg.Instruments,
		Sizer:       sizer,
	}, log, m)
}

func Module() fx.Option {
	return fx.Module("trading",
		fx.Provide(
			NewSizer,
			NewService,
		),
	)
}
