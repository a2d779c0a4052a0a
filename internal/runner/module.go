package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"signal_relay/internal/modules/config"
	openapi "signal_relay/internal/modules/openapi/service"
	"signal_relay/internal/modules/trading/service"
	"signal_relay/pkg/metrics"
)

type routerParams struct {
	fx.In

	LC      fx.Lifecycle
	Config  *config.Config
	Trader  *service.Service
	Symbols *openapi.SymbolIndex
	Store   SignalStore
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

func provideRouter(p routerParams) *Router {
	r := NewRouter(Config{
		Accounts:           p.Config.OpenAPI.AccountIDs,
		AllowedInstruments: p.Config.Trading.AllowedInstruments,
	}, p.Trader, p.Symbols, p.Store, p.Log, p.Metrics)

	p.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				r.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return r
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			provideRouter, // *Router
		),
	)
}
