package openapi

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"signal_relay/internal/modules/config"
	"signal_relay/internal/modules/openapi/service"
	"signal_relay/internal/notify"
	"signal_relay/pkg/metrics"
)

func NewClientConfig(cfg *config.Config) service.Config {
	o := cfg.OpenAPI
	return service.Config{
		URL:               o.URL,
		ClientID:          o.ClientID,
		ClientSecret:      o.ClientSecret,
		AccessToken:       o.AccessToken,
		AccountIDs:        o.AccountIDs,
		HeartbeatInterval: o.HeartbeatInterval,
		RequestTimeout:    o.RequestTimeout,
		Backoff: service.Backoff{
			Initial:     o.Backoff.Initial,
			Factor:      o.Backoff.Factor,
			Max:         o.Backoff.Max,
			MaxAttempts: o.Backoff.MaxAttempts,
		},
	}
}

func NewClient(cfg service.Config, log *zap.Logger, m *metrics.Metrics) *service.Client {
	return service.NewClient(cfg, service.NewWSDialer(), log, m)
}

func NewSymbolIndex(c *service.Client) *service.SymbolIndex {
	return service.NewSymbolIndex(c)
}

type runParams struct {
	fx.In

	LC         fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     *config.Config
	Client     *service.Client
	Index      *service.SymbolIndex
	Log        *zap.Logger
	Notifier   notify.Notifier
}

// Run: символы перечитываются на каждом Ready, фатальная ошибка гасит процесс с кодом 1,
// перезапуск — забота супервизора.
func Run(p runParams) error {
	if err := p.Config.Validate(); err != nil {
		return err
	}

	log := p.Log.Named("openapi")

	p.Client.OnReady(func(ctx context.Context) {
		for accountID, err := range p.Index.RefreshAll(ctx, p.Client.AccountIDs()) {
			log.Error("symbol refresh failed", zap.Int64("account_id", accountID), zap.Error(err))
		}
	})

	p.Client.OnFatal(func(err error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		p.Notifier.SendService(ctx, "⛔️ Соединение с брокером потеряно окончательно: %v", err)
		cancel()
		if shErr := p.Shutdowner.Shutdown(fx.ExitCode(1)); shErr != nil {
			log.Error("shutdown failed", zap.Error(shErr))
		}
	})

	p.Client.OnEvent(func(env *service.Envelope) {
		log.Info("broker event",
			zap.Stringer("payload_type", env.PayloadType),
			zap.ByteString("payload", env.Payload),
		)
	})

	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// ctx хука живёт только на время старта
			p.Client.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Client.Stop(ctx)
		},
	})
	return nil
}

func Module() fx.Option {
	return fx.Module("openapi",
		fx.Provide(
			NewClientConfig,
			NewClient,
			NewSymbolIndex,
		),
		fx.Invoke(Run),
	)
}
