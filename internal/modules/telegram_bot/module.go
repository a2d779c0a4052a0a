package telegram

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"signal_relay/internal/modules/config"
	openapi "signal_relay/internal/modules/openapi/service"
	"signal_relay/internal/modules/telegram_bot/service"
	"signal_relay/internal/notify"
	"signal_relay/internal/runner"
)

type params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Router *runner.Router
	Client *openapi.Client
	Log    *zap.Logger
}

// NewNotifier: с токеном — бот читает каналы и пишет оператору,
// без токена входа нет и отчёты идут в лог.
func NewNotifier(p params) (notify.Notifier, error) {
	if p.Config.Telegram.Token == "" {
		p.Log.Warn("telegram token is empty, chat intake disabled")
		return notify.NewStdout(p.Log), nil
	}

	t, err := service.NewTelegram(p.Config, p.Router, p.Client, p.Log)
	if err != nil {
		return nil, err
	}

	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			t.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return t.Stop(ctx)
		},
	})
	return t, nil
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewNotifier, // notify.Notifier
		),
		// бот должен подняться даже если Notifier больше никому не нужен
		fx.Invoke(func(notify.Notifier) {}),
	)
}
