package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"signal_relay/internal/modules/config"
	"signal_relay/internal/modules/postgres/service/pg"
	"signal_relay/internal/runner"
	"signal_relay/pkg/db"
)

// NewSignalStore: без DSN журнал выключен, иначе пул + таблица signals.
func NewSignalStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (runner.SignalStore, error) {
	if cfg.DB == "" {
		log.Info("db_dsn is empty, signals are not persisted")
		return pg.Nop{}, nil
	}

	ctx := context.Background()
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, err
	}

	tx := db.NewPgTxManager(poolMaster, log.Named("db"))
	signals := pg.NewSignals(tx)
	if err = signals.EnsureSchema(ctx); err != nil {
		tx.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tx.Close()
			return nil
		},
	})
	return signals, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewSignalStore,
		),
	)
}
