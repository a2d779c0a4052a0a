package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"signal_relay/internal/modules/config"
	"signal_relay/internal/modules/health"
	"signal_relay/internal/modules/openapi"
	"signal_relay/internal/modules/postgres"
	telegram "signal_relay/internal/modules/telegram_bot"
	"signal_relay/internal/modules/tracing"
	"signal_relay/internal/modules/trading"
	"signal_relay/internal/runner"
)

func newApp() *fx.App {
	return fx.New(
		config.Module(opts),
		tracing.Module(),
		health.Module(),
		postgres.Module(),
		openapi.Module(),
		trading.Module(),
		runner.Module(),
		telegram.Module(),
	)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the broker and relay signals until stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := newApp()
			if err := app.Err(); err != nil {
				return err
			}
			// Run блокируется до SIGINT/SIGTERM или Shutdown; код выхода из Shutdown уходит в os.Exit
			app.Run()
			return nil
		},
	}
}
