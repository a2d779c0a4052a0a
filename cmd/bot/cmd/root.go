package cmd

import (
	"github.com/spf13/cobra"

	"signal_relay/internal/modules/config"
)

var opts config.Options

var rootCmd = &cobra.Command{
	Use:           "bot",
	Short:         "Relay trade signals from Telegram channels to cTrader accounts",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&opts.File, "config", "c", "", "config file (default configs/values_local.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level")

	rootCmd.AddCommand(
		newRunCmd(),
		newParseCmd(),
	)
}
