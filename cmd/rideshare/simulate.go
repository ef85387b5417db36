// README: simulate command; replays the reference scenarios in-process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rideshare/internal/app"
	"rideshare/internal/logger"
)

var simulateVerbose bool

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the reference ride scenarios and print notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var log logger.Logger = logger.NopLogger{}
		if simulateVerbose {
			log = logger.New("simulate")
		}
		return app.Simulate(ctx, cmd.OutOrStdout(), log)
	},
}

func init() {
	simulateCmd.Flags().BoolVarP(&simulateVerbose, "verbose", "v", false, "log dispatch decisions")
	rootCmd.AddCommand(simulateCmd)
}
