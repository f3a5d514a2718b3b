// Package cli implements the deadticker commands.
package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deadticker/internal/cmdlog"
	"deadticker/internal/config"
	"deadticker/internal/logging"
)

var cfgPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "deadticker",
	Short:         "Engraves tombstones for tokens people mention",
	Long:          "deadticker watches its mentions for a $TICKER or contract address and replies with a rendered tombstone.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env is fine
		_ = godotenv.Load()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: ./deadticker.yaml or ./config/deadticker.yaml)")
}

// Execute runs the command line with ctx as the root context.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// withConfig loads config and a logger, then runs fn through cmdlog.
func withConfig(name string, fn func(ctx context.Context, cmd *cobra.Command, cfg config.Config, log *zap.Logger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.App.Env, cfg.App.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		return cmdlog.Run(log, name, func() error { return fn(cmd.Context(), cmd, cfg, log) })
	}
}
