package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deadticker/internal/config"
	"deadticker/internal/engage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show when writes resume after a platform throttle",
		Args:  cobra.NoArgs,
		RunE: withConfig("quota", func(ctx context.Context, cmd *cobra.Command, cfg config.Config, log *zap.Logger) error {
			kv, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer kv.Close()
			at, ok, err := engage.NewWriteGate(kv).ResumeAt(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !ok:
				fmt.Fprintln(out, "writes open")
			case time.Now().Before(at):
				fmt.Fprintf(out, "writes paused until %s (%s)\n", at.UTC().Format(time.RFC3339), time.Until(at).Round(time.Second))
			default:
				fmt.Fprintf(out, "writes open (last pause ended %s)\n", at.UTC().Format(time.RFC3339))
			}
			return nil
		}),
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the stored resume time so writes are allowed now",
		Args:  cobra.NoArgs,
		RunE: withConfig("quota_clear", func(ctx context.Context, cmd *cobra.Command, cfg config.Config, log *zap.Logger) error {
			kv, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer kv.Close()
			if err := engage.NewWriteGate(kv).ClearResume(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "write resume cleared")
			return nil
		}),
	}
	cmd.AddCommand(clearCmd)
	RootCmd.AddCommand(cmd)
}
