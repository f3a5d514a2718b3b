package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deadticker/internal/config"
	"deadticker/internal/extract"
	"deadticker/internal/market"
	"deadticker/internal/model"
	"deadticker/internal/moderation"
)

type resolveOut struct {
	Token    model.ResolvedToken `json:"token"`
	Display  string              `json:"display"`
	Filtered bool                `json:"filtered"`
	Percent  *float64            `json:"percent,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "resolve <text>",
		Short: "Resolve the subject of a mention text through the store and market data",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = withConfig("resolve", func(ctx context.Context, cmd *cobra.Command, cfg config.Config, log *zap.Logger) error {
		subj := extract.Subject(strings.Join(cmd.Flags().Args(), " "))
		if subj.Kind == model.SubjectNone {
			return errors.New("no ticker or contract found")
		}
		kv, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer kv.Close()
		tok := newResolver(cfg, kv, log).Resolve(ctx, subj)
		mod := moderation.New(cfg.Moderation.Blocklist...).Sanitize("$" + tok.Symbol)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resolveOut{
			Token:    tok,
			Display:  mod.Subject,
			Filtered: mod.WasFiltered,
			Percent:  market.FormatPercentChange(tok.PriceChange24h),
		})
	})
	RootCmd.AddCommand(cmd)
}
