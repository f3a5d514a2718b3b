package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deadticker/internal/config"
	"deadticker/internal/market"
	"deadticker/internal/render"
)

func init() {
	var (
		subject, epitaph, template, out string
		pct                             float64
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one tombstone to a PNG file",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withConfig("render", func(ctx context.Context, cmd *cobra.Command, cfg config.Config, log *zap.Logger) error {
		if subject == "" {
			return errors.New("--subject is required")
		}
		r, err := newRenderer(cfg)
		if err != nil {
			return err
		}
		opts := render.Options{Subject: subject, Epitaph: epitaph, TemplatePath: template}
		if cmd.Flags().Changed("pct") {
			opts.PercentChange = market.FormatPercentChange(&pct)
		}
		if opts.TemplatePath == "" {
			opts.TemplatePath = render.NewTemplates(cfg.Render.TemplateDir).Pick(subject)
		}
		png, err := r.Render(opts)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, png, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(png))
		return nil
	})
	cmd.Flags().StringVar(&subject, "subject", "", "Text to engrave, e.g. $WIF")
	cmd.Flags().Float64Var(&pct, "pct", 0, "24h percent change for the footer")
	cmd.Flags().StringVar(&epitaph, "epitaph", "", "Epitaph (default: picked from the subject)")
	cmd.Flags().StringVar(&template, "template", "", "Background image (default: picked from render.templateDir)")
	cmd.Flags().StringVarP(&out, "out", "o", "tombstone.png", "Output file")
	RootCmd.AddCommand(cmd)
}
