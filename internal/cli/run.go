package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deadticker/internal/config"
	"deadticker/internal/jobs"
	"deadticker/internal/metrics"
	"deadticker/internal/store/sqlitekv"
	"deadticker/internal/theme"
)

const purgeInterval = time.Hour

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll mentions and reply until interrupted",
		Args:  cobra.NoArgs,
		RunE:  withConfig("run", runBot),
	}
	RootCmd.AddCommand(cmd)
}

func runBot(ctx context.Context, cmd *cobra.Command, cfg config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	theme.PrintBanner()
	log.Info("deadticker starting", zap.String("env", cfg.App.Env), zap.String("store", cfg.Store.Driver))

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	kv := withPrefix(cfg, backend)
	defer kv.Close()
	if err := kv.Ping(ctx); err != nil {
		return err
	}
	log.Info("store ready")

	srv := metrics.StartServer(cfg.App.MetricsAddr)
	if srv != nil {
		log.Info("metrics listening", zap.String("addr", srv.Addr))
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if db, ok := backend.(*sqlitekv.DB); ok {
		go purgeLoop(ctx, db, log)
	}

	// the account id is looked up by the first poll, so platform errors
	// land in the poll backoff
	client := newClient(cfg)

	p, err := newPipeline(cfg, kv, client, log)
	if err != nil {
		return err
	}
	poller := jobs.NewPoller(client, p, jobs.NewCursor(kv), jobs.PollConfig{
		BaseInterval:    cfg.Poll.BaseInterval,
		MaxInterval:     cfg.Poll.MaxInterval,
		MentionInterval: cfg.Poll.ReplyInterval,
		ErrorBackoff:    cfg.Poll.ErrorBackoff,
	}, log.Named("poller"))

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("deadticker stopped")
	return nil
}

// purgeLoop drops expired sqlite rows; Redis expires keys on its own. It
// shares the store's handle so purges queue behind other statements.
func purgeLoop(ctx context.Context, db *sqlitekv.DB, log *zap.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := db.PurgeExpired(ctx)
			if err != nil {
				log.Warn("purge expired", zap.Error(err))
				continue
			}
			log.Debug("purged expired keys", zap.Int64("rows", n))
		}
	}
}
