package cli

import (
	"fmt"

	"go.uber.org/zap"

	"deadticker/internal/config"
	"deadticker/internal/engage"
	"deadticker/internal/market"
	"deadticker/internal/moderation"
	"deadticker/internal/pipeline"
	"deadticker/internal/render"
	"deadticker/internal/resolve"
	"deadticker/internal/store"
	"deadticker/internal/store/rediskv"
	"deadticker/internal/store/sqlitekv"
	"deadticker/internal/xclient"
)

// openStore opens the configured backend and namespaces it with the prefix.
func openStore(cfg config.Config) (store.Store, error) {
	kv, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	return withPrefix(cfg, kv), nil
}

// openBackend opens the configured backend without a key prefix.
func openBackend(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "redis":
		if cfg.Store.RedisURL == "" {
			return nil, fmt.Errorf("store.redisURL (or REDIS_URL) is required for the redis driver")
		}
		r, err := rediskv.Open(cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "sqlite":
		db, err := sqlitekv.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func withPrefix(cfg config.Config, kv store.Store) store.Store {
	if cfg.Store.Prefix == "" {
		return kv
	}
	return store.WithPrefix(kv, cfg.Store.Prefix)
}

func newClient(cfg config.Config) *xclient.Client {
	return xclient.New(xclient.Config{
		BaseURL:        cfg.API.BaseURL,
		UploadURL:      cfg.API.UploadURL,
		BearerToken:    cfg.Credentials.BearerToken,
		ConsumerKey:    cfg.Credentials.ConsumerKey,
		ConsumerSecret: cfg.Credentials.ConsumerSecret,
		AccessToken:    cfg.Credentials.AccessToken,
		AccessSecret:   cfg.Credentials.AccessSecret,
		RPS:            cfg.API.RPS,
		Burst:          cfg.API.Burst,
		MaxAttempts:    cfg.API.MaxAttempts,
		BaseBackoff:    cfg.API.BaseBackoff,
		Timeout:        cfg.API.Timeout,
	})
}

func newResolver(cfg config.Config, kv store.Store, log *zap.Logger) *resolve.Resolver {
	return resolve.New(kv, market.NewDexScreener(cfg.Market.BaseURL, cfg.Market.Timeout), log.Named("resolve"))
}

func newRenderer(cfg config.Config) (*render.Renderer, error) {
	return render.New(cfg.Render.RegularFont, cfg.Render.BoldFont)
}

func newPipeline(cfg config.Config, kv store.Store, sink pipeline.Sink, log *zap.Logger) (*pipeline.Pipeline, error) {
	r, err := newRenderer(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Deps{
		Ledger: engage.NewLedger(kv),
		Limits: engage.NewLimiter(kv, engage.BudgetConfig{
			GlobalPerMinute:     cfg.Limits.GlobalPerMinute,
			ImageCooldown:       cfg.Limits.ImageCooldown,
			InstructionCooldown: cfg.Limits.InstructionCooldown,
		}),
		Gate:      engage.NewWriteGate(kv),
		Resolver:  newResolver(cfg, kv, log),
		Filter:    moderation.New(cfg.Moderation.Blocklist...),
		Renderer:  r,
		Templates: render.NewTemplates(cfg.Render.TemplateDir),
		Sink:      sink,
		Log:       log.Named("pipeline"),
	}, pipeline.Options{
		ReplyInterval:            cfg.Poll.ReplyInterval,
		InstructOnMissingSubject: cfg.Replies.InstructOnMissingSubject,
	}), nil
}
