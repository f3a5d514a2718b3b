package jobs

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"deadticker/internal/engage"
	"deadticker/internal/metrics"
	"deadticker/internal/model"
	"deadticker/internal/pipeline"
	"deadticker/internal/xclient"
)

// MentionSource fetches mentions newer than sinceID.
type MentionSource interface {
	FetchMentions(ctx context.Context, sinceID string) (xclient.Batch, error)
}

// MentionHandler processes one mention.
type MentionHandler interface {
	Handle(ctx context.Context, m model.Mention) (pipeline.Outcome, error)
}

type PollConfig struct {
	// BaseInterval is the wait after a non-empty batch and the start of the
	// idle backoff.
	BaseInterval time.Duration
	// MaxInterval caps the idle backoff.
	MaxInterval time.Duration
	// MentionInterval is the pause after each mention in a batch.
	MentionInterval time.Duration
	// ErrorBackoff is the wait after a poll failure that is not a throttle.
	ErrorBackoff time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		BaseInterval:    30 * time.Second,
		MaxInterval:     5 * time.Minute,
		MentionInterval: 2 * time.Second,
		ErrorBackoff:    10 * time.Second,
	}
}

// Poller is the single worker: fetch, handle oldest first, advance the
// cursor, sleep, repeat.
type Poller struct {
	src        MentionSource
	handler    MentionHandler
	cursor     *Cursor
	cfg        PollConfig
	log        *zap.Logger
	emptyPolls int
	nowFn      func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewPoller(src MentionSource, handler MentionHandler, cursor *Cursor, cfg PollConfig, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{src: src, handler: handler, cursor: cursor, cfg: cfg, log: log, nowFn: time.Now, sleep: sleepCtx}
}

// idleWait grows by 1.5x per consecutive empty poll, holding after the fourth.
func (p *Poller) idleWait() time.Duration {
	n := math.Min(float64(p.emptyPolls), 4)
	wait := time.Duration(float64(p.cfg.BaseInterval) * math.Pow(1.5, n))
	if wait > p.cfg.MaxInterval {
		return p.cfg.MaxInterval
	}
	return wait
}

// RunOnce runs one cycle and returns how long to wait before the next. A
// fetch failure is returned along with its backoff.
func (p *Poller) RunOnce(ctx context.Context) (time.Duration, error) {
	log := p.log.With(zap.String("cycle", ulid.Make().String()))
	metrics.PollCycles.Inc()

	since, err := p.cursor.Get(ctx)
	if err != nil {
		metrics.PollErrors.WithLabelValues("store").Inc()
		return p.cfg.ErrorBackoff, err
	}
	batch, err := p.src.FetchMentions(ctx, since)
	if err != nil {
		var apiErr *xclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsRateLimited() {
			metrics.PollErrors.WithLabelValues("throttled").Inc()
			wait := engage.ResumeDelay(p.nowFn(), apiErr.RateLimitReset)
			log.Warn("poll throttled", zap.Duration("wait", wait))
			return wait, err
		}
		metrics.PollErrors.WithLabelValues("other").Inc()
		log.Error("fetch mentions", zap.Error(err))
		return p.cfg.ErrorBackoff, err
	}

	if len(batch.Mentions) == 0 {
		p.emptyPolls++
		wait := p.idleWait()
		log.Debug("no mentions", zap.Int("empty_polls", p.emptyPolls), zap.Duration("wait", wait))
		return wait, nil
	}
	p.emptyPolls = 0

	// the platform returns newest first
	for i := len(batch.Mentions) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			log.Info("stopping mid-batch", zap.Int("remaining", i+1))
			return 0, ctx.Err()
		}
		m := batch.Mentions[i]
		out, err := p.handler.Handle(ctx, m)
		if err != nil {
			log.Error("handle mention", zap.String("mention_id", m.ID), zap.Error(err))
		} else {
			log.Debug("mention handled", zap.String("mention_id", m.ID), zap.String("outcome", string(out)), zap.Bool("marked", out.Marked()))
		}
		_ = p.sleep(ctx, p.cfg.MentionInterval)
	}

	if _, err := p.cursor.Advance(ctx, batch.NewestID); err != nil {
		log.Error("advance cursor", zap.String("newest_id", batch.NewestID), zap.Error(err))
	}
	log.Info("batch done", zap.Int("mentions", len(batch.Mentions)), zap.String("newest_id", batch.NewestID))
	return p.cfg.BaseInterval, nil
}

// Run polls until ctx is cancelled. The mention in flight always completes
// first.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("poller start")
	for {
		wait, _ := p.RunOnce(ctx)
		if err := p.sleep(ctx, wait); err != nil {
			p.log.Info("poller stop")
			return err
		}
		if ctx.Err() != nil {
			p.log.Info("poller stop")
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
