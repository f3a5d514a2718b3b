package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deadticker/internal/compose"
	"deadticker/internal/extract"
	"deadticker/internal/market"
	"deadticker/internal/metrics"
	"deadticker/internal/model"
	"deadticker/internal/moderation"
	"deadticker/internal/render"
	"deadticker/internal/util"
	"deadticker/internal/xclient"
)

// Outcome is the terminal state of one mention.
type Outcome string

const (
	Duplicate     Outcome = "duplicate"
	NoSubject     Outcome = "no_subject"
	Instructed    Outcome = "instructed"
	GlobalLimited Outcome = "global_limited"
	UserCooldown  Outcome = "user_cooldown"
	WriteClosed   Outcome = "write_closed"
	Deferred      Outcome = "deferred"
	Replied       Outcome = "replied"
	Failed        Outcome = "failed"
)

// Marked reports whether the outcome leaves the mention marked processed.
func (o Outcome) Marked() bool {
	switch o {
	case Duplicate, NoSubject, Instructed, Replied:
		return true
	}
	return false
}

type Ledger interface {
	IsProcessed(ctx context.Context, mentionID string) (bool, error)
	MarkProcessed(ctx context.Context, mentionID string) error
}

type Limits interface {
	TryConsumeGlobal(ctx context.Context) (bool, error)
	TryConsumeUserImage(ctx context.Context, userID string) (bool, error)
	TryConsumeUserInstruction(ctx context.Context, userID string) (bool, error)
}

type Gate interface {
	CanWriteNow(ctx context.Context) (bool, error)
	Throttle(ctx context.Context, reset *time.Time) (time.Duration, error)
}

type Resolver interface {
	Resolve(ctx context.Context, s model.Subject) model.ResolvedToken
}

type Renderer interface {
	Render(opts render.Options) ([]byte, error)
}

type TemplatePicker interface {
	Pick(subject string) string
}

// Sink is the write side of the platform.
type Sink interface {
	UploadImage(ctx context.Context, png []byte) (string, error)
	PostReply(ctx context.Context, inReplyTo, text, mediaID string) error
}

type Deps struct {
	Ledger    Ledger
	Limits    Limits
	Gate      Gate
	Resolver  Resolver
	Filter    moderation.Filter
	Renderer  Renderer
	Templates TemplatePicker // optional
	Sink      Sink
	Log       *zap.Logger
}

type Options struct {
	// ReplyInterval is the pause after every posted reply.
	ReplyInterval time.Duration
	// InstructOnMissingSubject sends a text-only how-to reply to mentions
	// that name nothing.
	InstructOnMissingSubject bool
}

// Pipeline runs one mention through dedupe, extraction, resolution,
// moderation, the rate gates and the write path, in that order.
type Pipeline struct {
	d     Deps
	opts  Options
	sleep func(ctx context.Context, d time.Duration) error
}

func New(d Deps, opts Options) *Pipeline {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Pipeline{d: d, opts: opts, sleep: sleepCtx}
}

// Handle processes m. Capacity gates and platform throttles end the mention
// quietly with an unmarked outcome; only unexpected failures return an error.
func (p *Pipeline) Handle(ctx context.Context, m model.Mention) (Outcome, error) {
	out, err := p.handle(ctx, m)
	if err != nil {
		out = Failed
	}
	metrics.MentionOutcomes.WithLabelValues(string(out)).Inc()
	return out, err
}

func (p *Pipeline) handle(ctx context.Context, m model.Mention) (Outcome, error) {
	log := p.d.Log.With(zap.String("mention_id", m.ID), zap.String("author_id", m.AuthorID))

	done, err := p.d.Ledger.IsProcessed(ctx, m.ID)
	if err != nil {
		return "", fmt.Errorf("dedupe check: %w", err)
	}
	if done {
		return Duplicate, nil
	}

	subj := extract.Subject(m.Text)
	if subj.Kind == model.SubjectNone {
		out := NoSubject
		if p.opts.InstructOnMissingSubject {
			out = p.instruct(ctx, log, m)
		}
		if err := p.d.Ledger.MarkProcessed(ctx, m.ID); err != nil {
			return "", fmt.Errorf("mark processed: %w", err)
		}
		log.Debug("no subject", zap.String("outcome", string(out)), zap.String("text", util.Truncate(util.NormalizeWhitespace(m.Text), 80, "…")))
		return out, nil
	}

	token := p.d.Resolver.Resolve(ctx, subj)
	pct := market.FormatPercentChange(token.PriceChange24h)
	mod := p.d.Filter.Sanitize("$" + token.Symbol)

	ok, err := p.d.Limits.TryConsumeGlobal(ctx)
	if err != nil {
		return "", fmt.Errorf("global limit: %w", err)
	}
	if !ok {
		log.Debug("global budget exhausted")
		return GlobalLimited, nil
	}
	ok, err = p.d.Limits.TryConsumeUserImage(ctx, m.AuthorID)
	if err != nil {
		return "", fmt.Errorf("user cooldown: %w", err)
	}
	if !ok {
		log.Debug("user cooling down")
		return UserCooldown, nil
	}
	ok, err = p.d.Gate.CanWriteNow(ctx)
	if err != nil {
		return "", fmt.Errorf("write gate: %w", err)
	}
	if !ok {
		log.Warn("write quota exhausted, skipping for now")
		return WriteClosed, nil
	}

	opts := render.Options{Subject: mod.Subject, PercentChange: pct}
	if p.d.Templates != nil {
		opts.TemplatePath = p.d.Templates.Pick(mod.Subject)
	}
	png, err := p.d.Renderer.Render(opts)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	mediaID, err := p.d.Sink.UploadImage(ctx, png)
	if err != nil {
		if p.deferOnThrottle(ctx, log, "media_upload", err) {
			return Deferred, nil
		}
		return "", fmt.Errorf("upload: %w", err)
	}

	text := compose.Reply(mod.Subject, pct)
	if err := p.d.Sink.PostReply(ctx, m.ID, text, mediaID); err != nil {
		if p.deferOnThrottle(ctx, log, "tweets", err) {
			return Deferred, nil
		}
		return "", fmt.Errorf("reply: %w", err)
	}

	if err := p.d.Ledger.MarkProcessed(ctx, m.ID); err != nil {
		return "", fmt.Errorf("mark processed: %w", err)
	}
	log.Info("replied", zap.String("subject", mod.Subject), zap.Bool("filtered", mod.WasFiltered),
		zap.String("source", string(token.Source)))

	_ = p.sleep(ctx, p.opts.ReplyInterval)
	return Replied, nil
}

// instruct sends the how-to reply for a subject-less mention when the user's
// instruction cooldown and the write gate allow it. Failures only downgrade
// the outcome; a no-subject mention is marked either way.
func (p *Pipeline) instruct(ctx context.Context, log *zap.Logger, m model.Mention) Outcome {
	ok, err := p.d.Limits.TryConsumeUserInstruction(ctx, m.AuthorID)
	if err != nil || !ok {
		return NoSubject
	}
	ok, err = p.d.Gate.CanWriteNow(ctx)
	if err != nil || !ok {
		return NoSubject
	}
	if err := p.d.Sink.PostReply(ctx, m.ID, compose.Instruction(m.ID), ""); err != nil {
		if !p.deferOnThrottle(ctx, log, "tweets", err) {
			log.Warn("instruction reply failed", zap.Error(err))
		}
		return NoSubject
	}
	_ = p.sleep(ctx, p.opts.ReplyInterval)
	return Instructed
}

// deferOnThrottle turns a platform 429 into a stored resume time. It reports
// false for any other error.
func (p *Pipeline) deferOnThrottle(ctx context.Context, log *zap.Logger, endpoint string, err error) bool {
	var apiErr *xclient.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsRateLimited() {
		return false
	}
	metrics.WriteThrottles.WithLabelValues(endpoint).Inc()
	wait, serr := p.d.Gate.Throttle(ctx, apiErr.RateLimitReset)
	if serr != nil {
		log.Error("persist write resume", zap.Error(serr))
	}
	log.Warn("write throttled, deferring", zap.String("endpoint", endpoint), zap.Duration("wait", wait))
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
