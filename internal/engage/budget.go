// Package engage holds the gates that decide whether the bot may act on a
// mention: the global per-minute budget, per-user cooldowns, the idempotency
// ledger and the platform write-quota gate. All state lives in a store.Store.
package engage

import (
	"context"
	"strconv"
	"time"

	"deadticker/internal/store"
)

// globalWindowTTL outlives the one-minute window to absorb clock skew.
const globalWindowTTL = 70 * time.Second

// Cooldown kinds.
const (
	KindImage       = "image"
	KindInstruction = "instruction"
)

// BudgetConfig holds the limiter settings.
type BudgetConfig struct {
	GlobalPerMinute     int
	ImageCooldown       time.Duration
	InstructionCooldown time.Duration
}

// Limiter enforces the global fixed-window budget and per-user cooldowns.
type Limiter struct {
	kv    store.Store
	cfg   BudgetConfig
	nowFn func() time.Time
}

func NewLimiter(kv store.Store, cfg BudgetConfig) *Limiter {
	return &Limiter{kv: kv, cfg: cfg, nowFn: time.Now}
}

func (l *Limiter) minuteKey() string {
	return "rl:global:" + strconv.FormatInt(l.nowFn().UTC().Unix()/60, 10)
}

// TryConsumeGlobal counts one request against the current UTC minute and
// reports whether the count is within GlobalPerMinute.
func (l *Limiter) TryConsumeGlobal(ctx context.Context) (bool, error) {
	key := l.minuteKey()
	n, err := l.kv.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := l.kv.Expire(ctx, key, globalWindowTTL); err != nil {
			return false, err
		}
	}
	return n <= int64(l.cfg.GlobalPerMinute), nil
}

// TryConsumeUserImage takes the user's image cooldown lock if it is free.
func (l *Limiter) TryConsumeUserImage(ctx context.Context, userID string) (bool, error) {
	return l.tryCooldown(ctx, userID, KindImage, l.cfg.ImageCooldown)
}

// TryConsumeUserInstruction takes the user's instruction cooldown lock if it is free.
func (l *Limiter) TryConsumeUserInstruction(ctx context.Context, userID string) (bool, error) {
	return l.tryCooldown(ctx, userID, KindInstruction, l.cfg.InstructionCooldown)
}

func (l *Limiter) tryCooldown(ctx context.Context, userID, kind string, ttl time.Duration) (bool, error) {
	return l.kv.SetNX(ctx, "rl:user:"+userID+":"+kind, "1", ttl)
}
