package engage

import (
	"context"
	"strconv"
	"time"

	"deadticker/internal/store"
)

const (
	writeResumeKey = "twitter:write_resume_at_ms"

	// MinResumeDelay floors a reset-derived wait.
	MinResumeDelay = time.Minute
	// DefaultResumeDelay applies when a throttle carries no reset hint.
	DefaultResumeDelay = 5 * time.Minute
)

// ResumeDelay is how long to hold off after a throttle. With a reset hint it
// is max((reset-now)*1000ms, 60s) in whole seconds, otherwise five minutes.
func ResumeDelay(now time.Time, reset *time.Time) time.Duration {
	if reset == nil {
		return DefaultResumeDelay
	}
	wait := time.Duration(reset.Unix()-now.Unix()) * time.Second
	if wait < MinResumeDelay {
		return MinResumeDelay
	}
	return wait
}

// WriteGate is the bot-wide write quota switch. Once a resume time is set,
// every upload and reply is skipped until it passes.
type WriteGate struct {
	kv    store.Store
	nowFn func() time.Time
}

func NewWriteGate(kv store.Store) *WriteGate { return &WriteGate{kv: kv, nowFn: time.Now} }

// ResumeAt returns the stored resume time, if any.
func (g *WriteGate) ResumeAt(ctx context.Context) (time.Time, bool, error) {
	v, ok, err := g.kv.Get(ctx, writeResumeKey)
	if err != nil || !ok || v == "" {
		return time.Time{}, false, err
	}
	ms, perr := strconv.ParseInt(v, 10, 64)
	if perr != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// CanWriteNow is true when no resume time is stored or it has passed.
func (g *WriteGate) CanWriteNow(ctx context.Context) (bool, error) {
	at, ok, err := g.ResumeAt(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return !g.nowFn().Before(at), nil
}

// SetResume stores at as the earliest time writes may resume.
func (g *WriteGate) SetResume(ctx context.Context, at time.Time) error {
	return g.kv.Set(ctx, writeResumeKey, strconv.FormatInt(at.UnixMilli(), 10), 0)
}

func (g *WriteGate) ClearResume(ctx context.Context) error { return g.kv.Del(ctx, writeResumeKey) }

// Throttle records a platform throttle and returns the wait it applied.
func (g *WriteGate) Throttle(ctx context.Context, reset *time.Time) (time.Duration, error) {
	now := g.nowFn()
	wait := ResumeDelay(now, reset)
	return wait, g.SetResume(ctx, now.Add(wait))
}
