package engage

import (
	"context"
	"time"

	"deadticker/internal/store"
)

// Retention is how long a processed marker is kept.
const Retention = 30 * 24 * time.Hour

// Ledger records which mentions reached a terminal outcome.
type Ledger struct{ kv store.Store }

func NewLedger(kv store.Store) *Ledger { return &Ledger{kv: kv} }

func ledgerKey(mentionID string) string { return "dedupe:tweet:" + mentionID }

// IsProcessed reports whether mentionID was marked.
func (l *Ledger) IsProcessed(ctx context.Context, mentionID string) (bool, error) {
	v, ok, err := l.kv.Get(ctx, ledgerKey(mentionID))
	if err != nil {
		return false, err
	}
	return ok && v == "1", nil
}

// MarkProcessed marks mentionID for Retention.
func (l *Ledger) MarkProcessed(ctx context.Context, mentionID string) error {
	return l.kv.Set(ctx, ledgerKey(mentionID), "1", Retention)
}
