package jobs

import (
	"context"
	"strings"

	"deadticker/internal/store"
)

const cursorKey = "mentions:since_id"

// Cursor is the since-id of the mention stream. It only moves forward.
type Cursor struct{ kv store.Store }

func NewCursor(kv store.Store) *Cursor { return &Cursor{kv: kv} }

// Get returns the stored since-id, or "" before the first batch.
func (c *Cursor) Get(ctx context.Context) (string, error) {
	v, _, err := c.kv.Get(ctx, cursorKey)
	return v, err
}

// Advance stores id when it is newer than the current value and reports
// whether it moved.
func (c *Cursor) Advance(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	cur, err := c.Get(ctx)
	if err != nil {
		return false, err
	}
	if cur != "" && !newerID(id, cur) {
		return false, nil
	}
	return true, c.kv.Set(ctx, cursorKey, id, 0)
}

// newerID compares decimal snowflake ids without parsing them.
func newerID(a, b string) bool {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
