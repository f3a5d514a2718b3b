package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func openTest(t *testing.T) (*DB, *fakeClock) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	clk := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	db.nowFn = clk.now
	return db, clk
}

func TestSetGetDel(t *testing.T) {
	db, _ := openTest(t)
	ctx := context.Background()
	if err := db.Set(ctx, "mentions:since_id", "123", 0); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.Get(ctx, "mentions:since_id")
	if err != nil || !ok || v != "123" {
		t.Fatalf("cursor mismatch: %v %v %s", err, ok, v)
	}
	if err := db.Del(ctx, "mentions:since_id"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.Get(ctx, "mentions:since_id"); ok {
		t.Fatalf("expected key deleted")
	}
}

func TestExpiryHidesValue(t *testing.T) {
	db, clk := openTest(t)
	ctx := context.Background()
	_ = db.Set(ctx, "k", "v", time.Minute)
	clk.t = clk.t.Add(59 * time.Second)
	if _, ok, _ := db.Get(ctx, "k"); !ok {
		t.Fatalf("expected live key")
	}
	clk.t = clk.t.Add(2 * time.Second)
	if _, ok, _ := db.Get(ctx, "k"); ok {
		t.Fatalf("expected expired key")
	}
	n, err := db.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("purge: %v %d", err, n)
	}
}

func TestIncrRestartsAfterExpiry(t *testing.T) {
	db, clk := openTest(t)
	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		n, err := db.Incr(ctx, "rl:global:1")
		if err != nil || n != want {
			t.Fatalf("incr: %v got %d want %d", err, n, want)
		}
		if want == 1 {
			_ = db.Expire(ctx, "rl:global:1", 70*time.Second)
		}
	}
	clk.t = clk.t.Add(71 * time.Second)
	n, err := db.Incr(ctx, "rl:global:1")
	if err != nil || n != 1 {
		t.Fatalf("expected counter restart, got %d %v", n, err)
	}
}

func TestSetNXRespectsTTL(t *testing.T) {
	db, clk := openTest(t)
	ctx := context.Background()
	ok, err := db.SetNX(ctx, "rl:user:u1:image", "1", 2*time.Minute)
	if err != nil || !ok {
		t.Fatalf("first setnx: %v %v", ok, err)
	}
	ok, _ = db.SetNX(ctx, "rl:user:u1:image", "1", 2*time.Minute)
	if ok {
		t.Fatalf("expected lock held")
	}
	clk.t = clk.t.Add(2*time.Minute + time.Second)
	ok, _ = db.SetNX(ctx, "rl:user:u1:image", "1", 2*time.Minute)
	if !ok {
		t.Fatalf("expected lock re-acquired after ttl")
	}
}

func TestPurgeAlongsideWritesOnOneHandle(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 200; i++ {
			if _, err := db.PurgeExpired(ctx); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	for i := 0; i < 200; i++ {
		if _, err := db.Incr(ctx, "rl:global:1"); err != nil {
			t.Fatalf("incr %d: %v", i, err)
		}
		if _, err := db.SetNX(ctx, "rl:user:u1:image", "1", time.Millisecond); err != nil {
			t.Fatalf("setnx %d: %v", i, err)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("purge: %v", err)
	}
	n, _, err := db.Get(ctx, "rl:global:1")
	if err != nil || n != "200" {
		t.Fatalf("counter: %v %s", err, n)
	}
}
