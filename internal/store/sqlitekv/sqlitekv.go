package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// DB is a store.Store on a single SQLite file, for running the bot on one host
// without Redis. All access goes through one connection, so every method is
// atomic with respect to the others.
type DB struct {
	sql   *sql.DB
	nowFn func() time.Time
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d, nowFn: time.Now}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.sql.PingContext(ctx) }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL,
	  expires_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_kv_expires ON kv(expires_at);
	`)
	return err
}

func (d *DB) now() int64 { return d.nowFn().UnixMilli() }

// expiry converts a ttl into an absolute millisecond deadline; nil means none.
func (d *DB) expiry(ttl time.Duration) *int64 {
	if ttl <= 0 {
		return nil
	}
	at := d.now() + ttl.Milliseconds()
	return &at
}

func (d *DB) Get(ctx context.Context, key string) (string, bool, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=? AND (expires_at IS NULL OR expires_at>?)`, key, d.now())
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (d *DB) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO kv(key, value, expires_at) VALUES(?,?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at`, key, value, d.expiry(ttl))
	return err
}

func (d *DB) Del(ctx context.Context, key string) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
	return err
}

// Incr drops a stale row first so an expired counter restarts at 1, then
// upserts while leaving expires_at untouched.
func (d *DB) Incr(ctx context.Context, key string) (int64, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	if err := purgeKey(ctx, tx, key, d.now()); err != nil {
		return 0, err
	}
	row := tx.QueryRowContext(ctx, `INSERT INTO kv(key, value) VALUES(?, '1') ON CONFLICT(key) DO UPDATE SET value=CAST(CAST(value AS INTEGER)+1 AS TEXT) RETURNING value`, key)
	var raw string
	if err := row.Scan(&raw); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (d *DB) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE kv SET expires_at=? WHERE key=? AND (expires_at IS NULL OR expires_at>?)`, d.expiry(ttl), key, d.now())
	return err
}

func (d *DB) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()
	if err := purgeKey(ctx, tx, key, d.now()); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO kv(key, value, expires_at) VALUES(?,?,?) ON CONFLICT(key) DO NOTHING`, key, value, d.expiry(ttl))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, tx.Commit()
}

// PurgeExpired deletes every expired row and returns how many went.
func (d *DB) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at<=?`, d.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func purgeKey(ctx context.Context, tx *sql.Tx, key string, now int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key=? AND expires_at IS NOT NULL AND expires_at<=?`, key, now)
	return err
}
