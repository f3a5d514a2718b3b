package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deadticker/internal/config"
	"deadticker/internal/engage"
	"deadticker/internal/store"
	"deadticker/internal/store/sqlitekv"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs(args)
	err := Execute(ctx)
	return out.String(), err
}

func sqliteEnv(t *testing.T) (cfgFile, dbPath string) {
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "dt.db")
	t.Setenv("DEADTICKER_STORE_DRIVER", "sqlite")
	t.Setenv("DEADTICKER_STORE_SQLITEPATH", dbPath)
	t.Setenv("DEADTICKER_APP_LOGLEVEL", "error")
	return filepath.Join(dir, "none.yaml"), dbPath
}

func TestExtractCommand(t *testing.T) {
	out, err := execute(t, "extract", "RIP", "$wif", "lol")
	require.NoError(t, err)
	var got subjectOut
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, subjectOut{Kind: "ticker", Value: "WIF"}, got)

	out, err = execute(t, "extract", "hello")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "none", got.Kind)
}

func TestRenderCommand(t *testing.T) {
	cfgFile, _ := sqliteEnv(t)
	dest := filepath.Join(t.TempDir(), "wif.png")
	out, err := execute(t, "render", "--config", cfgFile, "--subject", "$WIF", "--pct", "-12.5", "--out", dest)
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+dest)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 1024, cfg.Width)
}

func TestQuotaCommands(t *testing.T) {
	cfgFile, dbPath := sqliteEnv(t)

	out, err := execute(t, "quota", "--config", cfgFile)
	require.NoError(t, err)
	require.Equal(t, "writes open\n", out)

	db, err := sqlitekv.Open(dbPath)
	require.NoError(t, err)
	gate := engage.NewWriteGate(store.WithPrefix(db, "deadticker"))
	require.NoError(t, gate.SetResume(context.Background(), time.Now().Add(time.Hour)))
	require.NoError(t, db.Close())

	out, err = execute(t, "quota", "--config", cfgFile)
	require.NoError(t, err)
	require.Contains(t, out, "writes paused until")

	out, err = execute(t, "quota", "clear", "--config", cfgFile)
	require.NoError(t, err)
	require.Equal(t, "write resume cleared\n", out)

	out, err = execute(t, "quota", "--config", cfgFile)
	require.NoError(t, err)
	require.Equal(t, "writes open\n", out)
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deadticker.yaml")
	_, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	require.FileExists(t, path)

	_, err = execute(t, "init", "--config", path)
	require.ErrorContains(t, err, "already exists")
}

func TestRunValidatesConfig(t *testing.T) {
	cfgFile, _ := sqliteEnv(t)
	for _, k := range []string{"X_CONSUMER_KEY", "X_CONSUMER_SECRET", "X_ACCESS_TOKEN", "X_ACCESS_SECRET"} {
		t.Setenv(k, "")
	}
	_, err := execute(t, "run", "--config", cfgFile)
	require.ErrorContains(t, err, "credentials.consumerKey")
}

func TestRunBacksOffOnPlatformErrors(t *testing.T) {
	cfgFile, _ := sqliteEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// an outage, then a throttle; the bot must keep polling through both
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		cancel()
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	for k, v := range map[string]string{
		"X_CONSUMER_KEY":               "ck",
		"X_CONSUMER_SECRET":            "cs",
		"X_ACCESS_TOKEN":               "at",
		"X_ACCESS_SECRET":              "as",
		"X_BEARER_TOKEN":               "",
		"METRICS_ADDR":                 "",
		"DEADTICKER_API_BASEURL":       srv.URL,
		"DEADTICKER_API_MAXATTEMPTS":   "1",
		"DEADTICKER_POLL_ERRORBACKOFF": "10ms",
		"DEADTICKER_APP_METRICSADDR":   "",
	} {
		t.Setenv(k, v)
	}

	_, err := executeContext(t, ctx, "run", "--config", cfgFile)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestRunPurgesThroughTheStoreHandle(t *testing.T) {
	_, dbPath := sqliteEnv(t)
	cfg := config.Default()
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = dbPath

	backend, err := openBackend(cfg)
	require.NoError(t, err)
	db, ok := backend.(*sqlitekv.DB)
	require.True(t, ok)
	kv := withPrefix(cfg, backend)
	defer kv.Close()

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "rl:user:u1:image", "1", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	n, err := db.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
