package xclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(ts *httptest.Server) *Client {
	c := New(Config{
		BaseURL:        ts.URL + "/2",
		UploadURL:      ts.URL + "/1.1/media/upload.json",
		BearerToken:    "bearer",
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AccessToken:    "at",
		AccessSecret:   "as",
		RPS:            1000,
		Burst:          100,
		MaxAttempts:    3,
		BaseBackoff:    time.Millisecond,
	})
	c.httpClient = ts.Client()
	return c
}

func meHandler(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"data":{"id":"42","username":"deadticker"}}`))
}

func TestFetchMentionsCachesIdentity(t *testing.T) {
	var meCalls int32
	var gotSince, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/users/me":
			atomic.AddInt32(&meCalls, 1)
			meHandler(w)
		case "/2/users/42/mentions":
			gotSince = r.URL.Query().Get("since_id")
			gotAuth = r.Header.Get("Authorization")
			require.Equal(t, "50", r.URL.Query().Get("max_results"))
			_, _ = w.Write([]byte(`{"data":[{"id":"3","text":"RIP $WIF","author_id":"u1"},{"id":"2","text":"hello","author_id":"u2"}],"meta":{"newest_id":"3","result_count":2}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := newTestClient(ts)
	b, err := c.FetchMentions(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "3", b.NewestID)
	require.Len(t, b.Mentions, 2)
	require.Equal(t, "u1", b.Mentions[0].AuthorID)
	require.Equal(t, "RIP $WIF", b.Mentions[0].Text)
	require.Equal(t, "1", gotSince)
	require.Equal(t, "Bearer bearer", gotAuth)

	_, err = c.FetchMentions(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "", gotSince)
	require.EqualValues(t, 1, atomic.LoadInt32(&meCalls))
}

func TestFetchMentionsEmptyBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/users/me" {
			meHandler(w)
			return
		}
		_, _ = w.Write([]byte(`{"meta":{"result_count":0}}`))
	}))
	defer ts.Close()

	b, err := newTestClient(ts).FetchMentions(context.Background(), "9")
	require.NoError(t, err)
	require.Empty(t, b.Mentions)
	require.Empty(t, b.NewestID)
}

func TestRateLimitedReadIsNotRetried(t *testing.T) {
	var calls int32
	reset := time.Now().Add(10 * time.Minute).Unix()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/users/me" {
			meHandler(w)
			return
		}
		atomic.AddInt32(&calls, 1)
		w.Header().Set("x-rate-limit-reset", itoa(reset))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).FetchMentions(context.Background(), "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.True(t, apiErr.IsRateLimited())
	require.NotNil(t, apiErr.RateLimitReset)
	require.Equal(t, reset, apiErr.RateLimitReset.Unix())
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestServerErrorRetriedForReads(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		meHandler(w)
	}))
	defer ts.Close()

	me, err := newTestClient(ts).Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "42", me.ID)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestUploadImageSignsMultipart(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/1.1/media/upload.json", r.URL.Path)
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		require.Contains(t, r.Header.Get("Authorization"), `oauth_consumer_key="ck"`)
		f, fh, err := r.FormFile("media")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "image/png", fh.Header.Get("Content-Type"))
		b, _ := io.ReadAll(f)
		require.Equal(t, []byte("png-bytes"), b)
		_, _ = w.Write([]byte(`{"media_id":7,"media_id_string":"7"}`))
	}))
	defer ts.Close()

	id, err := newTestClient(ts).UploadImage(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "7", id)
}

func TestUploadRateLimitFallsBackToAppReset(t *testing.T) {
	reset := time.Now().Add(3 * time.Hour).Unix()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-app-limit-24hour-reset", itoa(reset))
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"Too Many Requests"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts).UploadImage(context.Background(), []byte("x"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "media_upload", apiErr.Endpoint)
	require.Equal(t, reset, apiErr.RateLimitReset.Unix())
	require.Contains(t, apiErr.Body, "Too Many Requests")
}

func TestPostReplyBody(t *testing.T) {
	var calls int32
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "/2/tweets", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"100","text":"ok"}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	require.NoError(t, c.PostReply(context.Background(), "1", "$WIF — RIP.", "7"))
	require.Equal(t, "$WIF — RIP.", got["text"])
	require.Equal(t, "1", got["reply"].(map[string]any)["in_reply_to_tweet_id"])
	require.Equal(t, []any{"7"}, got["media"].(map[string]any)["media_ids"])

	require.NoError(t, c.PostReply(context.Background(), "2", "hi", ""))
	_, hasMedia := got["media"]
	require.False(t, hasMedia)
}

func TestWritesAreNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	err := newTestClient(ts).PostReply(context.Background(), "1", "x", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.False(t, apiErr.IsRateLimited())
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWritesNeedUserKeys(t *testing.T) {
	c := New(Config{BearerToken: "only-bearer"})
	err := c.PostReply(context.Background(), "1", "x", "")
	require.Error(t, err)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
