package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"deadticker/internal/metrics"
	"deadticker/internal/model"
)

const (
	DefaultBaseURL   = "https://api.twitter.com/2"
	DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

	// MentionPageSize is how many mentions one fetch asks for.
	MentionPageSize = 50
)

// Config holds what the client needs to talk to the platform.
type Config struct {
	BaseURL        string
	UploadURL      string
	BearerToken    string
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
	RPS            float64
	Burst          int
	MaxAttempts    int
	BaseBackoff    time.Duration
	Timeout        time.Duration
}

// User is the bot's own account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Batch is one page of mentions, newest first, as the platform returns it.
// NewestID is the platform's own newest_id and may be empty.
type Batch struct {
	Mentions []model.Mention
	NewestID string
}

// Client reads mentions and writes replies. Reads use the bearer token when
// one is set; writes are always signed with the user's OAuth 1.0a keys.
type Client struct {
	baseURL     string
	uploadURL   string
	bearerToken string
	signer      *oauth1Signer
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration

	meMu sync.Mutex
	me   *User
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:     cfg.BaseURL,
		uploadURL:   cfg.UploadURL,
		bearerToken: cfg.BearerToken,
		signer:      newOAuth1Signer(cfg.ConsumerKey, cfg.ConsumerSecret, cfg.AccessToken, cfg.AccessSecret),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     newLimiter(cfg.RPS, cfg.Burst),
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.uploadURL == "" {
		c.uploadURL = DefaultUploadURL
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = 15 * time.Second
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 5
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = 500 * time.Millisecond
	}
	return c
}

func (c *Client) authRead(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	} else {
		c.signer.sign(req)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) authWrite(req *http.Request) error {
	if !c.signer.configured() {
		return errors.New("x api: oauth1 credentials required for writes")
	}
	c.signer.sign(req)
	req.Header.Set("Accept", "application/json")
	return nil
}

// Me returns the authenticated account. The first successful answer is kept
// for the life of the client.
func (c *Client) Me(ctx context.Context) (User, error) {
	c.meMu.Lock()
	defer c.meMu.Unlock()
	if c.me != nil {
		return *c.me, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return User{}, err
	}
	c.authRead(req)
	var raw struct {
		Data User `json:"data"`
	}
	if err := c.doJSON(ctx, "users_me", req, &raw); err != nil {
		return User{}, err
	}
	if raw.Data.ID == "" {
		return User{}, errors.New("x api users_me: empty id")
	}
	c.me = &raw.Data
	return raw.Data, nil
}

// FetchMentions returns mentions of the bot newer than sinceID (all recent
// ones when sinceID is empty).
func (c *Client) FetchMentions(ctx context.Context, sinceID string) (Batch, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return Batch{}, err
	}
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(MentionPageSize))
	q.Set("tweet.fields", "author_id,referenced_tweets,in_reply_to_user_id,created_at")
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}
	u := fmt.Sprintf("%s/users/%s/mentions?%s", c.baseURL, url.PathEscape(me.ID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Batch{}, err
	}
	c.authRead(req)
	var raw struct {
		Data []struct {
			ID       string `json:"id"`
			Text     string `json:"text"`
			AuthorID string `json:"author_id"`
		} `json:"data"`
		Meta struct {
			NewestID string `json:"newest_id"`
		} `json:"meta"`
	}
	if err := c.doJSON(ctx, "mentions", req, &raw); err != nil {
		return Batch{}, err
	}
	out := Batch{Mentions: make([]model.Mention, 0, len(raw.Data)), NewestID: raw.Meta.NewestID}
	for _, d := range raw.Data {
		out.Mentions = append(out.Mentions, model.Mention{ID: d.ID, Text: d.Text, AuthorID: d.AuthorID})
	}
	return out, nil
}

// UploadImage uploads a PNG and returns its media id.
func (c *Client) UploadImage(ctx context.Context, png []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="media"; filename="tombstone.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(png); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := c.authWrite(req); err != nil {
		return "", err
	}
	var raw struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := c.doJSON(ctx, "media_upload", req, &raw); err != nil {
		return "", err
	}
	if raw.MediaIDString == "" {
		return "", errors.New("x api media_upload: empty media id")
	}
	return raw.MediaIDString, nil
}

// PostReply posts text as a reply to inReplyTo, attaching mediaID when set.
func (c *Client) PostReply(ctx context.Context, inReplyTo, text, mediaID string) error {
	type reply struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	}
	type media struct {
		MediaIDs []string `json:"media_ids"`
	}
	payload := struct {
		Text  string `json:"text"`
		Reply reply  `json:"reply"`
		Media *media `json:"media,omitempty"`
	}{Text: text, Reply: reply{InReplyToTweetID: inReplyTo}}
	if mediaID != "" {
		payload.Media = &media{MediaIDs: []string{mediaID}}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authWrite(req); err != nil {
		return err
	}
	return c.doJSON(ctx, "tweets", req, nil)
}

// doJSON sends req and decodes a 2xx body into out (when non-nil). Anything
// else comes back as an *APIError.
func (c *Client) doJSON(ctx context.Context, endpoint string, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, endpoint, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("x api %s: read body: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(endpoint, resp, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("x api %s: decode: %w", endpoint, err)
	}
	return nil
}

// doWithRetry retries reads on transport errors and 5xx with exponential
// backoff. Writes get a single attempt so a reply is never posted twice, and
// a 429 is always handed back to the caller.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, req *http.Request) (*http.Response, error) {
	attempts := c.maxAttempts
	if req.Method != http.MethodGet {
		attempts = 1
	}
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(endpoint)
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode >= 500 && resp.StatusCode <= 599 && attempt < attempts {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				if err := sleepCtx(ctx, retryWait(backoff, ra)); err != nil {
					return nil, err
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("x api %s: request failed after %d attempts: %w", endpoint, attempts, lastErr)
}

func retryWait(backoff time.Duration, retryAfter string) time.Duration {
	wait := backoff
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			wait = time.Duration(secs) * time.Second
		} else if t, err := http.ParseTime(retryAfter); err == nil {
			if d := time.Until(t); d > 0 {
				wait = d
			}
		}
	}
	// jitter +/-20%
	jitter := time.Duration(float64(wait) * 0.2)
	if jitter > 0 {
		wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
