package xclient

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// resetHeaders are checked in order for the unix-seconds reset of a 429.
var resetHeaders = []string{
	"x-rate-limit-reset",
	"x-app-limit-24hour-reset",
	"x-user-limit-24hour-reset",
}

// APIError is a non-2xx answer from the platform.
type APIError struct {
	StatusCode     int
	Endpoint       string
	RateLimitReset *time.Time
	Body           string
}

func (e *APIError) Error() string {
	if e.RateLimitReset != nil {
		return fmt.Sprintf("x api %s: status %d (reset %s)", e.Endpoint, e.StatusCode, e.RateLimitReset.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("x api %s: status %d", e.Endpoint, e.StatusCode)
}

// IsRateLimited reports whether the platform answered 429.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

func newAPIError(endpoint string, resp *http.Response, body []byte) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: string(body)}
	for _, h := range resetHeaders {
		v := resp.Header.Get(h)
		if v == "" {
			continue
		}
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
			t := time.Unix(secs, 0)
			e.RateLimitReset = &t
			break
		}
	}
	return e
}
