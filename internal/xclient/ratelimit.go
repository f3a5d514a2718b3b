package xclient

import (
	"golang.org/x/time/rate"
)

const (
	defaultRPS   = 2.0
	defaultBurst = 10
)

// newLimiter builds the client-side request limiter, falling back to the
// defaults for non-positive settings.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
