// Package resolve turns an extracted subject into display metadata.
package resolve

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"deadticker/internal/metrics"
	"deadticker/internal/model"
	"deadticker/internal/store"
)

// CacheTTL is how long a contract lookup, found or not, is cached.
const CacheTTL = 24 * time.Hour

// TokenSource looks a contract address up. A nil token means no data.
type TokenSource interface {
	LookupToken(ctx context.Context, address string) (*model.ResolvedToken, error)
}

// Resolver maps subjects to tokens. Tickers pass through; contracts go through
// a cache-aside lookup.
type Resolver struct {
	kv     store.Store
	source TokenSource
	log    *zap.Logger
}

func New(kv store.Store, source TokenSource, log *zap.Logger) *Resolver {
	return &Resolver{kv: kv, source: source, log: log}
}

func cacheKey(address string) string { return "contract:" + address }

// Resolve never fails; any lookup problem yields model.Unknown().
func (r *Resolver) Resolve(ctx context.Context, s model.Subject) model.ResolvedToken {
	switch s.Kind {
	case model.SubjectTicker:
		return model.ResolvedToken{Symbol: s.Value, Source: model.SourcePassthrough}
	case model.SubjectContract:
		return r.resolveContract(ctx, s.Value)
	default:
		return model.Unknown()
	}
}

func (r *Resolver) resolveContract(ctx context.Context, address string) model.ResolvedToken {
	key := cacheKey(address)
	if raw, ok, err := r.kv.Get(ctx, key); err != nil {
		r.log.Warn("resolver cache read failed", zap.String("address", address), zap.Error(err))
	} else if ok {
		var tok model.ResolvedToken
		if err := json.Unmarshal([]byte(raw), &tok); err == nil && tok.Symbol != "" {
			metrics.ResolverCache.WithLabelValues("hit").Inc()
			return tok
		}
	}
	metrics.ResolverCache.WithLabelValues("miss").Inc()

	result := model.Unknown()
	found, err := r.source.LookupToken(ctx, address)
	switch {
	case err != nil:
		r.log.Info("token lookup failed", zap.String("address", address), zap.Error(err))
	case found != nil:
		result = *found
	}

	// unknowns are cached too so dead addresses do not trigger a lookup per mention
	b, _ := json.Marshal(result)
	if err := r.kv.Set(ctx, key, string(b), CacheTTL); err != nil {
		r.log.Warn("resolver cache write failed", zap.String("address", address), zap.Error(err))
	}
	return result
}
