package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"enrichment-engine/internal/common/logging"
)

// Layer memoizes provider fetches. Store failures are logged and treated as
// cache misses; they never fail the enrichment.
type Layer struct {
	store  Store
	group  singleflight.Group
	logger logging.Logger
}

// NewLayer creates a cache layer over the given store
func NewLayer(store Store, logger logging.Logger) *Layer {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Layer{
		store:  store,
		logger: logger,
	}
}

// GetOrFetch returns the cached value for key when fresh, otherwise runs
// fetch and stores its result under the TTL. Concurrent misses for the same
// key collapse into a single in-flight fetch; the other callers share its
// result. The returned hit flag reports whether the store served the value.
func (l *Layer) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (interface{}, error)) (interface{}, bool, error) {
	if value, found := l.lookup(ctx, key); found {
		return value, true, nil
	}

	value, err, _ := l.group.Do(key, func() (interface{}, error) {
		// A losing racer may arrive after the winner populated the store.
		if value, found := l.lookup(ctx, key); found {
			return value, nil
		}

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		if setErr := l.store.Set(ctx, key, value, ttl); setErr != nil {
			l.logger.Warn("cache write failed",
				logging.String("key", key),
				logging.Err(setErr),
			)
		}
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, false, nil
}

// Invalidate drops a key from the store. Errors are logged only.
func (l *Layer) Invalidate(ctx context.Context, key string) {
	if err := l.store.Delete(ctx, key); err != nil {
		l.logger.Warn("cache invalidation failed",
			logging.String("key", key),
			logging.Err(err),
		)
	}
}

func (l *Layer) lookup(ctx context.Context, key string) (interface{}, bool) {
	value, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache read failed, treating as miss",
			logging.String("key", key),
			logging.Err(err),
		)
		return nil, false
	}
	return value, found
}
