package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Guard executes an operation at most once per (operation, key) and replays
// the stored body afterwards. Concurrent duplicates share one execution.
type Guard struct {
	cache Cache
	sfg   singleflight.Group
	log   *slog.Logger
}

func NewGuard(cache Cache, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{cache: cache, log: log}
}

// Do returns fn's body, or the previously stored body when key was seen before.
// An empty key bypasses the cache. Failed executions are not stored.
// A keyed fn runs detached from ctx cancellation but keeps its values.
func (g *Guard) Do(ctx context.Context, operation, key string, fn func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	if key == "" {
		body, err := fn(ctx)
		return body, false, err
	}

	if body, err := g.lookup(ctx, operation, key); err != nil || body != nil {
		return body, body != nil, err
	}

	executed := false
	v, err, _ := g.sfg.Do(cacheKey(operation, key), func() (interface{}, error) {
		// the result is shared with callers that joined later, so the leader
		// going away must not cancel it
		shared := context.WithoutCancel(ctx)

		// a caller that finished between our lookup and here already stored a body
		if body, err := g.lookup(shared, operation, key); err != nil || body != nil {
			return body, err
		}

		executed = true
		body, err := fn(shared)
		if err != nil {
			return nil, err
		}

		if errSet := g.cache.Set(shared, operation, key, body); errSet != nil {
			g.log.WarnContext(shared, "idempotency store failed",
				slog.String("operation", operation), slog.Any("error", errSet))
		}
		return body, nil
	})
	if err != nil {
		return nil, false, err
	}

	return v.([]byte), !executed, nil
}

func (g *Guard) lookup(ctx context.Context, operation, key string) ([]byte, error) {
	body, err := g.cache.Get(ctx, operation, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	return body, nil
}
