// Package idempotency replays the first successful response for a
// (operation, Idempotency-Key) pair instead of re-running the operation.
package idempotency

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const Header = "Idempotency-Key"

var ErrCacheMiss = errors.New("idempotency cache miss")

// Cache stores response bodies keyed by operation name and client key.
type Cache interface {
	Get(ctx context.Context, operation, key string) ([]byte, error)
	Set(ctx context.Context, operation, key string, body []byte) error
}

// Key extracts the client idempotency key from the request headers.
func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

func cacheKey(operation, key string) string {
	return operation + ":" + key
}
