// Package cache memoizes responder results. A missing or unreadable entry is
// a miss, never an error; entries have no TTL and are never evicted.
package cache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Store is a key/value blob store scoped to one responder category.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, payload []byte) error
}

// Provider hands out one Store per responder category ("caselaw",
// "research", ...).
type Provider interface {
	Category(name string) Store
}

// GetJSON decodes a cached entry into v. Decode failures count as a miss.
func GetJSON(ctx context.Context, s Store, key string, v any) bool {
	b, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

// PutJSON encodes v and stores it. Write failures are logged and dropped
// since the result can always be recomputed.
func PutJSON(ctx context.Context, s Store, key string, v any, log *zap.SugaredLogger) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Errorw("cache encode failed", "key", key, "err", err)
		return
	}
	if err := s.Put(ctx, key, b); err != nil {
		log.Errorw("cache write failed", "key", key, "err", err)
	}
}
