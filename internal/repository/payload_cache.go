package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

const defaultCacheTTL = 5 * time.Minute

// CachedPayloadRepository wraps a PayloadRepository with a Redis
// read-through cache for CurrentAt lookups. Keys are namespaced as
// "cond:{tag}:{run}". Cache failures are logged and the lookup falls
// through to the wrapped repository.
type CachedPayloadRepository struct {
	inner  PayloadRepository
	client *redis.Client
	ttl    time.Duration
}

func NewCachedPayloadRepository(inner PayloadRepository, client *redis.Client, ttl time.Duration) *CachedPayloadRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedPayloadRepository{inner: inner, client: client, ttl: ttl}
}

func cacheKey(tag string, run uint64) string {
	return fmt.Sprintf("cond:%s:%d", tag, run)
}

func (r *CachedPayloadRepository) Save(ctx context.Context, p *trigbits.Payload) error {
	if err := r.inner.Save(ctx, p); err != nil {
		return err
	}

	// A new version changes which payload is current for every run at
	// or above its since-run, so the whole tag is dropped.
	pattern := fmt.Sprintf("cond:%s:*", p.Tag)
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		slog.Warn("cache invalidate failed", "tag", p.Tag, "err", err)
		return nil
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			slog.Warn("cache invalidate failed", "tag", p.Tag, "err", err)
		}
	}
	return nil
}

func (r *CachedPayloadRepository) CurrentAt(ctx context.Context, tag string, run uint64) (*trigbits.Payload, error) {
	key := cacheKey(tag, run)

	cached, err := r.client.Get(ctx, key).Result()
	if err == nil {
		p := &trigbits.Payload{}
		if jsonErr := json.Unmarshal([]byte(cached), p); jsonErr == nil {
			return p, nil
		}
		// Corrupt entry: fall through and rewrite it.
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("cache read failed", "key", key, "err", err)
	}

	p, err := r.inner.CurrentAt(ctx, tag, run)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(p); jsonErr == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			slog.Warn("cache write failed", "key", key, "err", err)
		}
	}
	return p, nil
}

func (r *CachedPayloadRepository) History(ctx context.Context, tag string) ([]*trigbits.Payload, error) {
	return r.inner.History(ctx, tag)
}

func (r *CachedPayloadRepository) Tags(ctx context.Context) ([]string, error) {
	return r.inner.Tags(ctx)
}
