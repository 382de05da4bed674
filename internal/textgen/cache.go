package textgen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KV is the subset of *redis.Client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cached memoises provider responses in Redis keyed by prompt hash. Cache
// errors never fail a generation; they only cost a provider call.
type Cached struct {
	next   Provider
	kv     KV
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

func NewCached(next Provider, kv KV, ttl time.Duration, namespace string, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{next: next, kv: kv, ttl: ttl, prefix: "textgen:" + namespace + ":", log: log}
}

func (c *Cached) key(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *Cached) Generate(ctx context.Context, prompt string) (string, error) {
	key := c.key(prompt)
	text, err := c.kv.Get(ctx, key).Result()
	switch {
	case err == nil:
		return text, nil
	case !errors.Is(err, redis.Nil):
		c.log.Warn("textgen cache read failed", zap.Error(err))
	}

	text, err = c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.kv.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.log.Warn("textgen cache write failed", zap.Error(err))
	}
	return text, nil
}
