package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/metrics"
)

func ConnectRedis(addr, password string, db int, logger *zap.SugaredLogger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Errorf("Redis ping failed: %v", err)
		_ = rdb.Close()
		return nil, err
	}

	logger.Info("Redis connected successfully")
	return rdb, nil
}

// RedisProvider stores entries as plain string keys
// "<prefix>:<category>:<key>" with no expiry.
type RedisProvider struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisProvider(rdb *redis.Client, prefix string) *RedisProvider {
	return &RedisProvider{rdb: rdb, prefix: prefix}
}

func (p *RedisProvider) Category(name string) Store {
	return &RedisStore{rdb: p.rdb, prefix: fmt.Sprintf("%s:%s", p.prefix, name), name: name}
}

type RedisStore struct {
	rdb    *redis.Client
	prefix string
	name   string
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := s.rdb.Get(ctx, s.prefix+":"+key).Bytes()
	if err != nil || len(b) == 0 {
		// redis.Nil and connection errors alike fall back to recompute
		metrics.CacheLookups.WithLabelValues(s.name, "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues(s.name, "hit").Inc()
	return b, true
}

func (s *RedisStore) Put(ctx context.Context, key string, payload []byte) error {
	return s.rdb.Set(ctx, s.prefix+":"+key, payload, 0).Err()
}
