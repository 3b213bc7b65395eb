package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters of the Redis backend.
type RedisConfig struct {
	Address   string
	Username  string
	Password  string
	DB        int
	TLS       bool
	Timeout   time.Duration
	KeyPrefix string
}

const (
	defaultRedisTimeout = 5 * time.Second
	defaultKeyPrefix    = "jobhive:"
)

// RedisStore implements Store on top of go-redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection with a PING so
// that misconfiguration surfaces during startup.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ensureContext(ctx), cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client. An empty prefix selects the default.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ensureContext(ctx)).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// IncrementWithTTL increments the key, starting its window on the first hit.
// It returns the current count and the remaining time-to-live.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx = ensureContext(ctx)
	if window <= 0 {
		window = time.Minute
	}
	key = s.key(key)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: incr: %w", err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis: pexpire: %w", err)
		}
		return count, window, nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: pttl: %w", err)
	}
	// A counter that lost its expiry (crash between INCR and PEXPIRE) would never reset.
	if ttl < 0 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis: pexpire: %w", err)
		}
		ttl = window
	}
	return count, ttl, nil
}

// Set stores value under key. A non-positive ttl keeps the key until deleted.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ensureContext(ctx), s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

// Get retrieves a value by key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ensureContext(ctx), s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get: %w", err)
	}
	return value, true, nil
}

// Delete removes keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.key(key))
	}
	if err := s.client.Del(ensureContext(ctx), prefixed...).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + strings.TrimLeft(key, ":")
}
