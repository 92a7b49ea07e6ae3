package posted

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"econ-calendar-bot/internal/types"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisOption mutates RedisConfig.
type RedisOption func(*RedisConfig)

func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) { c.Addr = addr }
}

func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// RedisBackend stores each bucket as one JSON string under <prefix>:posted:<bucket>.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects and pings Redis.
func NewRedisBackend(opts ...RedisOption) (*RedisBackend, error) {
	cfg := &RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "econbot",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBackend{client: client, prefix: cfg.Prefix}, nil
}

func (b *RedisBackend) Name() string { return "redis" }

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) key(bucket string) string {
	return b.prefix + ":posted:" + bucket
}

func (b *RedisBackend) Load(ctx context.Context, bucket string) ([]types.Identity, error) {
	data, err := b.client.Get(ctx, b.key(bucket)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (b *RedisBackend) Save(ctx context.Context, bucket string, ids []types.Identity) error {
	data, err := encode(ids)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key(bucket), data, 0).Err()
}
