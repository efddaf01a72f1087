package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPoolSize    = 20
	defaultRedisMaxRetries  = 3
	defaultRedisDialTimeout = 5 * time.Second

	DefaultRedisPrefix = "rewind:"
)

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Host         string        `mapstructure:"host" json:"host"`
	Port         int           `mapstructure:"port" json:"port"`
	Password     string        `mapstructure:"password" json:"password,omitempty"`
	DB           int           `mapstructure:"db" json:"db"`
	PoolSize     int           `mapstructure:"pool_size" json:"pool_size"`
	MaxRetries   int           `mapstructure:"max_retries" json:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
	Cluster      bool          `mapstructure:"cluster" json:"cluster"`
	ClusterNodes []string      `mapstructure:"cluster_nodes" json:"cluster_nodes,omitempty"`
	Prefix       string        `mapstructure:"prefix" json:"prefix"`
}

// withDefaults fills zero pool, retry, timeout and prefix settings and
// checks that an address is present.
func (c RedisConfig) withDefaults() (RedisConfig, error) {
	if c.PoolSize <= 0 {
		c.PoolSize = defaultRedisPoolSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultRedisMaxRetries
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultRedisDialTimeout
	}
	if c.Prefix == "" {
		c.Prefix = DefaultRedisPrefix
	}

	switch {
	case c.Cluster && len(c.ClusterNodes) == 0:
		return c, errors.New("redis: cluster_nodes is required when cluster=true")
	case !c.Cluster && c.Host == "":
		return c, errors.New("redis: host is required")
	case !c.Cluster && c.Port <= 0:
		return c, fmt.Errorf("redis: port must be positive, got %d", c.Port)
	}
	return c, nil
}

func (c RedisConfig) client() redis.UniversalClient {
	if c.Cluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       c.ClusterNodes,
			Password:    c.Password,
			PoolSize:    c.PoolSize,
			MaxRetries:  c.MaxRetries,
			DialTimeout: c.DialTimeout,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Password:    c.Password,
		DB:          c.DB,
		PoolSize:    c.PoolSize,
		MaxRetries:  c.MaxRetries,
		DialTimeout: c.DialTimeout,
	})
}

// RedisStorage keeps session keys under a prefix, with native TTLs. The
// bind transition maps onto SETNX.
type RedisStorage struct {
	rdb    redis.UniversalClient
	prefix string
	once   sync.Once
	err    error
}

// NewRedisStorage connects and waits until the server answers PING, trying
// MaxRetries more times with doubling delays.
func NewRedisStorage(ctx context.Context, cfg *RedisConfig) (*RedisStorage, error) {
	if cfg == nil {
		return nil, errors.New("redis: config is required")
	}
	conf, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	rdb := conf.client()
	if err := waitForRedis(ctx, rdb, conf.MaxRetries); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStorage{rdb: rdb, prefix: conf.Prefix}, nil
}

func waitForRedis(ctx context.Context, rdb redis.UniversalClient, retries int) error {
	delay := 100 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := rdb.Ping(ctx).Err()
		if err == nil || attempt >= retries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}

func (s *RedisStorage) key(k string) string { return s.prefix + k }

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, value []byte, exp time.Duration) error {
	if err := s.rdb.Set(ctx, s.key(key), value, exp).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) SetIfAbsent(ctx context.Context, key string, value []byte, exp time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.key(key), value, exp).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close is idempotent.
func (s *RedisStorage) Close() error {
	s.once.Do(func() { s.err = s.rdb.Close() })
	return s.err
}
