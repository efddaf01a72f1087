package cli

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Rewind/internal/storage"
)

type storageOptions struct {
	backend           string
	cleanupInterval   time.Duration
	redisHost         string
	redisPort         int
	redisPassword     string
	redisDB           int
	redisCluster      bool
	redisClusterNodes []string
	redisPoolSize     int
	redisMaxRetries   int
	redisDialTimeout  time.Duration
	redisPrefix       string
	pebbleDir         string
	pebbleSync        bool
}

func (o *storageOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.backend, "storage", storage.BackendMemory, "session storage backend (memory, redis, pebble)")
	cmd.Flags().DurationVar(&o.cleanupInterval, "storage-cleanup-interval", time.Minute, "expiry sweep interval for the memory backend")
	cmd.Flags().StringVar(&o.redisHost, "redis-host", "localhost", "redis host (or host:port)")
	cmd.Flags().IntVar(&o.redisPort, "redis-port", 6379, "redis port")
	cmd.Flags().StringVar(&o.redisPassword, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.redisDB, "redis-db", 0, "redis database index")
	cmd.Flags().BoolVar(&o.redisCluster, "redis-cluster", false, "enable redis cluster mode")
	cmd.Flags().StringSliceVar(&o.redisClusterNodes, "redis-cluster-nodes", nil, "redis cluster nodes host:port list")
	cmd.Flags().IntVar(&o.redisPoolSize, "redis-pool-size", 20, "redis connection pool size")
	cmd.Flags().IntVar(&o.redisMaxRetries, "redis-max-retries", 3, "redis max retries")
	cmd.Flags().DurationVar(&o.redisDialTimeout, "redis-dial-timeout", 5*time.Second, "redis dial timeout")
	cmd.Flags().StringVar(&o.redisPrefix, "redis-prefix", storage.DefaultRedisPrefix, "key prefix for session records")
	cmd.Flags().StringVar(&o.pebbleDir, "pebble-dir", "rewind-data", "data directory for the pebble backend")
	cmd.Flags().BoolVar(&o.pebbleSync, "pebble-sync", false, "fsync pebble writes")
}

// applyTo copies explicitly set flags over the loaded config.
func (o *storageOptions) applyTo(cmd *cobra.Command, cfg *storage.Options) {
	f := cmd.Flags()
	if f.Changed("storage") {
		cfg.Backend = o.backend
	}
	if f.Changed("storage-cleanup-interval") {
		cfg.CleanupInterval = o.cleanupInterval
	}
	if f.Changed("redis-host") {
		cfg.Redis.Host = o.redisHost
	}
	if f.Changed("redis-port") {
		cfg.Redis.Port = o.redisPort
	}
	if f.Changed("redis-password") {
		cfg.Redis.Password = o.redisPassword
	}
	if f.Changed("redis-db") {
		cfg.Redis.DB = o.redisDB
	}
	if f.Changed("redis-cluster") {
		cfg.Redis.Cluster = o.redisCluster
	}
	if f.Changed("redis-cluster-nodes") {
		cfg.Redis.ClusterNodes = append([]string(nil), o.redisClusterNodes...)
	}
	if f.Changed("redis-pool-size") {
		cfg.Redis.PoolSize = o.redisPoolSize
	}
	if f.Changed("redis-max-retries") {
		cfg.Redis.MaxRetries = o.redisMaxRetries
	}
	if f.Changed("redis-dial-timeout") {
		cfg.Redis.DialTimeout = o.redisDialTimeout
	}
	if f.Changed("redis-prefix") {
		cfg.Redis.Prefix = o.redisPrefix
	}
	if f.Changed("pebble-dir") {
		cfg.Pebble.DataDir = o.pebbleDir
	}
	if f.Changed("pebble-sync") {
		cfg.Pebble.Sync = o.pebbleSync
	}
}

// normalize splits a host:port given to --redis-host.
func normalize(cfg *storage.Options) error {
	if cfg.Backend != storage.BackendRedis || cfg.Redis.Cluster {
		return nil
	}
	host, port, err := normalizeRedisHostPort(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		return err
	}
	cfg.Redis.Host = host
	cfg.Redis.Port = port
	return nil
}

func normalizeRedisHostPort(host string, port int) (string, int, error) {
	if strings.Contains(host, ":") {
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return "", 0, fmt.Errorf("invalid --redis-host value %q: %w", host, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis port in --redis-host %q: %w", host, err)
		}
		host = h
		port = n
	}

	if host == "" {
		return "", 0, fmt.Errorf("redis host cannot be empty")
	}
	if port <= 0 {
		return "", 0, fmt.Errorf("redis port must be positive, got %d", port)
	}

	return host, port, nil
}
