// Package config loads rewind settings from defaults, an optional YAML or
// JSON file, and REWIND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/SmitUplenchwar2687/Rewind/internal/jsonsplit"
	"github.com/SmitUplenchwar2687/Rewind/internal/limiter"
	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/session"
	"github.com/SmitUplenchwar2687/Rewind/internal/source"
	"github.com/SmitUplenchwar2687/Rewind/internal/storage"
)

// EnvPrefix is prepended to every environment override, e.g. REWIND_SERVER_ADDR.
const EnvPrefix = "REWIND"

type Config struct {
	Server  ServerConfig          `mapstructure:"server"`
	Fetch   FetchConfig           `mapstructure:"fetch"`
	Extract ExtractConfig         `mapstructure:"extract"`
	Player  session.PlayerOptions `mapstructure:"player"`
	Storage storage.Options       `mapstructure:"storage"`
	Logging LoggingConfig         `mapstructure:"logging"`
	Tracing TracingConfig         `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr            string         `mapstructure:"addr"`
	ReadTimeout     time.Duration  `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration  `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration  `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64          `mapstructure:"max_upload_bytes"`
	SessionTTL      time.Duration  `mapstructure:"session_ttl"`
	TrustProxy      bool           `mapstructure:"trust_proxy"`
	RateLimit       limiter.Config `mapstructure:"rate_limit"`
}

type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBytes     int64         `mapstructure:"max_bytes"`
	BlockPrivate bool          `mapstructure:"block_private"`
}

// Fetcher builds the URL fetcher these settings describe.
func (c FetchConfig) Fetcher() *source.Fetcher {
	return source.NewFetcher(nil, c.Timeout, c.MaxBytes, source.BlockPrivateAddresses(c.BlockPrivate))
}

type ExtractConfig struct {
	SplitMode          string `mapstructure:"split_mode"`
	MaxDecodedBytes    int64  `mapstructure:"max_decoded_bytes"`
	AllowMissingEvents bool   `mapstructure:"allow_missing_events"`
}

// Extractor builds the extractor these settings describe.
func (c ExtractConfig) Extractor() (*recording.Extractor, error) {
	mode, err := jsonsplit.ParseMode(c.SplitMode)
	if err != nil {
		return nil, err
	}
	return recording.NewExtractor(
		recording.WithSplitMode(mode),
		recording.WithMaxDecodedBytes(c.MaxDecodedBytes),
		recording.WithAllowMissingEvents(c.AllowMissingEvents),
	), nil
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  source.DefaultMaxBytes,
			SessionTTL:      session.DefaultTTL,
			RateLimit: limiter.Config{
				Enabled: true,
				Rate:    30,
				Window:  time.Minute,
				Burst:   10,
			},
		},
		Fetch: FetchConfig{
			Timeout:  30 * time.Second,
			MaxBytes: source.DefaultMaxBytes,
		},
		Extract: ExtractConfig{
			SplitMode:       string(jsonsplit.ModeHeuristic),
			MaxDecodedBytes: recording.DefaultMaxDecodedBytes,
		},
		Player: session.DefaultPlayerOptions(),
		Storage: storage.Options{
			Backend:         storage.BackendMemory,
			CleanupInterval: time.Minute,
			Redis: storage.RedisConfig{
				Host:   "localhost",
				Port:   6379,
				Prefix: storage.DefaultRedisPrefix,
			},
			Pebble: storage.PebbleConfig{DataDir: "rewind-data"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{ServiceName: "rewind"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	defaults := map[string]any{
		"server.addr":                  d.Server.Addr,
		"server.read_timeout":          d.Server.ReadTimeout,
		"server.write_timeout":         d.Server.WriteTimeout,
		"server.idle_timeout":          d.Server.IdleTimeout,
		"server.shutdown_timeout":      d.Server.ShutdownTimeout,
		"server.max_upload_bytes":      d.Server.MaxUploadBytes,
		"server.session_ttl":           d.Server.SessionTTL,
		"server.trust_proxy":           d.Server.TrustProxy,
		"server.rate_limit.enabled":    d.Server.RateLimit.Enabled,
		"server.rate_limit.rate":       d.Server.RateLimit.Rate,
		"server.rate_limit.window":     d.Server.RateLimit.Window,
		"server.rate_limit.burst":      d.Server.RateLimit.Burst,
		"fetch.timeout":                d.Fetch.Timeout,
		"fetch.max_bytes":              d.Fetch.MaxBytes,
		"fetch.block_private":          d.Fetch.BlockPrivate,
		"extract.split_mode":           d.Extract.SplitMode,
		"extract.max_decoded_bytes":    d.Extract.MaxDecodedBytes,
		"extract.allow_missing_events": d.Extract.AllowMissingEvents,
		"player.width":                 d.Player.Width,
		"player.height":                d.Player.Height,
		"player.autoplay":              d.Player.AutoPlay,
		"storage.backend":              d.Storage.Backend,
		"storage.cleanup_interval":     d.Storage.CleanupInterval,
		"storage.redis.host":           d.Storage.Redis.Host,
		"storage.redis.port":           d.Storage.Redis.Port,
		"storage.redis.password":       d.Storage.Redis.Password,
		"storage.redis.db":             d.Storage.Redis.DB,
		"storage.redis.pool_size":      d.Storage.Redis.PoolSize,
		"storage.redis.max_retries":    d.Storage.Redis.MaxRetries,
		"storage.redis.dial_timeout":   d.Storage.Redis.DialTimeout,
		"storage.redis.cluster":        d.Storage.Redis.Cluster,
		"storage.redis.cluster_nodes":  d.Storage.Redis.ClusterNodes,
		"storage.redis.prefix":         d.Storage.Redis.Prefix,
		"storage.pebble.data_dir":      d.Storage.Pebble.DataDir,
		"storage.pebble.sync":          d.Storage.Pebble.Sync,
		"logging.level":                d.Logging.Level,
		"logging.format":               d.Logging.Format,
		"tracing.enabled":              d.Tracing.Enabled,
		"tracing.service_name":         d.Tracing.ServiceName,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load layers defaults, the file at path, and the environment. An empty
// path looks for rewind.yaml in the working directory and tolerates its
// absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rewind")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.session_ttl must be positive, got %s", c.Server.SessionTTL)
	}
	if err := c.Server.RateLimit.Validate(); err != nil {
		return fmt.Errorf("server.rate_limit: %w", err)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if _, err := jsonsplit.ParseMode(c.Extract.SplitMode); err != nil {
		return fmt.Errorf("extract.split_mode: %w", err)
	}
	if c.Extract.MaxDecodedBytes <= 0 {
		return fmt.Errorf("extract.max_decoded_bytes must be positive, got %d", c.Extract.MaxDecodedBytes)
	}
	if c.Player.Width <= 0 || c.Player.Height <= 0 {
		return fmt.Errorf("player size must be positive, got %dx%d", c.Player.Width, c.Player.Height)
	}

	switch c.Storage.Backend {
	case storage.BackendMemory:
	case storage.BackendRedis:
		if c.Storage.Redis.Cluster {
			if len(c.Storage.Redis.ClusterNodes) == 0 {
				return errors.New("storage.redis.cluster_nodes is required when cluster=true")
			}
		} else if c.Storage.Redis.Host == "" || c.Storage.Redis.Port <= 0 {
			return errors.New("storage.redis.host and storage.redis.port are required")
		}
	case storage.BackendPebble:
		if c.Storage.Pebble.DataDir == "" {
			return errors.New("storage.pebble.data_dir is required")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q, must be one of: memory, redis, pebble", c.Storage.Backend)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

const example = `# rewind configuration. Every key can be overridden with REWIND_<SECTION>_<KEY>.
server:
  addr: ":8080"
  read_timeout: 15s
  write_timeout: 60s
  idle_timeout: 60s
  shutdown_timeout: 10s
  max_upload_bytes: 134217728
  session_ttl: 24h
  trust_proxy: false      # key rate limits on X-Forwarded-For; enable only behind a proxy
  rate_limit:
    enabled: true
    rate: 30
    window: 1m
    burst: 10

fetch:
  timeout: 30s
  max_bytes: 134217728
  block_private: false    # refuse URLs resolving to loopback, private or link-local addresses

extract:
  split_mode: heuristic   # heuristic | strict
  max_decoded_bytes: 536870912
  allow_missing_events: false

player:
  width: 1024
  height: 576
  autoplay: false

storage:
  backend: memory         # memory | redis | pebble
  cleanup_interval: 1m
  redis:
    host: localhost
    port: 6379
    db: 0
    prefix: "rewind:"
  pebble:
    data_dir: rewind-data
    sync: false

logging:
  level: info
  format: json

tracing:
  enabled: false
  service_name: rewind
`

// WriteExample writes a commented example config to path.
func WriteExample(path string) error {
	return os.WriteFile(path, []byte(example), 0o644)
}
