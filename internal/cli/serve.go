package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
	"github.com/SmitUplenchwar2687/Rewind/internal/config"
	"github.com/SmitUplenchwar2687/Rewind/internal/limiter"
	"github.com/SmitUplenchwar2687/Rewind/internal/logging"
	"github.com/SmitUplenchwar2687/Rewind/internal/server"
	"github.com/SmitUplenchwar2687/Rewind/internal/session"
	"github.com/SmitUplenchwar2687/Rewind/internal/source"
	"github.com/SmitUplenchwar2687/Rewind/internal/storage"
	"github.com/SmitUplenchwar2687/Rewind/internal/telemetry"
)

type serveOptions struct {
	addr           string
	maxUploadBytes int64
	sessionTTL     time.Duration
	rateLimit      bool
	rate           int
	window         time.Duration
	burst          int
	trustProxy     bool
	blockPrivate   bool
	splitMode      string
	tracing        bool
	storage        storageOptions
}

func newServeCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the player server",
		Long: `Starts an HTTP server that hosts the rrweb player page and the session API.

Endpoints:
  GET  /                           Player page (?url= loads a remote recording)
  GET  /health                     Health check
  GET  /metrics                    Prometheus metrics
  WS   /ws?session={id}            Notifies a page when its session is loaded
  POST /api/sessions               Create an empty session
  GET  /api/sessions/{id}          Session state and summary
  GET  /api/sessions/{id}/events   Loaded event stream
  POST /api/sessions/{id}/upload   Upload a .gz recording (multipart "file")
  POST /api/sessions/{id}/load     Fetch a recording by URL ({"url": "..."})

Rate limits are keyed on the connection's remote address. Behind a reverse
proxy, set --trust-proxy so X-Forwarded-For / X-Real-IP identify the client;
without a proxy those headers are ignored because any caller can forge them.

URL loads reach whatever address the URL resolves to, including loopback and
private networks. Set --block-private on a shared deployment to refuse them.`,
		Example: `  rewind serve
  rewind serve --addr :9090 --rate 10 --window 1m --burst 5
  rewind serve --storage redis --redis-host localhost:6379
  rewind serve --storage pebble --pebble-dir ./data --config rewind.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			if err := opts.applyTo(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logging.SetDefault(logger)

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Tracing.Enabled {
				shutdownTracer, err := telemetry.InitTracer(cfg.Tracing.ServiceName, cmd.ErrOrStderr(), logger)
				if err != nil {
					return fmt.Errorf("initializing tracing: %w", err)
				}
				defer func() {
					if err := shutdownTracer(context.Background()); err != nil {
						logger.Error("tracer shutdown failed", logging.Err(err))
					}
				}()
			}

			a, err := newApp(ctx, cfg, clock.NewReal(), logger)
			if err != nil {
				return err
			}
			defer a.close()

			go a.sweepLimiter(ctx, cfg.Server.RateLimit.Window)

			logger.Info("player available",
				slog.String("url", "http://localhost"+cfg.Server.Addr+"/"),
				slog.String("storage", cfg.Storage.Backend))

			errCh := make(chan error, 1)
			go func() {
				errCh <- a.server.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return a.server.Shutdown(shutdownCtx)
			}
		},
	}

	opts.addFlags(cmd)

	return cmd
}

func (o *serveOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", ":8080", "address to listen on")
	f.Int64Var(&o.maxUploadBytes, "max-upload-bytes", source.DefaultMaxBytes, "largest accepted recording in bytes")
	f.DurationVar(&o.sessionTTL, "session-ttl", session.DefaultTTL, "how long a session and its events are kept")
	f.BoolVar(&o.rateLimit, "rate-limit", true, "limit uploads and URL loads per client")
	f.IntVar(&o.rate, "rate", 30, "ingestion requests allowed per window")
	f.DurationVar(&o.window, "window", time.Minute, "rate limit window duration")
	f.IntVar(&o.burst, "burst", 10, "max burst size (0 = same as rate)")
	f.BoolVar(&o.trustProxy, "trust-proxy", false, "identify clients by X-Forwarded-For / X-Real-IP")
	f.BoolVar(&o.blockPrivate, "block-private", false, "refuse URL loads that resolve to loopback or private addresses")
	f.StringVar(&o.splitMode, "split-mode", "heuristic", "concatenated JSON splitting (heuristic, strict)")
	f.BoolVar(&o.tracing, "tracing", false, "export OpenTelemetry spans to stderr")

	o.storage.addFlags(cmd)
}

// applyTo overrides the loaded config with flags the user set explicitly.
func (o *serveOptions) applyTo(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Server.Addr = o.addr
	}
	if f.Changed("max-upload-bytes") {
		cfg.Server.MaxUploadBytes = o.maxUploadBytes
	}
	if f.Changed("session-ttl") {
		cfg.Server.SessionTTL = o.sessionTTL
	}
	if f.Changed("rate-limit") {
		cfg.Server.RateLimit.Enabled = o.rateLimit
	}
	if f.Changed("rate") {
		cfg.Server.RateLimit.Rate = o.rate
	}
	if f.Changed("window") {
		cfg.Server.RateLimit.Window = o.window
	}
	if f.Changed("burst") {
		cfg.Server.RateLimit.Burst = o.burst
	}
	if f.Changed("trust-proxy") {
		cfg.Server.TrustProxy = o.trustProxy
	}
	if f.Changed("block-private") {
		cfg.Fetch.BlockPrivate = o.blockPrivate
	}
	if f.Changed("split-mode") {
		cfg.Extract.SplitMode = o.splitMode
	}
	if f.Changed("tracing") {
		cfg.Tracing.Enabled = o.tracing
	}
	o.storage.applyTo(cmd, &cfg.Storage)
	return normalize(&cfg.Storage)
}

// app is the wired server and the resources it owns.
type app struct {
	server  *server.Server
	store   storage.Storage
	limiter *limiter.TokenBucket
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*app, error) {
	store, err := storage.Open(ctx, cfg.Storage, clk)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	ex, err := cfg.Extract.Extractor()
	if err != nil {
		store.Close()
		return nil, err
	}

	hub := server.NewHub(logger)
	mgr := session.NewManager(store, clk, cfg.Server.SessionTTL, logger)
	loader := session.NewLoader(session.LoaderConfig{
		Manager:        mgr,
		Extractor:      ex,
		Fetcher:        cfg.Fetch.Fetcher(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Notifier:       hub,
		Logger:         logger,
	})

	a := &app{store: store, limiter: limiter.New(cfg.Server.RateLimit, clk), logger: logger}

	var lim limiter.Limiter
	if a.limiter != nil {
		lim = a.limiter
	}

	a.server = server.New(server.Config{
		Addr:           cfg.Server.Addr,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Player:         cfg.Player,
		TrustProxy:     cfg.Server.TrustProxy,
		Manager:        mgr,
		Loader:         loader,
		Hub:            hub,
		Limiter:        lim,
		Clock:          clk,
		Logger:         logger,
	})
	return a, nil
}

// sweepLimiter drops idle client buckets once per window until ctx ends.
func (a *app) sweepLimiter(ctx context.Context, every time.Duration) {
	if a.limiter == nil || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Sweep(); n > 0 {
				a.logger.Debug("swept idle rate limit buckets", slog.Int("removed", n))
			}
		}
	}
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing storage failed", logging.Err(err))
	}
}
