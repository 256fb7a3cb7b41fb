package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/config"
	"github.com/coffee-matcher/matcher-engine/pkg/database"
	"github.com/coffee-matcher/matcher-engine/pkg/handlers"
	"github.com/coffee-matcher/matcher-engine/pkg/metrics"
	"github.com/coffee-matcher/matcher-engine/pkg/middleware"
	"github.com/coffee-matcher/matcher-engine/ui"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	SkipMigrations bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

Pending migrations are applied before the listener starts. The server stops
gracefully on SIGINT or SIGTERM.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("addr", cfg.Addr()))

	db, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !opts.SkipMigrations {
		if err := database.RunMigrations(db.StdDB(), cfg.MigrationsPath, logger); err != nil {
			return err
		}
	}

	redis, err := database.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	// Assigned only when connected: a nil *Redis in an interface is not nil.
	var counter middleware.WindowCounter
	var cache handlers.Pinger
	if redis != nil {
		defer redis.Close()
		counter = redis
		cache = redis
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		logger.Info("Redis not configured, rate limiting disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := newApp(metrics.New(reg), logger)
	handler := newHandler(cfg, a, database.WithScopeContext(db, logger), db, cache, counter, reg, logger)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// newHandler assembles routes and the global middleware stack. scope attaches
// a database connection to every API route; db and cache back /health.
func newHandler(
	cfg *config.Config,
	a *app,
	scope handlers.RouteMiddleware,
	db handlers.Pinger,
	cache handlers.Pinger,
	counter middleware.WindowCounter,
	reg *prometheus.Registry,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, cache, logger).RegisterRoutes(mux)
	handlers.NewUsersHandler(a.users, a.queries, logger).RegisterRoutes(mux, scope)
	handlers.NewVenuesHandler(a.venues, a.queries, logger).RegisterRoutes(mux, scope)
	handlers.NewTimeSlotsHandler(a.slots, a.queries, logger).RegisterRoutes(mux, scope)
	handlers.NewPreferencesHandler(a.prefs, logger).RegisterRoutes(mux, scope)
	handlers.NewMatchesHandler(a.matches, a.queries, logger).RegisterRoutes(mux, scope)

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", http.FileServer(staticFS(cfg.StaticDir)))

	// The metrics middleware reads the matched route pattern, so it must wrap
	// the mux directly.
	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.RateLimit(counter, cfg.RateLimit, logger),
		middleware.NewHTTPMetrics(reg).Middleware(),
	)
}

// staticFS serves dir when it exists and the embedded landing page otherwise.
func staticFS(dir string) http.FileSystem {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return http.Dir(dir)
		}
	}
	return http.FS(ui.DistFS())
}
