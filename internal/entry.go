// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/fehu/internal/api"
	"github.com/starford/fehu/internal/chartservice"
	"github.com/starford/fehu/internal/demo"
	"github.com/starford/fehu/internal/index"
	"github.com/starford/fehu/internal/mcpserver"
	"github.com/starford/fehu/internal/observability/metrics"
	"github.com/starford/fehu/internal/sse"
	"github.com/starford/fehu/internal/storage"
)

// runtime is the shared state of every command: config, logger, vault and index.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
}

// setup applies opts, installs the JSON logger writing to out (unless an
// option redirects it), and opens the vault and the index.
func setup(out io.Writer, opts []Option) (*runtime, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config
	if app.vaultPath != "" {
		overridden := *cfg
		overridden.Vault.Path = app.vaultPath
		cfg = &overridden
	}
	if app.logOutput != nil {
		out = app.logOutput
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("sync_schedule", cfg.Sync.Schedule),
		slog.Bool("skip_invalid_streams", cfg.Chart.SkipInvalidStreams),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, store: store, db: db}, nil
}

func (rt *runtime) close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index", slog.String("error", err.Error()))
	}
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("close vault", slog.String("error", err.Error()))
	}
}

func (rt *runtime) service(opts ...chartservice.Option) *chartservice.Service {
	opts = append([]chartservice.Option{
		chartservice.WithSkipInvalidStreams(rt.cfg.Chart.SkipInvalidStreams),
	}, opts...)
	return chartservice.NewService(rt.store, rt.db, rt.logger, opts...)
}

// syncVault runs one full vault pass and records the outcome.
func (rt *runtime) syncVault() {
	start := time.Now()
	stats, err := index.Sync(rt.db, rt.store, rt.logger)
	metrics.IncSync(metrics.ResultOf(err))
	if err != nil {
		rt.logger.Warn("vault sync failed", slog.String("error", err.Error()))
		return
	}
	rt.logger.Info("vault synced",
		slog.Int("indexed", stats.Indexed),
		slog.Int("removed", stats.Removed),
		slog.Int("failed", stats.Failed),
		slog.Duration("took", time.Since(start)))
}

// Run starts the HTTP server with the watcher, SSE broker and scheduled
// re-sync, and blocks until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(os.Stdout, opts)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	if cfg.Metrics.Enabled {
		metrics.Init(rt.db.CountCharts, logger)
	}
	rt.syncVault()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := rt.service(chartservice.WithNotifier(broker.PublishChartEvent))
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := rt.db.CountCharts(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher feeds the SSE broker.
	g.Go(func() error {
		err := index.Watch(gCtx, rt.db, rt.store, rt.store.Root(), logger, broker.PublishChartEvent)
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Scheduled full re-sync catches anything the watcher missed.
	g.Go(func() error {
		if cfg.Sync.Schedule == "" {
			return nil
		}
		c := cron.New()
		if _, err := c.AddFunc(cfg.Sync.Schedule, rt.syncVault); err != nil {
			return fmt.Errorf("schedule sync: %w", err)
		}
		c.Start()
		logger.Info("Scheduled vault sync", slog.String("schedule", cfg.Sync.Schedule))
		<-gCtx.Done()
		<-c.Stop().Done()
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := setup(os.Stderr, opts)
	if err != nil {
		return err
	}
	defer rt.close()
	rt.syncVault()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(ctx, rt.db, rt.store, rt.store.Root(), rt.logger, nil); err != nil {
			rt.logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	return mcpserver.New(rt.service()).ServeStdio()
}

// Seed writes the demo chart into the vault and indexes it. It returns the
// path written, or "" if the chart already existed.
func Seed(ctx context.Context, opts ...Option) (string, error) {
	rt, err := setup(os.Stderr, opts)
	if err != nil {
		return "", err
	}
	defer rt.close()
	rt.syncVault()

	detail, created, err := demo.Seed(ctx, rt.service())
	if err != nil {
		return "", fmt.Errorf("seed: %w", err)
	}
	if !created {
		rt.logger.Info("demo chart already present", slog.String("chart_id", demo.ChartID))
		return "", nil
	}
	rt.logger.Info("demo chart written", slog.String("path", detail.Path))
	return detail.Path, nil
}
