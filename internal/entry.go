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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/bomberos/internal/api"
	"github.com/starford/bomberos/internal/catalog"
	"github.com/starford/bomberos/internal/mcpserver"
	"github.com/starford/bomberos/internal/observability"
	"github.com/starford/bomberos/internal/session"
	"github.com/starford/bomberos/internal/sse"
	"github.com/starford/bomberos/internal/store"
	"github.com/starford/bomberos/internal/toolkit"
)

// core is the transport-independent part of the application.
type core struct {
	db      *store.DB
	source  *catalog.Source
	metrics *observability.Metrics
	svc     *toolkit.Service
}

func newLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// newCore opens the store and loads the catalogue. reg may be nil.
func newCore(cfg *Config, logger *slog.Logger, reg prometheus.Registerer) (*core, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	src := catalog.NewSource(cat)
	metrics := observability.NewMetrics(reg)
	svc := toolkit.NewService(src, db, metrics,
		toolkit.WithHistoryLimit(cfg.Search.HistoryLimit),
		toolkit.WithLogger(logger),
	)

	logger.Info("Catalog loaded",
		slog.Int("records", cat.Len()),
		slog.String("checksum", cat.Checksum()))

	return &core{db: db, source: src, metrics: metrics, svc: svc}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts...)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg.App.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.Bool("catalog_watch", cfg.Catalog.Watch),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Duration("debounce", cfg.Search.Debounce),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c, err := newCore(cfg, logger, reg)
	if err != nil {
		return err
	}
	defer c.db.Close()

	broker := sse.NewBroker(sse.WithClientGauge(func(n int) {
		c.metrics.SSEClients.Set(float64(n))
	}))
	sessions := session.NewManager(c.svc, broker,
		session.WithDelay(cfg.Search.Debounce),
		session.WithInputRate(cfg.Search.InputRate, cfg.Search.InputBurst),
		session.WithIdleTTL(cfg.Search.SessionIdleTTL),
		session.WithMaxSessions(cfg.Search.MaxSessions),
		session.WithMetrics(c.metrics),
		session.WithLogger(logger),
	)

	apiRouter := api.NewRouter(c.svc, sessions, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		if err := c.db.Ping(); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Catalog.Watch {
		g.Go(func() error {
			err := catalog.Watch(gCtx, cfg.Catalog.Path, c.source, logger, func(cat *catalog.Catalog) {
				c.svc.CatalogReloaded(cat)
				broker.Publish(sse.Event{
					Type: sse.TypeCatalogReloaded,
					Data: map[string]any{"records": cat.Len(), "checksum": cat.Checksum()},
				})
			})
			if err != nil {
				return fmt.Errorf("catalog watcher: %w", err)
			}
			return nil
		})
	}

	// Expired key and idle session purger.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Search.PurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if evicted := sessions.EvictIdle(); evicted > 0 {
					logger.Info("evicted idle sessions", slog.Int("count", evicted))
				}
				n, err := c.db.PurgeExpired(gCtx)
				if err != nil {
					logger.Warn("purge expired keys failed", slog.String("error", err.Error()))
					continue
				}
				if n > 0 {
					logger.Info("purged expired keys", slog.Int64("count", n))
				}
			}
		}
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams end when the broker closes; otherwise Shutdown would
		// wait on them until the timeout.
		sessions.Shutdown()
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the signal handler has stopped the server,
// so the purger and watcher exit too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the toolkit over MCP on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts...)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(cfg.App.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	c, err := newCore(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	srv := mcpserver.New(c.svc, app.version)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
