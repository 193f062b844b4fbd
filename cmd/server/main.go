// Storefront - server-rendered product catalog browser
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/gate"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/prefetch"
	"storefront/internal/products"
	"storefront/internal/render"
	"storefront/internal/session"
	"storefront/internal/upstream"
	"storefront/internal/view"
	"storefront/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "upstream", cfg.UpstreamBaseURL)

	// Initialize dependencies.
	client := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)
	fetcher := products.NewFetcher(client)
	orchestrator := prefetch.New(fetcher)

	renderer, err := view.NewTemplateRenderer()
	if err != nil {
		slog.Error("Failed to parse view templates", "error", err)
		os.Exit(1)
	}

	// The shell source is injected by environment: the embedded bundle in
	// production, a watched file on disk in development.
	var shellSource render.Source
	if cfg.IsDevelopment() {
		watched, err := render.Watch(cfg.ShellPath)
		if err != nil {
			slog.Error("Failed to watch shell template", "error", err, "path", cfg.ShellPath)
			os.Exit(1)
		}
		defer func() {
			if closeErr := watched.Close(); closeErr != nil {
				slog.Error("Failed to close shell watcher", "error", closeErr)
			}
		}()
		shellSource = watched
		slog.Info("Shell template watched for live reload", "path", cfg.ShellPath)
	} else {
		shell, err := web.Shell()
		if err != nil {
			slog.Error("Failed to load embedded shell", "error", err)
			os.Exit(1)
		}
		shellSource = render.Static(shell)
	}

	m := metrics.New()

	// Initialize handlers.
	authHandler := auth.NewHandler(client, !cfg.IsDevelopment())
	productsHandler := products.NewHandler(client)
	pipeline := render.New(shellSource, renderer, orchestrator, cfg.RenderTimeout, m)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(session.Middleware)
	r.Use(gate.Middleware)

	// Proxy endpoints.
	authHandler.RegisterRoutes(r)
	productsHandler.RegisterRoutes(r)

	// Observability.
	r.Handle("/metrics", m.Handler())

	// Static assets.
	r.Handle("/assets/*", web.AssetsHandler())
	r.Handle("/favicon.ico", web.AssetsHandler())

	// Page routes sharing a pattern with a proxy method need explicit GETs;
	// chi would answer 405 instead of falling through to the catch-all.
	r.Get("/products/new", pipeline.ServeHTTP)
	r.Get("/products/{id}", pipeline.ServeHTTP)

	// Everything else streams server-rendered HTML.
	r.Handle("/*", pipeline)

	// Streaming responses need an unset write timeout; the render pipeline
	// bounds itself with its own deadline.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
