// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/halvard/lectern/internal/api"
	"github.com/halvard/lectern/internal/gitstatus"
	"github.com/halvard/lectern/internal/library"
	"github.com/halvard/lectern/internal/mcpserver"
	"github.com/halvard/lectern/internal/session"
	"github.com/halvard/lectern/internal/sse"
	"github.com/halvard/lectern/internal/store"
	"github.com/halvard/lectern/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. MCP mode logs to stderr since
	// stdout carries the protocol.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("mcp_mode", app.mcpMode))

	// Initialize SQLite store.
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	// Session owns the open project's tree, list and selection.
	source := watcher.NewFSNotify(logger)
	sess := session.New(st, source, logger)
	defer sess.Close()

	lib := library.New(st, logger)
	git := gitstatus.New(logger, gitstatus.WithTimeout(cfg.Git.Timeout()))

	if app.openPath != "" {
		if _, err := sess.OpenProject(ctx, app.openPath); err != nil {
			return fmt.Errorf("open project: %w", err)
		}
	}

	if app.mcpMode {
		logger.Info("Serving MCP on stdio")
		return mcpserver.New(st, sess, git).ServeStdio()
	}

	// SSE broker, fed by session changes.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	sess.Subscribe(func(c session.Change) {
		switch c.Kind {
		case session.ProjectOpened:
			broker.PublishProjectOpened(c.Path)
		case session.TreeReplaced, session.DocumentReloaded:
			broker.PublishDocumentChanged(c.Path)
		case session.SelectionChanged:
			broker.Publish(sse.Event{Type: "selection.changed", Data: map[string]string{"path": c.Path}})
		}
	})

	// Build API handler and router.
	h := api.NewHandler(sess, lib, st, git)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

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
