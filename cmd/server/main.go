package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vncsmyrnk/polls/internal/adapters/handler/http"
	"github.com/vncsmyrnk/polls/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/polls/internal/adapters/repository"
	"github.com/vncsmyrnk/polls/internal/config"
	"github.com/vncsmyrnk/polls/internal/core/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Migrate {
		applied, err := store.Migrate(ctx)
		if err != nil {
			return err
		}
		slog.Info("migrations applied", "count", len(applied), "names", applied)
	}

	if len(cfg.AdminEmails) == 0 {
		slog.Warn("ADMIN_EMAILS is empty, nobody can sign in to the admin site")
	}

	renderer, err := http.NewRenderer(cfg.Location, time.Now)
	if err != nil {
		return err
	}

	authService := services.NewAuthService(store.Users, store.Auth, google.NewVerifier(), services.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		GoogleClientID: cfg.GoogleClientID,
		StaffEmails:    cfg.AdminEmails,
	})

	handler := http.NewHandler(http.Handlers{
		Renderer: renderer,
		Polls:    http.NewPollHandler(services.NewPollService(store.Questions, nil), renderer),
		Votes:    http.NewVoteHandler(services.NewVoteService(store.Questions, store.Votes, nil), renderer),
		Admin:    http.NewAdminHandler(services.NewAdminService(store.Questions, nil, cfg.Location), renderer, cfg.Location),
		Auth:     http.NewAuthHandler(authService, services.NewUserService(store.Users), renderer, cfg.GoogleClientID, cfg.CookieSecure),
		Store:    store,
	})

	server := &stdhttp.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(handler, "polls"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("listening", "port", cfg.Port, "database", cfg.DatabaseType)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	slog.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
