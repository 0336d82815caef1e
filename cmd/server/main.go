package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/internal/attachments"
	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/config"
	"wallet-ledger/internal/events"
	"wallet-ledger/internal/handlers"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/notes"
	"wallet-ledger/internal/obligations"
	"wallet-ledger/internal/savings"
	"wallet-ledger/internal/storage"
	"wallet-ledger/internal/summary"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 30 * time.Second
	sessionSweep    = time.Hour
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logOut io.Writer) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	envFile := fs.String("env", ".env", "Path to an optional .env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetTxAttempts(cfg.TxMaxAttempts)

	if err := bootstrapAdmin(ctx, db, cfg.AdminUser, cfg.AdminPassword, logger); err != nil {
		return err
	}

	broker, closeBroker, err := newBroker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBroker()

	h := handlers.NewHandlers(handlers.Deps{
		DB:           db,
		Ledger:       ledger.New(db, broker, logger, ledger.WithDefaultCurrency(cfg.DefaultCurrency)),
		Obligations:  obligations.New(db, broker, logger),
		Savings:      savings.New(db, broker, logger),
		Notes:        notes.New(db, broker, logger),
		Summary:      summary.New(db, cfg.Location, logger),
		Uploader:     attachments.NewUploader(cfg.UploadURL, cfg.UploadPreset, logger),
		Broker:       broker,
		Tokens:       auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Logger:       logger,
		SecureCookie: cfg.SecureCookie,
	})

	go sweepSessions(ctx, db, logger)

	// No WriteTimeout: the event stream stays open. Other routes are bounded
	// by the router's timeout middleware.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(h, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "db", cfg.DBPath, "redis", cfg.RedisAddr != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// setupRouter builds the root router. Only the listed origins may make
// credentialed cross-origin requests.
func setupRouter(h *handlers.Handlers, origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.SavingsPINHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"healthy"}`)
	})

	r.Mount("/api/v1", h.Routes(requestTimeout))
	return r
}

// bootstrapAdmin creates the configured admin account on an empty database.
func bootstrapAdmin(ctx context.Context, db *storage.DB, username, password string, logger *slog.Logger) error {
	if username == "" || password == "" {
		return nil
	}
	count, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	user, err := db.CreateUser(ctx, username, hash)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	logger.Info("admin user created", "user_id", user.ID, "username", user.Username)
	return nil
}

// newBroker returns the Redis broker when REDIS_ADDR is set and an
// in-process broker otherwise.
func newBroker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Broker, func(), error) {
	if cfg.RedisAddr == "" {
		return events.NewMemoryBroker(64), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return events.NewRedisBroker(client, logger), func() { client.Close() }, nil
}

func sweepSessions(ctx context.Context, db *storage.DB, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.CleanExpiredSessions(ctx); err != nil {
				logger.Warn("failed to clean expired sessions", "error", err)
			}
		}
	}
}
