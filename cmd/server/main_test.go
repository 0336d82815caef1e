package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/events"
	"wallet-ledger/internal/handlers"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/notes"
	"wallet-ledger/internal/obligations"
	"wallet-ledger/internal/savings"
	"wallet-ledger/internal/storage"
	"wallet-ledger/internal/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupRouter(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	defer db.Close()

	logger := discardLogger()
	broker := events.NewMemoryBroker(4)
	h := handlers.NewHandlers(handlers.Deps{
		DB:          db,
		Ledger:      ledger.New(db, broker, logger),
		Obligations: obligations.New(db, broker, logger),
		Savings:     savings.New(db, broker, logger),
		Notes:       notes.New(db, broker, logger),
		Summary:     summary.New(db, time.UTC, logger),
		Broker:      broker,
		Tokens:      auth.NewTokenIssuer("router-test-secret-123", time.Hour),
		Logger:      logger,
	})
	mux := setupRouter(h, []string{"http://localhost:5173"})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"Health check", "GET", "/health", http.StatusOK},
		{"Expenses require auth", "GET", "/api/v1/expenses", http.StatusUnauthorized},
		{"Wallets require auth", "GET", "/api/v1/wallets", http.StatusUnauthorized},
		{"Event stream requires auth", "GET", "/api/v1/events", http.StatusUnauthorized},
		{"Savings require auth", "GET", "/api/v1/savings", http.StatusUnauthorized},
		{"Notes require auth", "GET", "/api/v1/notes", http.StatusUnauthorized},
		{"Login rejects empty body", "POST", "/api/v1/auth/login", http.StatusBadRequest},
		{"Unknown route", "GET", "/api/v1/nothing-here", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, "%s %s returned unexpected status", tt.method, tt.path)
		})
	}
}

func TestSetupRouter_CORSPreflight(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	mux := setupRouter(handlers.NewHandlers(handlers.Deps{DB: db, Logger: discardLogger()}), []string{"http://localhost:5173"})

	tests := []struct {
		name        string
		origin      string
		wantAllowed bool
	}{
		{"Configured origin", "http://localhost:5173", true},
		{"Other origin", "https://evil.example.com", false},
		{"Same host other port", "http://localhost:8081", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("OPTIONS", "/api/v1/savings", http.NoBody)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "GET")
			req.Header.Set("Access-Control-Request-Headers", handlers.SavingsPINHeader)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if !tt.wantAllowed {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				return
			}
			assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), http.CanonicalHeaderKey(handlers.SavingsPINHeader))
		})
	}
}

func TestBootstrapAdmin(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, bootstrapAdmin(ctx, db, "", "", discardLogger()))
	count, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "no admin configured")

	require.NoError(t, bootstrapAdmin(ctx, db, "admin", "hunter22", discardLogger()))
	user, err := db.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("hunter22", user.PasswordHash))

	// A populated database is left alone.
	require.NoError(t, bootstrapAdmin(ctx, db, "second", "pw", discardLogger()))
	count, err = db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRun_BadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	err := run(context.Background(), []string{"-env", ""}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("PORT", "0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, []string{"-env", ""}, io.Discard) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
