// Package testutil provides shared test helpers: a logger bound to the test,
// a migrated in-memory store and request helpers.
package testutil

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/aiokaizen/bear-vision/internal/storage"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// NewStore opens an in-memory SQLite store with every migration applied.
// The store is closed when the test ends.
func NewStore(t testing.TB) *storage.Store {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Config{
		Driver: storage.DriverSQLite,
		DSN:    ":memory:",
		Logger: NewTestLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return store
}

// NewTestSessionStore creates a session store for testing. Its cookies are
// not marked secure so that httptest servers get them back.
func NewTestSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
	store.Options.Secure = false
	return store
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
