package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"posrecon/internal/config"
	"posrecon/internal/customer"
)

func TestServerRoutes(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()
	cfg.Server.DevMode = true
	cfg.Server.InternalAPIKey = "k"

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	h := NewServer(app).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz got=%d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/reconcile", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight got=%d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Fatalf("missing CORS headers")
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/runs/stream", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("internal without key got=%d", w.Code)
	}
}

func TestDirectoryLoaderSelection(t *testing.T) {
	t.Parallel()

	l, err := DirectoryLoader(context.Background(), config.DirectoryConfig{})
	if err != nil || l != nil {
		t.Fatalf("empty config got=%v err=%v", l, err)
	}

	path := filepath.Join(t.TempDir(), "dskh.xlsx")
	l, err = DirectoryLoader(context.Background(), config.DirectoryConfig{XLSXPath: path, SheetName: "DSKH"})
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	x, ok := l.(customer.XLSXLoader)
	if !ok || x.Path != path || x.Sheet != "DSKH" {
		t.Fatalf("xlsx loader got=%#v", l)
	}
}
