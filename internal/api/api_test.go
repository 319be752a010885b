package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/intake/internal/api"
	"github.com/JaimeStill/intake/internal/classifier"
	"github.com/JaimeStill/intake/internal/config"
	"github.com/JaimeStill/intake/internal/infrastructure"
	"github.com/JaimeStill/intake/pkg/database"
	"github.com/JaimeStill/intake/pkg/events"
	"github.com/JaimeStill/intake/pkg/lifecycle"
	"github.com/JaimeStill/intake/pkg/storage"
)

type nopStorage struct{}

func (nopStorage) Start(*lifecycle.Coordinator) error { return nil }
func (nopStorage) Upload(context.Context, string, io.Reader, int64, string) error {
	return nil
}
func (nopStorage) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}
func (nopStorage) Delete(context.Context, string) error         { return nil }
func (nopStorage) Exists(context.Context, string) (bool, error) { return false, nil }

func newModule(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("INTAKE_STORAGE_CONNECTION_STRING", "conn")

	cfg, err := config.LoadFrom(t.TempDir() + "/config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		t.Fatalf("database: %v", err)
	}

	infra := &infrastructure.Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   nopStorage{},
		Events:    events.Noop{},
	}

	m, err := api.NewModule(context.Background(), cfg, infra)
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	if m.Prefix() != "/api" {
		t.Fatalf("prefix: got %s, want /api", m.Prefix())
	}
	return http.HandlerFunc(m.Serve)
}

func TestCategoriesRoute(t *testing.T) {
	h := newModule(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var got []classifier.Category
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(classifier.DefaultCategories()) {
		t.Errorf("categories: got %d, want %d", len(got), len(classifier.DefaultCategories()))
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newModule(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nothing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestRunsRejectsInvalidID(t *testing.T) {
	h := newModule(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/not-a-uuid", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestOpenAPIRoute(t *testing.T) {
	h := newModule(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, p := range []string{"/runs", "/runs/{id}", "/orders", "/orders/{id}", "/orders/{id}/verify", "/categories"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("path %s missing from document", p)
		}
	}
}
