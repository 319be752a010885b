package storage_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/JaimeStill/intake/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=intakestore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/intakestore;"

func TestNewAzure(t *testing.T) {
	cfg := &storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "orders",
		ConnectionString: azuriteConnString,
	}

	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys == nil {
		t.Fatal("New() returned nil system")
	}
}

func TestNewAzureInvalidConnectionString(t *testing.T) {
	cfg := &storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "orders",
		ConnectionString: "not-a-connection-string",
	}

	if _, err := storage.New(cfg, slog.Default()); err == nil {
		t.Fatal("expected error for invalid connection string, got nil")
	}
}

func TestNewMinio(t *testing.T) {
	cfg := &storage.Config{
		Provider:      storage.ProviderMinio,
		ContainerName: "orders",
		Minio: storage.MinioConfig{
			Endpoint:  "127.0.0.1:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
		},
	}

	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys == nil {
		t.Fatal("New() returned nil system")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := &storage.Config{Provider: "floppy", ContainerName: "orders"}
	if _, err := storage.New(cfg, slog.Default()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestKeyValidation(t *testing.T) {
	cfg := &storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "orders",
		ConnectionString: azuriteConnString,
	}
	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty key", "", storage.ErrEmptyKey},
		{"traversal", "orders/../secrets.json", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Download error = %v, want %v", err, tt.want)
			}
			if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Delete error = %v, want %v", err, tt.want)
			}
			if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Exists error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get: %w", storage.ErrNotFound), http.StatusNotFound},
		{"empty key", storage.ErrEmptyKey, http.StatusBadRequest},
		{"invalid key", storage.ErrInvalidKey, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults with connection string", func(t *testing.T) {
		cfg := storage.Config{ConnectionString: azuriteConnString}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if cfg.Provider != storage.ProviderAzure {
			t.Errorf("Provider = %q, want azure", cfg.Provider)
		}
		if cfg.ContainerName != "orders" {
			t.Errorf("ContainerName = %q, want orders", cfg.ContainerName)
		}
	})

	t.Run("azure requires credentials source", func(t *testing.T) {
		var cfg storage.Config
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error without connection string or service url")
		}
	})

	t.Run("minio requires endpoint", func(t *testing.T) {
		cfg := storage.Config{Provider: storage.ProviderMinio}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error without minio endpoint")
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_PROVIDER", "minio")
		t.Setenv("TEST_STORAGE_MINIO_ENDPOINT", "minio:9000")

		var cfg storage.Config
		err := cfg.Finalize(&storage.Env{
			Provider:      "TEST_STORAGE_PROVIDER",
			MinioEndpoint: "TEST_STORAGE_MINIO_ENDPOINT",
		})
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if cfg.Provider != storage.ProviderMinio || cfg.Minio.Endpoint != "minio:9000" {
			t.Errorf("got provider=%q endpoint=%q", cfg.Provider, cfg.Minio.Endpoint)
		}
	})
}
