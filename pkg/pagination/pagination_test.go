package pagination_test

import (
	"net/url"
	"testing"

	"github.com/JaimeStill/intake/pkg/pagination"
)

var cfg = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
		wantOff  int
	}{
		{"defaults", "", 1, 20, 0},
		{"explicit", "page=3&page_size=10", 3, 10, 20},
		{"clamped size", "page_size=500", 1, 100, 0},
		{"negative page", "page=-2", 1, 20, 0},
		{"garbage", "page=abc&page_size=xyz", 1, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.FromQuery(values, cfg)

			if req.Page != tt.wantPage || req.PageSize != tt.wantSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d", req.Page, req.PageSize, tt.wantPage, tt.wantSize)
			}
			if req.Offset() != tt.wantOff {
				t.Errorf("offset: got %d, want %d", req.Offset(), tt.wantOff)
			}
		})
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		size      int
		wantPages int
	}{
		{"empty", 0, 10, 1},
		{"exact", 20, 10, 2},
		{"remainder", 21, 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pagination.NewPageResult[string](nil, tt.total, pagination.PageRequest{Page: 1, PageSize: tt.size})
			if res.TotalPages != tt.wantPages {
				t.Errorf("total pages: got %d, want %d", res.TotalPages, tt.wantPages)
			}
			if res.Data == nil {
				t.Error("data should never be nil")
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var c pagination.Config
		if err := c.Finalize(nil); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if c.DefaultPageSize != 20 || c.MaxPageSize != 100 {
			t.Errorf("got %+v", c)
		}
	})

	t.Run("default exceeds max", func(t *testing.T) {
		c := pagination.Config{DefaultPageSize: 50, MaxPageSize: 10}
		if err := c.Finalize(nil); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("TEST_PAGE_SIZE", "5")
		var c pagination.Config
		if err := c.Finalize(&pagination.ConfigEnv{DefaultPageSize: "TEST_PAGE_SIZE"}); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if c.DefaultPageSize != 5 {
			t.Errorf("DefaultPageSize = %d, want 5", c.DefaultPageSize)
		}
	})
}
