package formatting_test

import (
	"testing"

	"github.com/JaimeStill/intake/pkg/formatting"
)

const mb = 1024 * 1024

func TestParseBytes(t *testing.T) {
	valid := map[string]int64{
		"0":        0,
		"2048":     2048,
		"512B":     512,
		"1KB":      1024,
		"512 kb":   512 * 1024,
		"25MB":     25 * mb,
		"25mb":     25 * mb,
		" 25 MB  ": 25 * mb,
		"1.5MB":    mb + mb/2,
		"2GB":      2 * 1024 * mb,
	}
	for input, want := range valid {
		t.Run(input, func(t *testing.T) {
			got, err := formatting.ParseBytes(input)
			if err != nil {
				t.Fatalf("ParseBytes(%q): %v", input, err)
			}
			if got != want {
				t.Errorf("ParseBytes(%q) = %d, want %d", input, got, want)
			}
		})
	}

	for _, input := range []string{"", "   ", "MB", "25XB", "-5MB", "1e3"} {
		t.Run("invalid "+input, func(t *testing.T) {
			if _, err := formatting.ParseBytes(input); err == nil {
				t.Errorf("ParseBytes(%q) expected error", input)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 2, "0 B"},
		{812, 0, "812 B"},
		{1024, 0, "1 KB"},
		{1024, -3, "1 KB"},
		{1536 * 1024, 1, "1.5 MB"},
		{25 * mb, 0, "25 MB"},
		{3 * 1024 * mb, 2, "3.00 GB"},
	}

	for _, tt := range tests {
		got := formatting.FormatBytes(tt.n, tt.precision)
		if got != tt.want {
			t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
		}
	}
}
