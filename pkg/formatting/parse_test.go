package formatting_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/intake/pkg/formatting"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  sample
	}{
		{"direct JSON", `{"name":"test","value":42}`, sample{"test", 42}},
		{"direct JSON with whitespace", `  {"name":"padded","value":1}  `, sample{"padded", 1}},
		{"markdown fenced JSON", "```json\n{\"name\":\"fenced\",\"value\":7}\n```", sample{"fenced", 7}},
		{"markdown fenced without language tag", "```\n{\"name\":\"bare\",\"value\":3}\n```", sample{"bare", 3}},
		{"fenced with surrounding text", "Here is the result:\n```json\n{\"name\":\"wrapped\",\"value\":5}\n```\nDone.", sample{"wrapped", 5}},
		{"embedded object", `Sure! {"name":"inline","value":9} Let me know.`, sample{"inline", 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[sample](tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "not json at all"},
		{"empty", ""},
		{"broken braces", "{name: nope}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formatting.Parse[sample](tt.input)
			if !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("error = %v, want ErrParseFailed", err)
			}
		})
	}
}

func TestParseFailureTruncatesContent(t *testing.T) {
	_, err := formatting.Parse[sample](strings.Repeat("x", 1000))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 300 {
		t.Errorf("error message length = %d, want truncated", len(err.Error()))
	}
}
