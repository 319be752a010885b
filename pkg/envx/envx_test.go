package envx_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/intake/pkg/envx"
)

func TestString(t *testing.T) {
	t.Setenv("ENVX_STRING", "value")

	got := "default"
	envx.String("ENVX_STRING", &got)
	if got != "value" {
		t.Errorf("got %q, want value", got)
	}

	unset := "default"
	envx.String("ENVX_UNSET", &unset)
	if unset != "default" {
		t.Errorf("unset variable changed value to %q", unset)
	}

	empty := "default"
	envx.String("", &empty)
	if empty != "default" {
		t.Errorf("empty name changed value to %q", empty)
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"valid", "42", 42},
		{"invalid keeps default", "forty-two", 7},
		{"negative", "-3", -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVX_INT", tt.value)
			got := 7
			envx.Int("ENVX_INT", &got)
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVX_BOOL", "true")

	var got bool
	envx.Bool("ENVX_BOOL", &got)
	if !got {
		t.Error("expected true")
	}

	t.Setenv("ENVX_BOOL", "maybe")
	got = true
	envx.Bool("ENVX_BOOL", &got)
	if !got {
		t.Error("unparseable value should keep existing value")
	}
}

func TestList(t *testing.T) {
	t.Setenv("ENVX_LIST", " a, b ,,c ")

	var got []string
	envx.List("ENVX_LIST", &got)

	want := []string{"a", "b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
