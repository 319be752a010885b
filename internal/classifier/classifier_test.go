package classifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/intake/internal/classifier"
	"github.com/JaimeStill/intake/internal/workflow"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeChat struct {
	calls   int
	prompts []string
	reply   string
	err     error
}

func (f *fakeChat) chat(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sales_order", "sales_order"},
		{"Sales Order", "sales_order"},
		{"sales-order", "sales_order"},
		{"  Other ", "other"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := classifier.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareAddsRequiredCategories(t *testing.T) {
	got := classifier.Prepare([]classifier.Category{
		{Name: "Support", Description: "help"},
		{Name: "support", Description: "duplicate"},
		{Name: " "},
	})

	labels := classifier.Labels(got)
	want := []string{"support", workflow.LabelSalesOrder, workflow.LabelOther}
	if strings.Join(labels, ",") != strings.Join(want, ",") {
		t.Errorf("labels = %v, want %v", labels, want)
	}
	if got[0].Description != "help" {
		t.Errorf("first description = %q, want %q", got[0].Description, "help")
	}
}

func TestClassifyEmptyPayload(t *testing.T) {
	fc := &fakeChat{}
	c := classifier.New(fc.chat, nil, discard())

	got, err := c.Classify(context.Background(), " \n\t", false)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Label != workflow.LabelOther {
		t.Errorf("Label = %q, want %q", got.Label, workflow.LabelOther)
	}
	if fc.calls != 0 {
		t.Errorf("chat calls = %d, want 0", fc.calls)
	}
}

func TestClassifySalesOrder(t *testing.T) {
	fc := &fakeChat{reply: "```json\n" + `{
  "label": "Sales Order",
  "confidence": 0.93,
  "rationale": "buyer requests shipment",
  "order": {
    "items": [{"name": "widget", "quantity": 3}],
    "customer_name": "Ada",
    "address": "1 Main St",
    "email": "ada@acme.com"
  }
}` + "\n```"}
	c := classifier.New(fc.chat, classifier.DefaultCategories(), discard())

	got, err := c.Classify(context.Background(), "Please ship 3 widgets.", true)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if got.Label != workflow.LabelSalesOrder {
		t.Errorf("Label = %q, want %q", got.Label, workflow.LabelSalesOrder)
	}
	if got.Confidence != 0.93 {
		t.Errorf("Confidence = %v, want 0.93", got.Confidence)
	}
	if got.Fields["customer_name"] != "Ada" {
		t.Errorf("Fields = %v, want order fields", got.Fields)
	}

	prompt := fc.prompts[0]
	for _, want := range []string{"- sales_order:", "- other:", "Please ship 3 widgets.", "--- attachment: <name> ---"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestClassifyOtherDropsFields(t *testing.T) {
	fc := &fakeChat{reply: `{"label": "support", "confidence": 1.4, "order": {"customer_name": "Ada"}}`}
	c := classifier.New(fc.chat, nil, discard())

	got, err := c.Classify(context.Background(), "Where is my parcel?", false)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Fields != nil {
		t.Errorf("Fields = %v, want nil for non-sales label", got.Fields)
	}
	if got.Confidence != 1 {
		t.Errorf("Confidence = %v, want clamped to 1", got.Confidence)
	}
	if strings.Contains(fc.prompts[0], "--- attachment: <name> ---") {
		t.Error("prompt mentions attachments for body-only payload")
	}
}

func TestClassifyErrors(t *testing.T) {
	boom := errors.New("429 too many requests")

	tests := []struct {
		name string
		fc   *fakeChat
		want error
	}{
		{"transport", &fakeChat{err: boom}, boom},
		{"empty", &fakeChat{reply: "  "}, classifier.ErrEmptyResponse},
		{"unparseable", &fakeChat{reply: "I think this is an order."}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classifier.New(tt.fc.chat, nil, discard())
			_, err := c.Classify(context.Background(), "text", false)
			if err == nil {
				t.Fatal("Classify error = nil, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCategoriesHandler(t *testing.T) {
	h := classifier.NewHandler(classifier.DefaultCategories(), discard())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got []classifier.Category
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(classifier.DefaultCategories()) {
		t.Errorf("categories = %d, want %d", len(got), len(classifier.DefaultCategories()))
	}
}
