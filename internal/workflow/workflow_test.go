package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/intake/internal/email"
	"github.com/JaimeStill/intake/internal/extract"
	"github.com/JaimeStill/intake/internal/workflow"
	"github.com/JaimeStill/intake/pkg/retry"
)

type fakeExtractor struct {
	content *extract.Content
	calls   int
}

func (f *fakeExtractor) Extract(_ context.Context, thread *email.Thread) *extract.Content {
	f.calls++
	if len(thread.PDFs()) == 0 {
		return nil
	}
	return f.content
}

type classifyCall struct {
	text              string
	hasAttachmentText bool
}

type fakeClassifier struct {
	mu      sync.Mutex
	calls   []classifyCall
	results []workflow.Classification
	errs    []error
}

func (f *fakeClassifier) Classify(_ context.Context, text string, hasAttachmentText bool) (workflow.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.calls)
	f.calls = append(f.calls, classifyCall{text, hasAttachmentText})

	if i < len(f.errs) && f.errs[i] != nil {
		return workflow.Classification{}, f.errs[i]
	}
	if len(f.results) == 0 {
		return workflow.Classification{}, nil
	}
	return f.results[min(i, len(f.results)-1)], nil
}

type fakeStore struct {
	storeCalls  int
	lookupCalls int
	order       workflow.StoredOrder
	errs        []error
	// persisted is what Lookup reports; a failing Store may still persist.
	persisted map[string]workflow.StoredOrder
	persistOn int
}

func (f *fakeStore) Store(_ context.Context, runID string, _ map[string]any) (workflow.StoredOrder, error) {
	f.storeCalls++
	if f.persistOn == f.storeCalls {
		if f.persisted == nil {
			f.persisted = map[string]workflow.StoredOrder{}
		}
		f.persisted[runID] = f.order
	}
	if i := f.storeCalls - 1; i < len(f.errs) && f.errs[i] != nil {
		return workflow.StoredOrder{}, f.errs[i]
	}
	return f.order, nil
}

func (f *fakeStore) Lookup(_ context.Context, runID string) (workflow.StoredOrder, bool, error) {
	f.lookupCalls++
	o, ok := f.persisted[runID]
	return o, ok, nil
}

type fakeVerifier struct {
	calls   int
	orderID string
	path    string
	result  workflow.Verification
	err     error
}

func (f *fakeVerifier) Verify(_ context.Context, orderID, path string) (workflow.Verification, error) {
	f.calls++
	f.orderID = orderID
	f.path = path
	return f.result, f.err
}

type harness struct {
	extractor  *fakeExtractor
	classifier *fakeClassifier
	store      *fakeStore
	verifier   *fakeVerifier
}

func newHarness() *harness {
	return &harness{
		extractor: &fakeExtractor{},
		classifier: &fakeClassifier{results: []workflow.Classification{{
			Label:  workflow.LabelSalesOrder,
			Fields: map[string]any{"customer_name": "Ada"},
		}}},
		store: &fakeStore{order: workflow.StoredOrder{
			OrderID: "ORD-1001",
			Path:    "/orders/ORD-1001.json",
		}},
		verifier: &fakeVerifier{result: workflow.Verification{Matches: true}},
	}
}

func (h *harness) runtime() *workflow.Runtime {
	return &workflow.Runtime{
		Extractor:  h.extractor,
		Classifier: h.classifier,
		Store:      h.store,
		Verifier:   h.verifier,
		Options: workflow.Options{
			Classify:      retry.Policy{Attempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond},
			StoreAttempts: 3,
			StoreBackoff:  time.Millisecond,
			Labels:        []string{workflow.LabelSalesOrder, "support", workflow.LabelOther},
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (h *harness) execute(t *testing.T, raw []byte) *workflow.Run {
	t.Helper()
	return h.executeContext(t, context.Background(), raw)
}

func (h *harness) executeContext(t *testing.T, ctx context.Context, raw []byte) *workflow.Run {
	t.Helper()
	run, err := workflow.Execute(ctx, h.runtime(), "run-1", raw)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !run.State.Terminal() {
		t.Fatalf("run ended in non-terminal state %s", run.State)
	}
	return run
}

func encode(t *testing.T, thread *email.Thread) []byte {
	t.Helper()
	raw, err := email.Encode(thread)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return raw
}

func purchaseThread(attachments ...email.Attachment) *email.Thread {
	return &email.Thread{
		Subject:     "PO 7781",
		Messages:    []email.Message{{From: "buyer@acme.com", Body: "Please ship 3 widgets to Ada."}},
		Attachments: attachments,
	}
}

func TestScenarioRejected(t *testing.T) {
	h := newHarness()

	run := h.execute(t, []byte("What is the weather today?"))

	if run.State != workflow.StateRejected {
		t.Fatalf("State = %s, want %s", run.State, workflow.StateRejected)
	}
	if got := workflow.Render(run); got != email.RejectionMessage {
		t.Errorf("Render = %q, want %q", got, email.RejectionMessage)
	}
	if h.extractor.calls+len(h.classifier.calls)+h.store.storeCalls+h.verifier.calls != 0 {
		t.Error("rejected input must not invoke any capability")
	}
	if !errors.Is(run.Rejection, workflow.ErrNotEmailThread) {
		t.Errorf("Rejection = %v, want ErrNotEmailThread", run.Rejection)
	}
	if run.Failure != nil {
		t.Errorf("Failure = %v, want nil for a rejected run", run.Failure)
	}
}

func TestScenarioSalesOrderVerified(t *testing.T) {
	h := newHarness()

	run := h.execute(t, encode(t, purchaseThread()))

	if run.State != workflow.StateSummarized {
		t.Fatalf("State = %s, want %s", run.State, workflow.StateSummarized)
	}

	want := strings.Join([]string{
		"Classification: sales_order",
		"Storage path: /orders/ORD-1001.json",
		"Order ID: ORD-1001",
		"Verification: passed",
	}, "\n")
	if got := workflow.Render(run); got != want {
		t.Errorf("Render =\n%s\nwant\n%s", got, want)
	}

	if h.verifier.calls != 1 {
		t.Errorf("verify calls = %d, want 1", h.verifier.calls)
	}
	if h.verifier.orderID != "ORD-1001" || h.verifier.path != "/orders/ORD-1001.json" {
		t.Errorf("verify called with (%q, %q), want store result", h.verifier.orderID, h.verifier.path)
	}

	for _, s := range []workflow.State{
		workflow.StateGated, workflow.StateComposed, workflow.StateClassified,
		workflow.StateStored, workflow.StateVerified,
	} {
		if !run.Visited(s) {
			t.Errorf("run did not pass through %s: %v", s, run.History)
		}
	}
}

func TestScenarioOtherSkipsStorage(t *testing.T) {
	h := newHarness()
	h.classifier.results = []workflow.Classification{{Label: workflow.LabelOther}}

	run := h.execute(t, encode(t, purchaseThread()))

	if run.State != workflow.StateSummarized {
		t.Fatalf("State = %s, want %s", run.State, workflow.StateSummarized)
	}
	if !run.Visited(workflow.StateSkippedStorage) {
		t.Errorf("run did not pass through %s", workflow.StateSkippedStorage)
	}
	if h.store.storeCalls != 0 || h.verifier.calls != 0 {
		t.Errorf("store/verify calls = %d/%d, want 0/0", h.store.storeCalls, h.verifier.calls)
	}

	s := workflow.Summarize(run)
	if s.Stored || s.OrderID != "" || s.Path != "" {
		t.Errorf("summary carries storage facts for non-sales label: %+v", s)
	}
	want := "Classification: other\nStorage: skipped (label is not sales_order)\nVerification: not performed"
	if s.Text != want {
		t.Errorf("Text = %q, want %q", s.Text, want)
	}
}

func TestScenarioUnreadableAttachment(t *testing.T) {
	h := newHarness()
	h.extractor.content = &extract.Content{Results: []extract.Result{
		{Filename: "po.pdf", OK: false, Reason: "pdf could not be parsed"},
	}}

	att := email.Attachment{Filename: "po.pdf", MediaType: email.MediaTypePDF, Data: []byte("garbage")}
	run := h.execute(t, encode(t, purchaseThread(att)))

	if len(h.classifier.calls) != 1 {
		t.Fatalf("classify calls = %d, want 1", len(h.classifier.calls))
	}
	call := h.classifier.calls[0]
	if call.text != "Please ship 3 widgets to Ada." || call.hasAttachmentText {
		t.Errorf("classify called with %+v, want body only", call)
	}

	if len(run.Degraded) != 1 || !errors.Is(run.Degraded[0], workflow.ErrExtractionDegraded) {
		t.Fatalf("Degraded = %v, want one ErrExtractionDegraded", run.Degraded)
	}
	if !strings.Contains(run.Degraded[0].Error(), "po.pdf: pdf could not be parsed") {
		t.Errorf("Degraded[0] = %q, want filename and reason", run.Degraded[0])
	}
	if run.Failure != nil {
		t.Errorf("Failure = %v, want nil for degraded extraction", run.Failure)
	}

	got := workflow.Render(run)
	note := "Note: attachment po.pdf could not be read; classified on email body only."
	if !strings.Contains(got, note) {
		t.Errorf("Render = %q, want note %q", got, note)
	}
}

func TestScenarioVerificationMismatch(t *testing.T) {
	h := newHarness()
	h.verifier.result = workflow.Verification{Matches: false, Details: "digest differs"}

	run := h.execute(t, encode(t, purchaseThread()))

	if run.State != workflow.StateSummarized {
		t.Fatalf("State = %s, want %s", run.State, workflow.StateSummarized)
	}
	if !run.Visited(workflow.StateUnverified) {
		t.Errorf("run did not pass through %s", workflow.StateUnverified)
	}

	s := workflow.Summarize(run)
	if s.Verification != workflow.VerificationMismatch {
		t.Errorf("Verification = %q, want %q", s.Verification, workflow.VerificationMismatch)
	}
	if !strings.Contains(s.Text, "Verification: MISMATCH (digest differs)") {
		t.Errorf("Text = %q, want explicit mismatch", s.Text)
	}
	if h.store.storeCalls != 1 {
		t.Errorf("store calls = %d, want 1 (mismatch does not re-store)", h.store.storeCalls)
	}
}

func TestAttachmentTextReachesClassifier(t *testing.T) {
	h := newHarness()
	h.extractor.content = &extract.Content{Results: []extract.Result{
		{Filename: "po.pdf", Text: "3 x widget", OK: true, Method: extract.MethodText},
	}}

	att := email.Attachment{Filename: "po.pdf", MediaType: email.MediaTypePDF, Data: []byte("%PDF-1.7")}
	h.execute(t, encode(t, purchaseThread(att)))

	call := h.classifier.calls[0]
	if !call.hasAttachmentText {
		t.Error("hasAttachmentText = false, want true")
	}
	if !strings.Contains(call.text, workflow.AttachmentMarker("po.pdf")+"\n3 x widget") {
		t.Errorf("classify text = %q, want attachment text", call.text)
	}
}

func TestClassificationRetry(t *testing.T) {
	transient := errors.New("503 from model")

	t.Run("recovers", func(t *testing.T) {
		h := newHarness()
		h.classifier.errs = []error{transient, transient}

		run := h.execute(t, encode(t, purchaseThread()))

		if run.State != workflow.StateSummarized {
			t.Fatalf("State = %s, want %s", run.State, workflow.StateSummarized)
		}
		if len(h.classifier.calls) != 3 {
			t.Errorf("classify calls = %d, want 3", len(h.classifier.calls))
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		h := newHarness()
		h.classifier.errs = []error{transient, transient, transient}

		run := h.execute(t, encode(t, purchaseThread()))

		if run.State != workflow.StateFailed {
			t.Fatalf("State = %s, want %s", run.State, workflow.StateFailed)
		}
		if !errors.Is(run.Failure, workflow.ErrClassificationFailed) {
			t.Errorf("Failure = %v, want ErrClassificationFailed", run.Failure)
		}
		if run.Failure.Step != workflow.StepClassification {
			t.Errorf("Failure.Step = %q, want %q", run.Failure.Step, workflow.StepClassification)
		}
		if run.Classification != nil {
			t.Error("exhausted classification must not default a label")
		}
		if h.store.storeCalls != 0 {
			t.Errorf("store calls = %d, want 0", h.store.storeCalls)
		}

		text := workflow.Render(run)
		if !strings.HasPrefix(text, "Run failed at classification: ") {
			t.Errorf("Render = %q, want failure line", text)
		}
		if strings.Contains(text, "Classification:") {
			t.Errorf("Render = %q, must not report a label", text)
		}
	})

	t.Run("empty label", func(t *testing.T) {
		h := newHarness()
		h.classifier.results = []workflow.Classification{{Label: ""}}

		run := h.execute(t, encode(t, purchaseThread()))

		if run.State != workflow.StateFailed {
			t.Fatalf("State = %s, want %s", run.State, workflow.StateFailed)
		}
		if len(h.classifier.calls) != 3 {
			t.Errorf("classify calls = %d, want 3", len(h.classifier.calls))
		}
	})
}

func TestUnknownLabelTreatedAsOther(t *testing.T) {
	h := newHarness()
	h.classifier.results = []workflow.Classification{{Label: "newsletter"}}

	run := h.execute(t, encode(t, purchaseThread()))

	if run.Classification.Label != workflow.LabelOther {
		t.Errorf("Label = %q, want %q", run.Classification.Label, workflow.LabelOther)
	}
	if h.store.storeCalls != 0 {
		t.Errorf("store calls = %d, want 0", h.store.storeCalls)
	}
}

func TestStorageValidationFailure(t *testing.T) {
	h := newHarness()
	h.store.errs = []error{errors.Join(workflow.ErrValidation, errors.New("items is required"))}

	run := h.execute(t, encode(t, purchaseThread()))

	if run.State != workflow.StateFailed {
		t.Fatalf("State = %s, want %s", run.State, workflow.StateFailed)
	}
	if !errors.Is(run.Failure, workflow.ErrValidationFailed) {
		t.Errorf("Failure = %v, want ErrValidationFailed", run.Failure)
	}
	if h.store.storeCalls != 1 || h.store.lookupCalls != 0 {
		t.Errorf("store/lookup calls = %d/%d, want 1/0", h.store.storeCalls, h.store.lookupCalls)
	}
	if h.verifier.calls != 0 {
		t.Errorf("verify calls = %d, want 0", h.verifier.calls)
	}

	s := workflow.Summarize(run)
	if s.OrderID != "" || s.Path != "" {
		t.Errorf("failed storage reported identifiers: %+v", s)
	}
	if !strings.Contains(s.Text, "Classification: sales_order") {
		t.Errorf("Text = %q, want facts obtained before failure", s.Text)
	}
}

func TestStorageAtMostOnce(t *testing.T) {
	timeout := errors.New("connection reset")

	t.Run("adopts order persisted by failed attempt", func(t *testing.T) {
		h := newHarness()
		h.store.errs = []error{timeout}
		h.store.persistOn = 1

		run := h.execute(t, encode(t, purchaseThread()))

		if h.store.storeCalls != 1 {
			t.Errorf("store calls = %d, want 1", h.store.storeCalls)
		}
		if h.store.lookupCalls != 1 {
			t.Errorf("lookup calls = %d, want 1", h.store.lookupCalls)
		}
		if run.Stored == nil || run.Stored.OrderID != "ORD-1001" {
			t.Errorf("Stored = %+v, want adopted order", run.Stored)
		}
		if run.State != workflow.StateSummarized {
			t.Errorf("State = %s, want %s", run.State, workflow.StateSummarized)
		}
	})

	t.Run("retries when nothing persisted", func(t *testing.T) {
		h := newHarness()
		h.store.errs = []error{timeout}

		run := h.execute(t, encode(t, purchaseThread()))

		if h.store.storeCalls != 2 {
			t.Errorf("store calls = %d, want 2", h.store.storeCalls)
		}
		if run.Stored == nil {
			t.Fatal("Stored = nil, want order")
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		h := newHarness()
		h.store.errs = []error{timeout, timeout, timeout}

		run := h.execute(t, encode(t, purchaseThread()))

		if run.State != workflow.StateFailed {
			t.Fatalf("State = %s, want %s", run.State, workflow.StateFailed)
		}
		if !errors.Is(run.Failure, workflow.ErrStorageFailed) {
			t.Errorf("Failure = %v, want ErrStorageFailed", run.Failure)
		}
		if run.Stored != nil {
			t.Errorf("Stored = %+v, want nil", run.Stored)
		}
		if h.verifier.calls != 0 {
			t.Errorf("verify calls = %d, want 0", h.verifier.calls)
		}
	})
}

func TestVerificationError(t *testing.T) {
	h := newHarness()
	h.verifier.err = errors.New("blob unavailable")

	run := h.execute(t, encode(t, purchaseThread()))

	if run.State != workflow.StateFailed {
		t.Fatalf("State = %s, want %s", run.State, workflow.StateFailed)
	}
	if !errors.Is(run.Failure, workflow.ErrVerificationFailed) {
		t.Errorf("Failure = %v, want ErrVerificationFailed", run.Failure)
	}

	s := workflow.Summarize(run)
	if s.OrderID != "ORD-1001" || s.Path != "/orders/ORD-1001.json" {
		t.Errorf("summary lost stored facts: %+v", s)
	}
	if !strings.HasSuffix(s.Text, "Run failed at verification: "+run.Failure.Err.Error()) {
		t.Errorf("Text = %q, want failure line last", s.Text)
	}
}

func TestCancelledBeforeClassification(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := h.executeContext(t, ctx, encode(t, purchaseThread()))

	if run.State != workflow.StateFailed {
		t.Fatalf("State = %s, want %s", run.State, workflow.StateFailed)
	}
	if len(h.classifier.calls) != 0 || h.store.storeCalls != 0 || h.verifier.calls != 0 {
		t.Error("cancelled run must not invoke external capabilities")
	}
}

func TestRunsAreIndependent(t *testing.T) {
	h := newHarness()
	rt := h.runtime()
	raw := encode(t, purchaseThread())

	first, err := workflow.Execute(context.Background(), rt, "run-a", raw)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	second, err := workflow.Execute(context.Background(), rt, "run-b", raw)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if first == second {
		t.Fatal("runs share state")
	}
	if first.ID != "run-a" || second.ID != "run-b" {
		t.Errorf("run ids = %q, %q", first.ID, second.ID)
	}
	if h.store.storeCalls != 2 {
		t.Errorf("store calls = %d, want 2", h.store.storeCalls)
	}
}
