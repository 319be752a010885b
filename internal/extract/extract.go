// Package extract turns PDF attachments into text. Extraction is best effort:
// a failed attachment is reported on its Result and never fails the caller.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/intake/internal/email"
	"github.com/JaimeStill/intake/pkg/formatting"
)

var (
	// ErrEmptyPDF indicates the attachment carried no decodable bytes.
	ErrEmptyPDF = errors.New("attachment has no data")
	// ErrUnreadable indicates the PDF could not be parsed.
	ErrUnreadable = errors.New("pdf could not be parsed")
	// ErrNoText indicates the PDF parsed but yielded no text.
	ErrNoText = errors.New("pdf contains no extractable text")
)

// Extraction methods recorded on a Result.
const (
	MethodText   = "text"
	MethodVision = "vision"
)

// TextExtractor turns PDF bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Result is the extraction outcome for one PDF attachment. Text is empty
// whenever OK is false.
type Result struct {
	Filename string `json:"filename"`
	Text     string `json:"-"`
	OK       bool   `json:"ok"`
	Method   string `json:"method,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Content is the extracted text of every PDF attachment in thread order.
// A nil *Content means the thread had no PDF attachment.
type Content struct {
	Results []Result `json:"results"`
}

// Degraded returns the filenames of attachments that could not be read.
func (c *Content) Degraded() []string {
	if c == nil {
		return nil
	}
	var names []string
	for _, r := range c.Results {
		if !r.OK {
			names = append(names, r.Filename)
		}
	}
	return names
}

// Readable returns the successful results in thread order.
func (c *Content) Readable() []Result {
	if c == nil {
		return nil
	}
	var ok []Result
	for _, r := range c.Results {
		if r.OK {
			ok = append(ok, r)
		}
	}
	return ok
}

// Options bounds extraction work.
type Options struct {
	Timeout     time.Duration
	Concurrency int
}

// Extractor runs a primary text extractor over each PDF attachment and an
// optional fallback when the primary yields nothing.
type Extractor struct {
	primary  TextExtractor
	fallback TextExtractor
	opts     Options
	logger   *slog.Logger
}

// New creates an Extractor. fallback may be nil.
func New(primary, fallback TextExtractor, opts Options, logger *slog.Logger) *Extractor {
	return &Extractor{
		primary:  primary,
		fallback: fallback,
		opts:     opts,
		logger:   logger.With("system", "extract"),
	}
}

// Extract processes every PDF attachment of thread. It returns nil when the
// thread has none.
func (e *Extractor) Extract(ctx context.Context, thread *email.Thread) *Content {
	pdfs := thread.PDFs()
	if len(pdfs) == 0 {
		return nil
	}

	results := make([]Result, len(pdfs))

	var g errgroup.Group
	g.SetLimit(e.workers(len(pdfs)))

	for i, pdf := range pdfs {
		g.Go(func() error {
			results[i] = e.extractOne(ctx, pdf)
			return nil
		})
	}
	g.Wait()

	return &Content{Results: results}
}

func (e *Extractor) extractOne(ctx context.Context, a email.Attachment) Result {
	res := Result{Filename: a.Name()}

	if len(a.Data) == 0 {
		res.Reason = ErrEmptyPDF.Error()
		e.logger.WarnContext(ctx, "attachment unreadable", "filename", res.Filename, "error", ErrEmptyPDF)
		return res
	}

	text, err := e.run(ctx, e.primary, a.Data)
	if err == nil {
		res.Text, res.OK, res.Method = text, true, MethodText
	} else if e.fallback != nil && ctx.Err() == nil {
		e.logger.InfoContext(ctx, "text extraction failed, trying vision fallback",
			"filename", res.Filename, "error", err)

		text, ferr := e.run(ctx, e.fallback, a.Data)
		if ferr == nil {
			res.Text, res.OK, res.Method = text, true, MethodVision
		} else {
			err = fmt.Errorf("%w; vision fallback: %w", err, ferr)
		}
	}

	if !res.OK {
		res.Reason = err.Error()
		e.logger.WarnContext(ctx, "attachment unreadable", "filename", res.Filename, "error", err)
		return res
	}

	e.logger.InfoContext(ctx, "attachment extracted",
		"filename", res.Filename,
		"method", res.Method,
		"size", formatting.FormatBytes(int64(len(a.Data)), 1),
		"chars", len(res.Text),
	)
	return res
}

func (e *Extractor) run(ctx context.Context, x TextExtractor, data []byte) (string, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	text, err := x.ExtractText(ctx, data)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (e *Extractor) workers(n int) int {
	limit := e.opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return max(min(limit, n), 1)
}
