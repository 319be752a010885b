package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/encoding"
	"github.com/JaimeStill/document-context/pkg/image"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/intake/pkg/formatting"
)

const transcribePrompt = `You are transcribing a scanned business document page.

Respond with a JSON object matching this exact structure:

{
  "text": "<all legible text on the page>"
}

Constraints:
- Transcribe text exactly as it appears, preserving line breaks
- Include tables row by row, cells separated by " | "
- Do not summarize, translate, or add commentary
- Use an empty string when the page has no legible text`

type transcription struct {
	Text string `json:"text"`
}

// Vision renders PDF pages to PNG and transcribes them with a vision model.
// It serves as the fallback for scanned PDFs with no text layer.
type Vision struct {
	agent    gaconfig.AgentConfig
	maxPages int
	logger   *slog.Logger
}

// NewVision creates a vision transcriber limited to the first maxPages pages.
func NewVision(agentCfg gaconfig.AgentConfig, maxPages int, logger *slog.Logger) *Vision {
	return &Vision{
		agent:    agentCfg,
		maxPages: max(maxPages, 1),
		logger:   logger.With("system", "vision"),
	}
}

// ExtractText transcribes each rendered page concurrently and joins the
// page texts in page order.
func (v *Vision) ExtractText(ctx context.Context, data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "intake-vision-*")
	if err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		return "", fmt.Errorf("write temp pdf: %w", err)
	}

	pdfDoc, err := document.OpenPDF(pdfPath)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", ErrUnreadable, err)
	}
	defer pdfDoc.Close()

	pages, err := pdfDoc.ExtractAllPages()
	if err != nil {
		return "", fmt.Errorf("%w: extract pages: %w", ErrUnreadable, err)
	}
	if len(pages) > v.maxPages {
		v.logger.InfoContext(ctx, "limiting vision transcription", "pages", len(pages), "limit", v.maxPages)
		pages = pages[:v.maxPages]
	}

	renderer, err := image.NewImageMagickRenderer(config.DefaultImageConfig())
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}

	texts := make([]string, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(runtime.NumCPU(), len(pages)), 1))

	for i, page := range pages {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			img, err := page.ToImage(renderer, nil)
			if err != nil {
				return fmt.Errorf("render page %d: %w", i+1, err)
			}

			dataURI, err := encoding.EncodeImageDataURI(img, document.PNG)
			if err != nil {
				return fmt.Errorf("encode page %d: %w", i+1, err)
			}

			a, err := agent.New(&v.agent)
			if err != nil {
				return fmt.Errorf("page %d: create agent: %w", i+1, err)
			}

			resp, err := a.Vision(gctx, transcribePrompt, []string{dataURI})
			if err != nil {
				return fmt.Errorf("page %d: vision call: %w", i+1, err)
			}

			parsed, err := formatting.Parse[transcription](resp.Content())
			if err != nil {
				return fmt.Errorf("page %d: parse response: %w", i+1, err)
			}

			texts[i] = strings.TrimSpace(parsed.Text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	var parts []string
	for _, t := range texts {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
