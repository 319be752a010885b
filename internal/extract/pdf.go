package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var pageFilePattern = regexp.MustCompile(`(\d+)\.txt$`)

// PDFText extracts text by dumping each page's content stream with pdfcpu and
// decoding its text-showing operators.
type PDFText struct{}

// ExtractText returns the text of every page separated by blank lines.
func (PDFText) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrEmptyPDF
	}

	// pdfcpu can panic on malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	if _, err := api.PageCount(bytes.NewReader(data), nil); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp("", "intake-extract-*")
	if err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := api.ExtractContent(bytes.NewReader(data), dir, "attachment", nil, nil); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	pages, err := pageFiles(dir)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, path := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		stream, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read page content: %w", err)
		}
		if t := ParseContentStream(stream); t != "" {
			parts = append(parts, t)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

// pageFiles lists dumped content files ordered by page number.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read content directory: %w", err)
	}

	type page struct {
		n    int
		path string
	}

	var pages []page
	for _, e := range entries {
		m := pageFilePattern.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		pages = append(pages, page{n: n, path: filepath.Join(dir, e.Name())})
	}

	slices.SortFunc(pages, func(a, b page) int { return a.n - b.n })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}
