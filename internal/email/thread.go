// Package email defines the email-thread model and the structural gate that
// decides whether a raw payload is an email thread at all.
package email

import (
	"bytes"
	"path/filepath"
	"strings"
)

// MediaTypePDF is the media type recognized for PDF attachments.
const MediaTypePDF = "application/pdf"

// Message is one entry of a thread. Body may be empty but is never absent.
type Message struct {
	From      string   `json:"from"`
	To        []string `json:"to,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Body      string   `json:"body"`
}

// Attachment is a binary payload with its declared media type. Data is nil
// when the payload could not be decoded.
type Attachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"data"`
}

// IsPDF reports whether the attachment is a PDF by media type, file
// extension, or magic bytes.
func (a Attachment) IsPDF() bool {
	mt, _, _ := strings.Cut(strings.ToLower(a.MediaType), ";")
	if strings.TrimSpace(mt) == MediaTypePDF {
		return true
	}
	if strings.EqualFold(filepath.Ext(a.Filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(a.Data, []byte("%PDF-"))
}

// Name returns the filename or a positional fallback.
func (a Attachment) Name() string {
	if a.Filename != "" {
		return a.Filename
	}
	return "attachment.pdf"
}

// Thread is an ordered, non-empty sequence of messages plus attachments.
// It is created once by Parse and not modified afterwards.
type Thread struct {
	Subject     string       `json:"subject,omitempty"`
	Messages    []Message    `json:"messages"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// PDFs returns the PDF attachments in their original order.
func (t *Thread) PDFs() []Attachment {
	var pdfs []Attachment
	for _, a := range t.Attachments {
		if a.IsPDF() {
			pdfs = append(pdfs, a)
		}
	}
	return pdfs
}
