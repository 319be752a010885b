package gmail

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	gm "google.golang.org/api/gmail/v1"

	"github.com/JaimeStill/intake/internal/email"
)

// AttachmentFetcher loads attachment bytes that were not inlined in the
// message payload.
type AttachmentFetcher func(messageID, attachmentID string) ([]byte, error)

// Convert maps a Gmail thread to an email thread. Messages are ordered by
// internal date; only PDF attachments are kept. An attachment that cannot be
// fetched is kept with nil data so extraction reports it as unreadable.
func Convert(t *gm.Thread, fetch AttachmentFetcher) (*email.Thread, error) {
	if t == nil || len(t.Messages) == 0 {
		return nil, fmt.Errorf("thread has no messages")
	}

	msgs := make([]*gm.Message, len(t.Messages))
	copy(msgs, t.Messages)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].InternalDate < msgs[j].InternalDate
	})

	thread := &email.Thread{}

	for _, m := range msgs {
		if m.Payload == nil {
			continue
		}

		headers := headerMap(m.Payload.Headers)
		if thread.Subject == "" {
			thread.Subject = headers["subject"]
		}

		thread.Messages = append(thread.Messages, email.Message{
			From:      headers["from"],
			To:        splitAddresses(headers["to"]),
			Timestamp: time.UnixMilli(m.InternalDate).UTC().Format(time.RFC3339),
			Body:      plainText(m.Payload),
		})

		for _, part := range pdfParts(m.Payload) {
			att := email.Attachment{
				Filename:  part.Filename,
				MediaType: email.MediaTypePDF,
			}
			if part.Body != nil {
				switch {
				case part.Body.Data != "":
					att.Data, _ = decode(part.Body.Data)
				case part.Body.AttachmentId != "" && fetch != nil:
					att.Data, _ = fetch(m.Id, part.Body.AttachmentId)
				}
			}
			thread.Attachments = append(thread.Attachments, att)
		}
	}

	if len(thread.Messages) == 0 {
		return nil, fmt.Errorf("thread has no readable messages")
	}
	return thread, nil
}

func headerMap(headers []*gm.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[strings.ToLower(h.Name)] = h.Value
	}
	return m
}

func splitAddresses(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for a := range strings.SplitSeq(v, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// plainText returns the first text/plain body found depth-first.
func plainText(part *gm.MessagePart) string {
	if part.MimeType == "text/plain" && part.Filename == "" && part.Body != nil && part.Body.Data != "" {
		if data, err := decode(part.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, child := range part.Parts {
		mt := strings.ToLower(child.MimeType)
		if strings.HasPrefix(mt, "text/") || strings.HasPrefix(mt, "multipart/") {
			if body := plainText(child); body != "" {
				return body
			}
		}
	}
	return ""
}

func pdfParts(part *gm.MessagePart) []*gm.MessagePart {
	var out []*gm.MessagePart
	if part.Filename != "" {
		a := email.Attachment{Filename: part.Filename, MediaType: part.MimeType}
		if a.IsPDF() {
			out = append(out, part)
		}
	}
	for _, child := range part.Parts {
		out = append(out, pdfParts(child)...)
	}
	return out
}

// decode accepts Gmail's URL-safe base64 with or without padding.
func decode(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
