package workflow

import (
	"strings"

	"github.com/JaimeStill/intake/internal/email"
	"github.com/JaimeStill/intake/internal/extract"
)

// BodyText joins message bodies in thread order separated by blank lines.
// A single-message thread yields its body verbatim.
func BodyText(thread *email.Thread) string {
	bodies := make([]string, len(thread.Messages))
	for i, m := range thread.Messages {
		bodies[i] = m.Body
	}
	return strings.Join(bodies, "\n\n")
}

// AttachmentMarker introduces attachment text within a payload.
func AttachmentMarker(name string) string {
	return "--- attachment: " + name + " ---"
}

// Compose merges the thread body and readable attachment text into one
// payload. It is deterministic: the body comes first, then attachments in
// thread order. Without readable attachments the text is the body verbatim.
func Compose(thread *email.Thread, content *extract.Content) Payload {
	body := BodyText(thread)

	p := Payload{
		Fragments: []Fragment{{Source: SourceBody, Text: body}},
		Text:      body,
	}

	var sb strings.Builder
	sb.WriteString(body)

	for _, r := range content.Readable() {
		p.Fragments = append(p.Fragments, Fragment{
			Source: SourceAttachment,
			Name:   r.Filename,
			Text:   r.Text,
		})

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(AttachmentMarker(r.Filename))
		sb.WriteString("\n")
		sb.WriteString(r.Text)
		p.HasAttachmentText = true
	}

	if p.HasAttachmentText {
		p.Text = sb.String()
	}
	return p
}
