package classifier

import (
	"strings"
)

const instructions = `You are an intake assistant for a sales team. You read email threads, including any text extracted from PDF attachments, and decide which single category best describes the thread as a whole.

Classify by the intent of the most recent sender, using earlier messages as context. Treat attachment text as part of the thread. When a thread contains a purchase order, extract the order exactly as written; never guess quantities, names, or addresses that do not appear in the text.`

const responseFormat = `Respond with a JSON object matching this exact structure:

{
  "label": "<category name>",
  "confidence": 0.0,
  "rationale": "<explanation>",
  "order": {
    "items": [{"name": "<item>", "quantity": 1}],
    "customer_name": "<name>",
    "address": "<shipping address>",
    "email": "<customer email>"
  }
}

Field constraints:
- label: Exactly one of the category names listed below.
- confidence: Number between 0 and 1 reflecting how clearly the thread
  fits the chosen category.
- rationale: One or two sentences explaining the choice.
- order: Present only when label is sales_order. Omit any field whose
  value does not appear in the thread rather than inventing one.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Choose other when no category clearly applies`

// Prompt composes the classification prompt: instructions, the
// response format, the category guide, and the thread text.
func Prompt(categories []Category, text string, hasAttachmentText bool) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(responseFormat)

	sb.WriteString("\n\nValid categories:\n\n")
	for _, c := range categories {
		sb.WriteString("- ")
		sb.WriteString(c.Name)
		if c.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(c.Description)
		}
		sb.WriteString("\n")
	}

	if hasAttachmentText {
		sb.WriteString("\nThe thread includes text extracted from PDF attachments, introduced by \"--- attachment: <name> ---\" lines.\n")
	}

	sb.WriteString("\nEmail to classify:\n\n")
	sb.WriteString(text)

	return sb.String()
}
