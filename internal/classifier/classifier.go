// Package classifier labels composed email text with a configured category
// through a go-agents chat model and extracts order fields for sales orders.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/intake/internal/workflow"
	"github.com/JaimeStill/intake/pkg/formatting"
)

// ErrEmptyResponse indicates the model returned no content.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ChatFunc sends a prompt to a chat model and returns the response text.
type ChatFunc func(ctx context.Context, prompt string) (string, error)

// AgentChat returns a ChatFunc backed by a go-agents agent. A new agent is
// created per call.
func AgentChat(cfg gaconfig.AgentConfig) ChatFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		a, err := agent.New(&cfg)
		if err != nil {
			return "", fmt.Errorf("create agent: %w", err)
		}

		resp, err := a.Chat(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("chat call: %w", err)
		}
		return resp.Content(), nil
	}
}

type response struct {
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Rationale  string         `json:"rationale"`
	Order      map[string]any `json:"order"`
}

// Classifier implements workflow.Classifier.
type Classifier struct {
	chat       ChatFunc
	categories []Category
	logger     *slog.Logger
}

// New creates a Classifier over the prepared category set.
func New(chat ChatFunc, categories []Category, logger *slog.Logger) *Classifier {
	return &Classifier{
		chat:       chat,
		categories: Prepare(categories),
		logger:     logger.With("system", "classifier"),
	}
}

// Categories returns the effective category set.
func (c *Classifier) Categories() []Category {
	return slices.Clone(c.categories)
}

// Labels returns the effective label set.
func (c *Classifier) Labels() []string {
	return Labels(c.categories)
}

// Classify labels text. Blank text is other without a model call. Labels are
// normalized; mapping unknown labels and retrying errors are left to the
// caller.
func (c *Classifier) Classify(ctx context.Context, text string, hasAttachmentText bool) (workflow.Classification, error) {
	if strings.TrimSpace(text) == "" {
		c.logger.InfoContext(ctx, "empty payload classified without model call")
		return workflow.Classification{
			Label:      workflow.LabelOther,
			Confidence: 1,
			Rationale:  "empty message",
		}, nil
	}

	content, err := c.chat(ctx, Prompt(c.categories, text, hasAttachmentText))
	if err != nil {
		return workflow.Classification{}, err
	}
	if strings.TrimSpace(content) == "" {
		return workflow.Classification{}, ErrEmptyResponse
	}

	parsed, err := formatting.Parse[response](content)
	if err != nil {
		return workflow.Classification{}, fmt.Errorf("parse response: %w", err)
	}

	result := workflow.Classification{
		Label:      Normalize(parsed.Label),
		Confidence: min(max(parsed.Confidence, 0), 1),
		Rationale:  parsed.Rationale,
	}
	if result.Label == workflow.LabelSalesOrder {
		result.Fields = parsed.Order
	}

	c.logger.InfoContext(ctx, "classification complete",
		"label", result.Label,
		"confidence", result.Confidence,
		"has_attachment_text", hasAttachmentText,
	)
	return result, nil
}
