package config

import (
	"fmt"
	"time"

	"github.com/JaimeStill/intake/internal/classifier"
	"github.com/JaimeStill/intake/pkg/envx"
	"github.com/JaimeStill/intake/pkg/retry"
)

// WorkflowConfig bounds each external call the intake workflow makes and
// holds the category set offered to the classifier.
type WorkflowConfig struct {
	ClassifyAttempts   int                   `toml:"classify_attempts"`
	BackoffBase        string                `toml:"backoff_base"`
	BackoffCap         string                `toml:"backoff_cap"`
	JitterPct          int                   `toml:"jitter_pct"`
	ClassifyTimeout    string                `toml:"classify_timeout"`
	StoreAttempts      int                   `toml:"store_attempts"`
	StoreBackoff       string                `toml:"store_backoff"`
	StoreTimeout       string                `toml:"store_timeout"`
	VerifyTimeout      string                `toml:"verify_timeout"`
	ExtractTimeout     string                `toml:"extract_timeout"`
	ExtractConcurrency int                   `toml:"extract_concurrency"`
	VisionFallback     bool                  `toml:"vision_fallback"`
	MaxVisionPages     int                   `toml:"max_vision_pages"`
	Categories         []classifier.Category `toml:"categories"`
}

// RetryPolicy returns the classification retry policy.
func (c *WorkflowConfig) RetryPolicy() retry.Policy {
	return retry.Policy{
		Attempts:  c.ClassifyAttempts,
		Base:      duration(c.BackoffBase),
		Cap:       duration(c.BackoffCap),
		JitterPct: c.JitterPct,
	}
}

// ClassifyTimeoutDuration returns ClassifyTimeout as a time.Duration.
func (c *WorkflowConfig) ClassifyTimeoutDuration() time.Duration { return duration(c.ClassifyTimeout) }

// StoreBackoffDuration returns StoreBackoff as a time.Duration.
func (c *WorkflowConfig) StoreBackoffDuration() time.Duration { return duration(c.StoreBackoff) }

// StoreTimeoutDuration returns StoreTimeout as a time.Duration.
func (c *WorkflowConfig) StoreTimeoutDuration() time.Duration { return duration(c.StoreTimeout) }

// VerifyTimeoutDuration returns VerifyTimeout as a time.Duration.
func (c *WorkflowConfig) VerifyTimeoutDuration() time.Duration { return duration(c.VerifyTimeout) }

// ExtractTimeoutDuration returns ExtractTimeout as a time.Duration.
func (c *WorkflowConfig) ExtractTimeoutDuration() time.Duration { return duration(c.ExtractTimeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WorkflowConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. A non-empty overlay
// category list replaces the base list.
func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	if overlay.ClassifyAttempts != 0 {
		c.ClassifyAttempts = overlay.ClassifyAttempts
	}
	if overlay.BackoffBase != "" {
		c.BackoffBase = overlay.BackoffBase
	}
	if overlay.BackoffCap != "" {
		c.BackoffCap = overlay.BackoffCap
	}
	if overlay.JitterPct != 0 {
		c.JitterPct = overlay.JitterPct
	}
	if overlay.ClassifyTimeout != "" {
		c.ClassifyTimeout = overlay.ClassifyTimeout
	}
	if overlay.StoreAttempts != 0 {
		c.StoreAttempts = overlay.StoreAttempts
	}
	if overlay.StoreBackoff != "" {
		c.StoreBackoff = overlay.StoreBackoff
	}
	if overlay.StoreTimeout != "" {
		c.StoreTimeout = overlay.StoreTimeout
	}
	if overlay.VerifyTimeout != "" {
		c.VerifyTimeout = overlay.VerifyTimeout
	}
	if overlay.ExtractTimeout != "" {
		c.ExtractTimeout = overlay.ExtractTimeout
	}
	if overlay.ExtractConcurrency != 0 {
		c.ExtractConcurrency = overlay.ExtractConcurrency
	}
	if overlay.VisionFallback {
		c.VisionFallback = true
	}
	if overlay.MaxVisionPages != 0 {
		c.MaxVisionPages = overlay.MaxVisionPages
	}
	if len(overlay.Categories) > 0 {
		c.Categories = overlay.Categories
	}
}

func (c *WorkflowConfig) loadDefaults() {
	if c.ClassifyAttempts == 0 {
		c.ClassifyAttempts = 3
	}
	if c.BackoffBase == "" {
		c.BackoffBase = "500ms"
	}
	if c.BackoffCap == "" {
		c.BackoffCap = "8s"
	}
	if c.JitterPct == 0 {
		c.JitterPct = 25
	}
	if c.ClassifyTimeout == "" {
		c.ClassifyTimeout = "60s"
	}
	if c.StoreAttempts == 0 {
		c.StoreAttempts = 3
	}
	if c.StoreBackoff == "" {
		c.StoreBackoff = "1s"
	}
	if c.StoreTimeout == "" {
		c.StoreTimeout = "30s"
	}
	if c.VerifyTimeout == "" {
		c.VerifyTimeout = "30s"
	}
	if c.ExtractTimeout == "" {
		c.ExtractTimeout = "2m"
	}
	if c.MaxVisionPages == 0 {
		c.MaxVisionPages = 5
	}
	if len(c.Categories) == 0 {
		c.Categories = classifier.DefaultCategories()
	}
}

func (c *WorkflowConfig) loadEnv() {
	envx.Int("INTAKE_WORKFLOW_CLASSIFY_ATTEMPTS", &c.ClassifyAttempts)
	envx.String("INTAKE_WORKFLOW_BACKOFF_BASE", &c.BackoffBase)
	envx.String("INTAKE_WORKFLOW_BACKOFF_CAP", &c.BackoffCap)
	envx.Int("INTAKE_WORKFLOW_JITTER_PCT", &c.JitterPct)
	envx.String("INTAKE_WORKFLOW_CLASSIFY_TIMEOUT", &c.ClassifyTimeout)
	envx.Int("INTAKE_WORKFLOW_STORE_ATTEMPTS", &c.StoreAttempts)
	envx.String("INTAKE_WORKFLOW_STORE_BACKOFF", &c.StoreBackoff)
	envx.String("INTAKE_WORKFLOW_STORE_TIMEOUT", &c.StoreTimeout)
	envx.String("INTAKE_WORKFLOW_VERIFY_TIMEOUT", &c.VerifyTimeout)
	envx.String("INTAKE_WORKFLOW_EXTRACT_TIMEOUT", &c.ExtractTimeout)
	envx.Int("INTAKE_WORKFLOW_EXTRACT_CONCURRENCY", &c.ExtractConcurrency)
	envx.Bool("INTAKE_WORKFLOW_VISION_FALLBACK", &c.VisionFallback)
	envx.Int("INTAKE_WORKFLOW_MAX_VISION_PAGES", &c.MaxVisionPages)
}

func (c *WorkflowConfig) validate() error {
	if c.ClassifyAttempts < 1 {
		return fmt.Errorf("classify_attempts must be at least 1")
	}
	if c.StoreAttempts < 1 {
		return fmt.Errorf("store_attempts must be at least 1")
	}
	if c.JitterPct < 0 || c.JitterPct > 100 {
		return fmt.Errorf("jitter_pct must be between 0 and 100")
	}

	durations := map[string]string{
		"backoff_base":     c.BackoffBase,
		"backoff_cap":      c.BackoffCap,
		"classify_timeout": c.ClassifyTimeout,
		"store_backoff":    c.StoreBackoff,
		"store_timeout":    c.StoreTimeout,
		"verify_timeout":   c.VerifyTimeout,
		"extract_timeout":  c.ExtractTimeout,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if duration(c.BackoffCap) < duration(c.BackoffBase) {
		return fmt.Errorf("backoff_cap must not be less than backoff_base")
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
