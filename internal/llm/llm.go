package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/examgen/internal/config"
	"github.com/pavelanni/examgen/internal/llm/prompts"
	"github.com/pavelanni/examgen/internal/model"
)

// Completer sends one prompt to a text model and returns its raw output.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client produces exam breakdowns with a configured provider.
type Client struct {
	completer Completer
	provider  string
	model     string
}

// New creates a client for cfg.Provider. A missing API key is not an error
// here; GenerateBreakdown reports it on every call instead.
func New(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	c := &Client{provider: cfg.Provider, model: cfg.Model}
	if cfg.APIKey == "" {
		return c, nil
	}

	var err error
	switch cfg.Provider {
	case config.ProviderGemini:
		c.completer, err = newGemini(ctx, cfg)
	case config.ProviderOpenAI:
		c.completer = newOpenAI(cfg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithCompleter wraps an existing completer.
func NewWithCompleter(comp Completer, provider, modelName string) *Client {
	return &Client{completer: comp, provider: provider, model: modelName}
}

// Configured reports whether a provider credential is available.
func (c *Client) Configured() bool {
	return c.completer != nil
}

// Provider returns the provider name.
func (c *Client) Provider() string { return c.provider }

// Model returns the model name.
func (c *Client) Model() string { return c.model }

// GenerateBreakdown asks the model for the subjects and question types of
// examName. The model is called exactly once.
func (c *Client) GenerateBreakdown(ctx context.Context, examName string) (*model.ExamData, error) {
	if c.completer == nil {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingCredential, c.provider)
	}

	prompt, err := prompts.BuildBreakdown(examName)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	start := time.Now()
	raw, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	slog.DebugContext(ctx, "LLM response",
		"provider", c.provider,
		"model", c.model,
		"elapsed", time.Since(start),
		"raw", raw,
	)

	data, err := ParseBreakdown(raw)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "generated exam breakdown",
		"exam_name", data.ExamName,
		"subjects", len(data.Subjects),
		"elapsed", time.Since(start),
	)
	return data, nil
}

// Generate satisfies form.Generator.
func (c *Client) Generate(ctx context.Context, examName string) (*model.ExamData, error) {
	return c.GenerateBreakdown(ctx, examName)
}
