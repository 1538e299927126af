// Package llm adapts the Anthropic Messages API to the analysis pipeline.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/trogers1052/ticker-research-service/internal/analysis"
	"github.com/trogers1052/ticker-research-service/internal/config"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = "claude-3-opus-20240229"

	// DefaultMaxTokens bounds the completion length
	DefaultMaxTokens = 4000

	// DefaultTimeout bounds a single Messages call
	DefaultTimeout = 5 * time.Minute
)

// Claude answers analysis prompts with a single user message
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewClaude creates a Claude model from configuration. Extra request options are
// appended after the configured ones.
func NewClaude(cfg config.AnthropicConfig, logger arbor.ILogger, opts ...option.RequestOption) *Claude {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are handled by Retrying
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	c := &Claude{
		client:    anthropic.NewClient(reqOpts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	logger.Debug().
		Str("model", c.model).
		Int("max_tokens", c.maxTokens).
		Msg("Claude model initialized")

	return c
}

// Complete sends prompt as one user message and returns the text blocks of the reply
func (c *Claude) Complete(ctx context.Context, prompt string) (*analysis.Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request slot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	completion := &analysis.Completion{}
	for _, block := range resp.Content {
		if block.Type == "text" {
			completion.Blocks = append(completion.Blocks, analysis.ContentBlock{Type: "text", Text: block.Text})
		}
	}

	c.logger.Info().
		Str("model", c.model).
		Int("blocks", len(completion.Blocks)).
		Int("output_tokens", int(resp.Usage.OutputTokens)).
		Str("elapsed", time.Since(start).String()).
		Msg("Claude completion received")

	return completion, nil
}
