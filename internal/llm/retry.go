package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/ternarybob/arbor"

	"github.com/trogers1052/ticker-research-service/internal/analysis"
)

const (
	defaultInitialInterval = 2 * time.Second
	defaultMaxInterval     = 60 * time.Second
	defaultMaxRetries      = 4
)

// IsRetryable reports whether the API rejected the call for load reasons
// (rate limiting, overload or a transient server error)
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusServiceUnavailable,
			529: // overloaded
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "overloaded")
}

// Retrying retries a Model with exponential backoff while IsRetryable holds
type Retrying struct {
	next       analysis.Model
	logger     arbor.ILogger
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// RetryOption configures Retrying
type RetryOption func(*Retrying)

// WithMaxRetries sets how many retries follow the first attempt
func WithMaxRetries(n uint64) RetryOption {
	return func(r *Retrying) {
		r.maxRetries = n
	}
}

// WithBackOff sets the backoff policy factory
func WithBackOff(f func() backoff.BackOff) RetryOption {
	return func(r *Retrying) {
		r.newBackOff = f
	}
}

// NewRetrying wraps next with the default policy: 2s initial delay, 60s cap, 4 retries
func NewRetrying(next analysis.Model, logger arbor.ILogger, opts ...RetryOption) *Retrying {
	r := &Retrying{
		next:       next,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = defaultInitialInterval
			b.MaxInterval = defaultMaxInterval
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete calls the wrapped model, retrying retryable failures
func (r *Retrying) Complete(ctx context.Context, prompt string) (*analysis.Completion, error) {
	var (
		completion *analysis.Completion
		attempt    int
	)

	op := func() error {
		attempt++
		c, err := r.next.Complete(ctx, prompt)
		if err == nil {
			completion = c
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		r.logger.Warn().Int("attempt", attempt).Err(err).Msg("Retrying Claude API call")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return completion, nil
}
