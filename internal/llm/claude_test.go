package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/ticker-research-service/internal/analysis"
	"github.com/trogers1052/ticker-research-service/internal/config"
	"github.com/trogers1052/ticker-research-service/internal/logging"
)

const messageResponse = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-opus-20240229",
	"content": [
		{"type": "text", "text": "Here is the analysis for ABCD: "},
		{"type": "text", "text": "Mining company."}
	],
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 120, "output_tokens": 12}
}`

const overloadedResponse = `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`

type messagesServer struct {
	server   *httptest.Server
	requests atomic.Int32
	lastBody atomic.Value
}

// newMessagesServer fakes POST /v1/messages, answering with the given status/body pairs in turn
func newMessagesServer(t *testing.T, replies ...func(w http.ResponseWriter)) *messagesServer {
	t.Helper()
	ms := &messagesServer{}
	ms.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		n := int(ms.requests.Add(1))

		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		ms.lastBody.Store(body)

		reply := replies[len(replies)-1]
		if n <= len(replies) {
			reply = replies[n-1]
		}
		reply(w)
	}))
	t.Cleanup(ms.server.Close)
	return ms
}

func reply(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func testConfig(baseURL string) config.AnthropicConfig {
	return config.AnthropicConfig{
		APIKey:    "test-key",
		Model:     DefaultModel,
		MaxTokens: 4000,
		Timeout:   5 * time.Second,
		BaseURL:   baseURL + "/",
	}
}

func TestClaudeComplete(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewSilent()

	t.Run("returns every text block", func(t *testing.T) {
		ms := newMessagesServer(t, reply(http.StatusOK, messageResponse))
		claude := NewClaude(testConfig(ms.server.URL), logger)

		completion, err := claude.Complete(ctx, "Analyze ABCD")
		require.NoError(t, err)

		require.Len(t, completion.Blocks, 2)
		assert.Equal(t, "Mining company.", completion.Blocks[1].Text)

		body := ms.lastBody.Load().(map[string]interface{})
		assert.Equal(t, DefaultModel, body["model"])
		assert.Equal(t, float64(4000), body["max_tokens"])
		messages := body["messages"].([]interface{})
		require.Len(t, messages, 1)
		assert.Equal(t, "user", messages[0].(map[string]interface{})["role"])
	})

	t.Run("api errors are surfaced without retry", func(t *testing.T) {
		ms := newMessagesServer(t, reply(529, overloadedResponse))
		claude := NewClaude(testConfig(ms.server.URL), logger)

		_, err := claude.Complete(ctx, "Analyze ABCD")
		require.Error(t, err)
		assert.True(t, IsRetryable(err))
		assert.Equal(t, int32(1), ms.requests.Load())
	})

	t.Run("bad request is not retryable", func(t *testing.T) {
		ms := newMessagesServer(t, reply(http.StatusBadRequest,
			`{"type": "error", "error": {"type": "invalid_request_error", "message": "prompt is too long"}}`))
		claude := NewClaude(testConfig(ms.server.URL), logger)

		_, err := claude.Complete(ctx, "Analyze ABCD")
		require.Error(t, err)
		assert.False(t, IsRetryable(err))
	})
}

func TestRetryingWithClaude(t *testing.T) {
	ms := newMessagesServer(t,
		reply(http.StatusTooManyRequests, `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`),
		reply(529, overloadedResponse),
		reply(http.StatusOK, messageResponse),
	)
	model := NewRetrying(NewClaude(testConfig(ms.server.URL), logging.NewSilent()), logging.NewSilent(),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)

	completion, err := model.Complete(context.Background(), "Analyze ABCD")
	require.NoError(t, err)
	assert.Len(t, completion.Blocks, 2)
	assert.Equal(t, int32(3), ms.requests.Load())
}

type scriptedModel struct {
	errs  []error
	calls int
}

func (m *scriptedModel) Complete(_ context.Context, _ string) (*analysis.Completion, error) {
	m.calls++
	if m.calls <= len(m.errs) {
		return nil, m.errs[m.calls-1]
	}
	return &analysis.Completion{Text: "ok"}, nil
}

func TestRetrying(t *testing.T) {
	zero := WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })
	logger := logging.NewSilent()
	overloaded := errors.New("overloaded_error: Overloaded")

	t.Run("permanent errors are not retried", func(t *testing.T) {
		permanent := errors.New("invalid api key")
		next := &scriptedModel{errs: []error{permanent}}

		_, err := NewRetrying(next, logger, zero).Complete(context.Background(), "p")
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		next := &scriptedModel{errs: []error{overloaded, overloaded, overloaded, overloaded}}

		_, err := NewRetrying(next, logger, zero, WithMaxRetries(2)).Complete(context.Background(), "p")
		assert.ErrorIs(t, err, overloaded)
		assert.Equal(t, 3, next.calls)
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		next := &scriptedModel{errs: []error{overloaded}}

		completion, err := NewRetrying(next, logger, zero).Complete(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "ok", completion.Text)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		next := &scriptedModel{errs: []error{overloaded, overloaded}}

		_, err := NewRetrying(next, logger, zero).Complete(ctx, "p")
		assert.Error(t, err)
		assert.LessOrEqual(t, next.calls, 1)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.True(t, IsRetryable(errors.New("rate_limit_error: slow down")))
}
