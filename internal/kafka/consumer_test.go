package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/ticker-research-service/internal/logging"
	"github.com/trogers1052/ticker-research-service/internal/models"
)

// MockRefresher implements TickerRefresher for testing
type MockRefresher struct {
	err     error
	Tickers []string
}

func (m *MockRefresher) RefreshTicker(_ context.Context, ticker string) (*models.TickerRecord, error) {
	m.Tickers = append(m.Tickers, ticker)
	if m.err != nil {
		return nil, m.err
	}
	return &models.TickerRecord{Ticker: ticker, News: []models.NewsItem{}}, nil
}

func eventMessage(t *testing.T, event models.TickerEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Ticker), Value: data}
}

func TestProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh request refreshes the ticker", func(t *testing.T) {
		refresher := &MockRefresher{}
		consumer := &Consumer{refresher: refresher, logger: logging.NewSilent()}

		err := consumer.processMessage(ctx, eventMessage(t, models.TickerEvent{
			EventType: models.EventTickerRefreshRequested,
			Ticker:    "ABCD",
			Timestamp: time.Now(),
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"ABCD"}, refresher.Tickers)
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		refresher := &MockRefresher{}
		consumer := &Consumer{refresher: refresher, logger: logging.NewSilent()}

		for _, eventType := range []string{models.EventWatchlistEntryAdded, models.EventAnalysisCompleted, models.EventAnalysisFailed} {
			err := consumer.processMessage(ctx, eventMessage(t, models.TickerEvent{EventType: eventType, Ticker: "ABCD"}))
			assert.NoError(t, err)
		}
		assert.Empty(t, refresher.Tickers)
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		refresher := &MockRefresher{}
		consumer := &Consumer{refresher: refresher, logger: logging.NewSilent()}

		err := consumer.processMessage(ctx, kafka.Message{Value: []byte("{not json")})
		assert.Error(t, err)
		assert.Empty(t, refresher.Tickers)
	})

	t.Run("missing ticker is an error", func(t *testing.T) {
		refresher := &MockRefresher{}
		consumer := &Consumer{refresher: refresher, logger: logging.NewSilent()}

		err := consumer.processMessage(ctx, eventMessage(t, models.TickerEvent{EventType: models.EventTickerRefreshRequested}))
		assert.Error(t, err)
		assert.Empty(t, refresher.Tickers)
	})

	t.Run("refresh failure is returned", func(t *testing.T) {
		refresher := &MockRefresher{err: errors.New("upstream down")}
		consumer := &Consumer{refresher: refresher, logger: logging.NewSilent()}

		err := consumer.processMessage(ctx, eventMessage(t, models.TickerEvent{
			EventType: models.EventTickerRefreshRequested,
			Ticker:    "WXYZ",
		}))
		assert.ErrorContains(t, err, "WXYZ")
		assert.Equal(t, []string{"WXYZ"}, refresher.Tickers)
	})
}
