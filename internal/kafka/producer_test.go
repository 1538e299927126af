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

	"github.com/trogers1052/ticker-research-service/internal/analysis"
	"github.com/trogers1052/ticker-research-service/internal/models"
)

// recordingWriter captures written messages
type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w *recordingWriter) *Producer {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Producer{writer: w, topic: "ticker-events", now: func() time.Time { return now }}
}

func decodeEvent(t *testing.T, msg kafka.Message) models.TickerEvent {
	t.Helper()
	var event models.TickerEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	return event
}

func TestProducer(t *testing.T) {
	ctx := context.Background()

	t.Run("watchlist added", func(t *testing.T) {
		w := &recordingWriter{}
		p := newTestProducer(w)

		require.NoError(t, p.PublishWatchlistAdded(ctx, &models.WatchlistEntry{Ticker: "ABCD", UserID: 42}))
		require.Len(t, w.messages, 1)
		assert.Equal(t, "ABCD", string(w.messages[0].Key))

		event := decodeEvent(t, w.messages[0])
		assert.Equal(t, models.EventWatchlistEntryAdded, event.EventType)
		assert.Equal(t, int64(42), event.UserID)
		assert.Equal(t, 2024, event.Timestamp.Year())
	})

	t.Run("analysis completed", func(t *testing.T) {
		w := &recordingWriter{}
		p := newTestProducer(w)

		require.NoError(t, p.PublishAnalysisCompleted(ctx, &models.AnalysisResult{
			RunID:  "run-1",
			Ticker: "ABCD",
			Chunks: []string{"a", "b", "c"},
		}))

		event := decodeEvent(t, w.messages[0])
		assert.Equal(t, models.EventAnalysisCompleted, event.EventType)
		assert.Equal(t, "run-1", event.RunID)
		assert.Equal(t, "DONE", event.State)
		assert.Equal(t, 3, event.Chunks)
	})

	t.Run("analysis failed", func(t *testing.T) {
		w := &recordingWriter{}
		p := newTestProducer(w)

		failure := &analysis.Error{State: analysis.StateDownloading, Kind: analysis.ErrDownload, Err: errors.New("status 404")}
		require.NoError(t, p.PublishAnalysisFailed(ctx, "ABCD", failure))

		event := decodeEvent(t, w.messages[0])
		assert.Equal(t, models.EventAnalysisFailed, event.EventType)
		assert.Equal(t, "DOWNLOADING", event.State)
		assert.Contains(t, event.Detail, "status 404")
	})

	t.Run("write errors are wrapped", func(t *testing.T) {
		w := &recordingWriter{err: errors.New("no brokers")}
		p := newTestProducer(w)

		err := p.PublishWatchlistAdded(ctx, &models.WatchlistEntry{Ticker: "ABCD"})
		assert.ErrorContains(t, err, "no brokers")
	})

	t.Run("close closes the writer", func(t *testing.T) {
		w := &recordingWriter{}
		require.NoError(t, newTestProducer(w).Close())
		assert.True(t, w.closed)
	})
}
