package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/ticker-research-service/internal/analysis"
	"github.com/trogers1052/ticker-research-service/internal/models"
)

// messageWriter is the subset of kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing ticker events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishWatchlistAdded publishes a watchlist entry added event
func (p *Producer) PublishWatchlistAdded(ctx context.Context, entry *models.WatchlistEntry) error {
	event := models.TickerEvent{
		EventType: models.EventWatchlistEntryAdded,
		Ticker:    entry.Ticker,
		UserID:    entry.UserID,
		Timestamp: p.now(),
	}
	return p.publish(ctx, entry.Ticker, event)
}

// PublishAnalysisCompleted publishes an analysis completed event
func (p *Producer) PublishAnalysisCompleted(ctx context.Context, result *models.AnalysisResult) error {
	event := models.TickerEvent{
		EventType: models.EventAnalysisCompleted,
		Ticker:    result.Ticker,
		RunID:     result.RunID,
		State:     string(analysis.StateDone),
		Chunks:    len(result.Chunks),
		Timestamp: p.now(),
	}
	return p.publish(ctx, result.Ticker, event)
}

// PublishAnalysisFailed publishes an analysis failed event
func (p *Producer) PublishAnalysisFailed(ctx context.Context, ticker string, failure *analysis.Error) error {
	event := models.TickerEvent{
		EventType: models.EventAnalysisFailed,
		Ticker:    ticker,
		State:     string(failure.State),
		Detail:    failure.Error(),
		Timestamp: p.now(),
	}
	return p.publish(ctx, ticker, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.TickerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
