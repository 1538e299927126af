package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/ternarybob/arbor"

	"github.com/trogers1052/ticker-research-service/internal/models"
)

// TickerRefresher refetches a ticker and replaces its cache entry
type TickerRefresher interface {
	RefreshTicker(ctx context.Context, ticker string) (*models.TickerRecord, error)
}

// Consumer handles refresh requests published by other services.
// A refresh failure is logged and the message is committed anyway.
type Consumer struct {
	reader    *kafka.Reader
	refresher TickerRefresher
	logger    arbor.ILogger
}

// NewConsumer creates a new Kafka consumer for ticker refresh requests
func NewConsumer(brokers []string, topic, groupID string, refresher TickerRefresher, logger arbor.ILogger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:    reader,
		refresher: refresher,
		logger:    logger,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.logger.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error().
					Str("key", string(msg.Key)).
					Int64("offset", msg.Offset).
					Err(err).
					Msg("Error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.TickerEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal ticker event: %w", err)
	}

	if event.EventType != models.EventTickerRefreshRequested {
		c.logger.Debug().Str("event_type", event.EventType).Msg("Ignoring event")
		return nil
	}

	if event.Ticker == "" {
		return fmt.Errorf("refresh request without ticker")
	}

	record, err := c.refresher.RefreshTicker(ctx, event.Ticker)
	if err != nil {
		return fmt.Errorf("failed to refresh %s: %w", event.Ticker, err)
	}

	c.logger.Info().
		Str("ticker", record.Ticker).
		Int("news", len(record.News)).
		Msg("Refreshed ticker on request")

	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
