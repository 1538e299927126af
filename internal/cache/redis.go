package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trogers1052/ticker-research-service/internal/models"
)

const redisKeyPrefix = "ticker:"

// Redis is a Store shared between service instances
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache. A zero ttl stores entries without expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the record cached for ticker
func (r *Redis) Get(ctx context.Context, ticker string) (*models.TickerRecord, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+Key(ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached ticker: %w", err)
	}

	var record models.TickerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode cached ticker: %w", err)
	}
	return &record, nil
}

// Set overwrites the record cached for ticker
func (r *Redis) Set(ctx context.Context, ticker string, record *models.TickerRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode ticker record: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+Key(ticker), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache ticker: %w", err)
	}
	return nil
}

// Ping checks the connection
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
