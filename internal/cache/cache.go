// Package cache holds the process-wide TickerRecord cache.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/trogers1052/ticker-research-service/internal/models"
)

// DefaultMaxAge is the staleness threshold used when none is configured
const DefaultMaxAge = 30 * time.Minute

// ErrNotFound is returned by Get on a cache miss
var ErrNotFound = errors.New("ticker not cached")

// Store maps ticker → latest TickerRecord. Keys are case-insensitive.
type Store interface {
	Get(ctx context.Context, ticker string) (*models.TickerRecord, error)
	Set(ctx context.Context, ticker string, record *models.TickerRecord) error
}

// Key normalizes a ticker into a cache key
func Key(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// IsStale reports whether the record is older than maxAge at now.
// The check is advisory; callers decide whether to refetch.
func IsStale(record *models.TickerRecord, maxAge time.Duration, now time.Time) bool {
	if record == nil {
		return true
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return record.Age(now) > maxAge
}

// Memory is an unbounded in-memory Store.
// Writers to different keys never contend; writers to the same key race last-write-wins.
type Memory struct {
	items sync.Map // string → *models.TickerRecord
	ttl   time.Duration
	now   func() time.Time
}

// MemoryOption configures a Memory cache
type MemoryOption func(*Memory)

// WithTTL enables lazy eviction of entries older than ttl on Get. Zero keeps entries forever.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithClock sets the time source used for TTL eviction
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an empty in-memory cache
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the record cached for ticker
func (m *Memory) Get(_ context.Context, ticker string) (*models.TickerRecord, error) {
	key := Key(ticker)
	v, ok := m.items.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	record := v.(*models.TickerRecord)

	if m.ttl > 0 && record.Age(m.now()) > m.ttl {
		// a concurrent Set may have replaced the entry already
		m.items.CompareAndDelete(key, record)
		return nil, ErrNotFound
	}
	return record, nil
}

// Set overwrites the record cached for ticker
func (m *Memory) Set(_ context.Context, ticker string, record *models.TickerRecord) error {
	m.items.Store(Key(ticker), record)
	return nil
}

// Len returns the number of cached tickers
func (m *Memory) Len() int {
	n := 0
	m.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
