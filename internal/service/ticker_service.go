// Package service orchestrates ticker lookups, filing analyses and watchlist writes.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ternarybob/arbor"

	"github.com/trogers1052/ticker-research-service/internal/analysis"
	"github.com/trogers1052/ticker-research-service/internal/cache"
	"github.com/trogers1052/ticker-research-service/internal/models"
	"github.com/trogers1052/ticker-research-service/internal/otcmarkets"
)

const (
	// DefaultFetchAttempts is the number of tries for a transient upstream failure
	DefaultFetchAttempts = 3

	// DefaultRetryDelay is the pause between fetch attempts
	DefaultRetryDelay = time.Second
)

// ErrNotCached means the ticker must be looked up before it can be analyzed or watched
var ErrNotCached = errors.New("ticker has not been looked up")

// Fetcher retrieves a fresh TickerRecord and caches it
type Fetcher interface {
	FetchTicker(ctx context.Context, ticker string) (*models.TickerRecord, error)
}

// Analyzer runs the filing analysis pipeline
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request, sink analysis.Sink) (*models.AnalysisResult, error)
}

// Watchlist appends and lists watchlist entries
type Watchlist interface {
	AddEntry(ctx context.Context, ticker string, userID int64, username, note string, record *models.TickerRecord) (*models.WatchlistEntry, error)
	List(ctx context.Context, userID int64) ([]models.WatchlistItem, error)
}

// EventPublisher announces analysis outcomes
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, result *models.AnalysisResult) error
	PublishAnalysisFailed(ctx context.Context, ticker string, failure *analysis.Error) error
}

// TickerService is the entry point for every user-facing operation
type TickerService struct {
	fetcher    Fetcher
	store      cache.Store
	analyzer   Analyzer
	watchlist  Watchlist
	publisher  EventPublisher
	logger     arbor.ILogger
	maxAge     time.Duration
	attempts   int
	retryDelay time.Duration
	now        func() time.Time
}

// Option configures a TickerService
type Option func(*TickerService)

// WithPublisher enables analysis event publishing
func WithPublisher(p EventPublisher) Option {
	return func(s *TickerService) {
		s.publisher = p
	}
}

// WithMaxAge sets the staleness threshold for cached records
func WithMaxAge(d time.Duration) Option {
	return func(s *TickerService) {
		s.maxAge = d
	}
}

// WithRetry sets the fetch attempt count and the delay between attempts
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *TickerService) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// WithClock sets the time source for staleness checks
func WithClock(now func() time.Time) Option {
	return func(s *TickerService) {
		s.now = now
	}
}

// NewTickerService wires the service collaborators
func NewTickerService(fetcher Fetcher, store cache.Store, analyzer Analyzer, watchlist Watchlist, logger arbor.ILogger, opts ...Option) *TickerService {
	s := &TickerService{
		fetcher:    fetcher,
		store:      store,
		analyzer:   analyzer,
		watchlist:  watchlist,
		logger:     logger,
		maxAge:     cache.DefaultMaxAge,
		attempts:   DefaultFetchAttempts,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetTicker returns the cached record while it is fresh, otherwise fetches a new one
func (s *TickerService) GetTicker(ctx context.Context, ticker string, forceRefresh bool) (*models.TickerRecord, error) {
	t, err := otcmarkets.NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	if !forceRefresh {
		record, err := s.store.Get(ctx, t)
		switch {
		case err == nil && !cache.IsStale(record, s.maxAge, s.now()):
			s.logger.Debug().Str("ticker", t).Msg("Serving cached ticker")
			return record, nil
		case err != nil && !errors.Is(err, cache.ErrNotFound):
			s.logger.Warn().Str("ticker", t).Err(err).Msg("Cache read failed")
		}
	}

	return s.fetch(ctx, t)
}

// RefreshTicker fetches ticker unconditionally
func (s *TickerService) RefreshTicker(ctx context.Context, ticker string) (*models.TickerRecord, error) {
	return s.GetTicker(ctx, ticker, true)
}

// fetch retries transient network failures with a constant delay
func (s *TickerService) fetch(ctx context.Context, ticker string) (*models.TickerRecord, error) {
	var (
		record  *models.TickerRecord
		attempt int
	)

	op := func() error {
		attempt++
		r, err := s.fetcher.FetchTicker(ctx, ticker)
		if err == nil {
			record = r
			return nil
		}
		if !errors.Is(err, otcmarkets.ErrTransientNetwork) {
			return backoff.Permanent(err)
		}
		s.logger.Warn().
			Str("ticker", ticker).
			Int("attempt", attempt).
			Err(err).
			Msg("Transient upstream failure")
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), uint64(s.attempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return record, nil
}

// Analyze runs the filing analysis for a ticker that was looked up earlier
func (s *TickerService) Analyze(ctx context.Context, ticker string, sink analysis.Sink) (*models.AnalysisResult, error) {
	record, err := s.cached(ctx, ticker)
	if err != nil {
		return nil, err
	}

	req := analysis.Request{
		Ticker:        record.Ticker,
		FilingURL:     record.FilingURL(),
		PreviousClose: record.PreviousCloseString(),
	}

	result, err := s.analyzer.Run(ctx, req, sink)
	if err != nil {
		var failure *analysis.Error
		if errors.As(err, &failure) && s.publisher != nil {
			if perr := s.publisher.PublishAnalysisFailed(ctx, record.Ticker, failure); perr != nil {
				s.logger.Warn().Str("ticker", record.Ticker).Err(perr).Msg("Failed to publish analysis failure")
			}
		}
		return nil, err
	}

	if s.publisher != nil {
		if perr := s.publisher.PublishAnalysisCompleted(ctx, result); perr != nil {
			s.logger.Warn().Str("ticker", record.Ticker).Err(perr).Msg("Failed to publish analysis result")
		}
	}
	return result, nil
}

// AddToWatchlist records the cached snapshot of ticker with the user's note
func (s *TickerService) AddToWatchlist(ctx context.Context, ticker string, userID int64, username, note string) (*models.WatchlistEntry, error) {
	record, err := s.cached(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return s.watchlist.AddEntry(ctx, record.Ticker, userID, username, note, record)
}

// Watchlist returns the user's watchlist, newest first
func (s *TickerService) Watchlist(ctx context.Context, userID int64) ([]models.WatchlistItem, error) {
	return s.watchlist.List(ctx, userID)
}

func (s *TickerService) cached(ctx context.Context, ticker string) (*models.TickerRecord, error) {
	t, err := otcmarkets.NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Get(ctx, t)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached ticker: %w", err)
	}
	return record, nil
}
