// Package watchlist records tickers users want to follow together with a snapshot of their data.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/trogers1052/ticker-research-service/internal/models"
)

// DefaultUsername is stored when the caller has no username
const DefaultUsername = "Unknown"

var (
	// ErrAlreadyExists means the ticker is already on the watchlist; nothing was written
	ErrAlreadyExists = errors.New("ticker already on watchlist")
	// ErrStoreUnavailable wraps failures of the backing store
	ErrStoreUnavailable = errors.New("watchlist store unavailable")
	// ErrInvalidEntry means the entry failed validation
	ErrInvalidEntry = errors.New("invalid watchlist entry")
)

// Store persists watchlist rows. AppendRow returns ErrAlreadyExists when a concurrent
// writer inserted the same ticker first.
type Store interface {
	TickerExists(ctx context.Context, ticker string) (bool, error)
	AppendRow(ctx context.Context, entry *models.WatchlistEntry) error
	FindRowsByUser(ctx context.Context, userID int64) ([]models.WatchlistItem, error)
}

// EventPublisher announces new watchlist entries
type EventPublisher interface {
	PublishWatchlistAdded(ctx context.Context, entry *models.WatchlistEntry) error
}

// Writer validates, flattens and appends watchlist entries
type Writer struct {
	store         Store
	publisher     EventPublisher
	validate      *validator.Validate
	logger        arbor.ILogger
	filingBaseURL string
	now           func() time.Time
}

// Option configures a Writer
type Option func(*Writer)

// WithPublisher sets the publisher notified after each append
func WithPublisher(p EventPublisher) Option {
	return func(w *Writer) {
		w.publisher = p
	}
}

// WithFilingBaseURL sets the base used to make filing links absolute
func WithFilingBaseURL(baseURL string) Option {
	return func(w *Writer) {
		w.filingBaseURL = baseURL
	}
}

// WithClock sets the time source for AddedAt
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// NewWriter creates a watchlist writer over store
func NewWriter(store Store, logger arbor.ILogger, opts ...Option) *Writer {
	w := &Writer{
		store:         store,
		validate:      validator.New(),
		logger:        logger,
		filingBaseURL: models.DefaultFilingBaseURL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddEntry appends a snapshot of record to the watchlist under ticker.
// A ticker can be watched once regardless of which user added it.
func (w *Writer) AddEntry(ctx context.Context, ticker string, userID int64, username, note string, record *models.TickerRecord) (*models.WatchlistEntry, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: no ticker data", ErrInvalidEntry)
	}

	entry := w.Flatten(ticker, userID, username, note, record)
	if err := w.validate.Struct(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	exists, err := w.store.TickerExists(ctx, entry.Ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if exists {
		w.logger.Info().Str("ticker", entry.Ticker).Msg("Ticker already on watchlist")
		return nil, ErrAlreadyExists
	}

	if err := w.store.AppendRow(ctx, entry); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	w.logger.Info().
		Str("ticker", entry.Ticker).
		Str("user_id", fmt.Sprint(entry.UserID)).
		Msg("Watchlist entry added")

	if w.publisher != nil {
		if err := w.publisher.PublishWatchlistAdded(ctx, entry); err != nil {
			w.logger.Warn().Str("ticker", entry.Ticker).Err(err).Msg("Failed to publish watchlist event")
		}
	}

	return entry, nil
}

// Flatten copies the record fields that are persisted alongside the note
func (w *Writer) Flatten(ticker string, userID int64, username, note string, record *models.TickerRecord) *models.WatchlistEntry {
	if strings.TrimSpace(username) == "" {
		username = DefaultUsername
	}

	filingURL, err := models.ResolveFilingURL(w.filingBaseURL, record.FilingURL())
	if err != nil {
		filingURL = ""
	}

	sec := record.Profile.Security
	news := record.News
	if news == nil {
		news = []models.NewsItem{}
	}

	return &models.WatchlistEntry{
		Ticker:                strings.ToUpper(strings.TrimSpace(ticker)),
		UserID:                userID,
		Username:              username,
		AddedAt:               w.now(),
		TierDisplayName:       sec.TierDisplayName,
		OutstandingShares:     sec.OutstandingShares,
		OutstandingSharesAsOf: sec.OutstandingSharesAsOf,
		DTCShares:             sec.DTCShares,
		DTCSharesAsOf:         sec.DTCSharesAsOf,
		PublicFloat:           sec.PublicFloat,
		PublicFloatAsOf:       sec.PublicFloatAsOf,
		LastClosePrice:        record.PreviousClose(),
		ProfileVerified:       record.Profile.IsProfileVerified,
		VerificationDate:      record.Profile.ProfileVerifiedAsOf,
		LatestFilingType:      record.Profile.LatestFilingType,
		FilingDate:            record.Profile.LatestFilingDate,
		FilingURL:             filingURL,
		IsCaveatEmptor:        record.Profile.IsCaveatEmptor,
		LatestNews:            news,
		Notes:                 strings.TrimSpace(note),
	}
}

// List returns the user's watchlist, newest first
func (w *Writer) List(ctx context.Context, userID int64) ([]models.WatchlistItem, error) {
	items, err := w.store.FindRowsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return items, nil
}
