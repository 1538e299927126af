package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/trogers1052/ticker-research-service/internal/models"
	"github.com/trogers1052/ticker-research-service/internal/watchlist"
)

const uniqueViolation = "23505"

// TickerExists reports whether any user already added ticker
func (db *DB) TickerExists(ctx context.Context, ticker string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM stock_info WHERE ticker = $1)`

	var exists bool
	if err := db.conn.QueryRowContext(ctx, query, ticker).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ticker: %w", err)
	}
	return exists, nil
}

// AppendRow inserts a watchlist entry and sets its ID
func (db *DB) AppendRow(ctx context.Context, e *models.WatchlistEntry) error {
	query := `
		INSERT INTO stock_info (
			ticker, user_id, username, added_at, tier_display_name,
			outstanding_shares, outstanding_shares_as_of, dtc_shares, dtc_shares_as_of,
			public_float, public_float_as_of, last_close_price, profile_verified,
			verification_date, latest_filing_type, filing_date, filing_url,
			is_caveat_emptor, latest_news, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`
	news := e.LatestNews
	if news == nil {
		news = []models.NewsItem{}
	}
	newsJSON, err := json.Marshal(news)
	if err != nil {
		return fmt.Errorf("failed to encode latest news: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, query,
		e.Ticker, e.UserID, e.Username, e.AddedAt, nullString(e.TierDisplayName),
		e.OutstandingShares, e.OutstandingSharesAsOf, e.DTCShares, e.DTCSharesAsOf,
		e.PublicFloat, e.PublicFloatAsOf, e.LastClosePrice, e.ProfileVerified,
		e.VerificationDate, nullString(e.LatestFilingType), e.FilingDate, nullString(e.FilingURL),
		e.IsCaveatEmptor, string(newsJSON), e.Notes,
	).Scan(&e.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("failed to append watchlist row: %w", watchlist.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to append watchlist row: %w", err)
	}
	return nil
}

// FindRowsByUser returns the user's watchlist, newest first
func (db *DB) FindRowsByUser(ctx context.Context, userID int64) ([]models.WatchlistItem, error) {
	query := `
		SELECT ticker, notes, added_at
		FROM stock_info
		WHERE user_id = $1
		ORDER BY added_at DESC, id DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	items := []models.WatchlistItem{}
	for rows.Next() {
		var item models.WatchlistItem
		if err := rows.Scan(&item.Ticker, &item.Notes, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read watchlist: %w", err)
	}

	return items, nil
}

// GetEntryByTicker retrieves the full watchlist row for ticker
func (db *DB) GetEntryByTicker(ctx context.Context, ticker string) (*models.WatchlistEntry, error) {
	query := `
		SELECT id, ticker, user_id, username, added_at, tier_display_name,
		       outstanding_shares, outstanding_shares_as_of, dtc_shares, dtc_shares_as_of,
		       public_float, public_float_as_of, last_close_price, profile_verified,
		       verification_date, latest_filing_type, filing_date, filing_url,
		       is_caveat_emptor, latest_news, notes
		FROM stock_info
		WHERE ticker = $1
	`
	var e models.WatchlistEntry
	var tier, filingType, filingURL sql.NullString
	var outstanding, dtc, publicFloat sql.NullInt64
	var newsJSON []byte

	err := db.conn.QueryRowContext(ctx, query, ticker).Scan(
		&e.ID, &e.Ticker, &e.UserID, &e.Username, &e.AddedAt, &tier,
		&outstanding, &e.OutstandingSharesAsOf, &dtc, &e.DTCSharesAsOf,
		&publicFloat, &e.PublicFloatAsOf, &e.LastClosePrice, &e.ProfileVerified,
		&e.VerificationDate, &filingType, &e.FilingDate, &filingURL,
		&e.IsCaveatEmptor, &newsJSON, &e.Notes,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("watchlist entry not found: %s", ticker)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist entry: %w", err)
	}

	e.TierDisplayName = tier.String
	e.LatestFilingType = filingType.String
	e.FilingURL = filingURL.String
	if outstanding.Valid {
		e.OutstandingShares = &outstanding.Int64
	}
	if dtc.Valid {
		e.DTCShares = &dtc.Int64
	}
	if publicFloat.Valid {
		e.PublicFloat = &publicFloat.Int64
	}
	if err := json.Unmarshal(newsJSON, &e.LatestNews); err != nil {
		return nil, fmt.Errorf("failed to decode latest news: %w", err)
	}

	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
