package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WatchlistEntry is one persisted stock_info row: a flattened TickerRecord snapshot plus the user's note.
// Values are stored raw; display formatting happens at render time.
type WatchlistEntry struct {
	ID                    int                 `json:"id,omitempty"`
	Ticker                string              `json:"ticker" validate:"required,min=3,max=5,alpha,uppercase"`
	UserID                int64               `json:"user_id" validate:"gt=0"`
	Username              string              `json:"username" validate:"required,max=255"`
	AddedAt               time.Time           `json:"added_at"`
	TierDisplayName       string              `json:"tier_display_name,omitempty"`
	OutstandingShares     *int64              `json:"outstanding_shares,omitempty"`
	OutstandingSharesAsOf Date                `json:"outstanding_shares_as_of"`
	DTCShares             *int64              `json:"dtc_shares,omitempty"`
	DTCSharesAsOf         Date                `json:"dtc_shares_as_of"`
	PublicFloat           *int64              `json:"public_float,omitempty"`
	PublicFloatAsOf       Date                `json:"public_float_as_of"`
	LastClosePrice        decimal.NullDecimal `json:"last_close_price"`
	ProfileVerified       bool                `json:"profile_verified"`
	VerificationDate      Date                `json:"verification_date"`
	LatestFilingType      string              `json:"latest_filing_type,omitempty"`
	FilingDate            Date                `json:"filing_date"`
	FilingURL             string              `json:"filing_url,omitempty" validate:"omitempty,url"`
	IsCaveatEmptor        bool                `json:"is_caveat_emptor"`
	LatestNews            []NewsItem          `json:"latest_news"`
	Notes                 string              `json:"notes" validate:"required,max=1000"`
}

// WatchlistItem is the per-user projection of a watchlist row
type WatchlistItem struct {
	Ticker  string    `json:"ticker"`
	Notes   string    `json:"notes"`
	AddedAt time.Time `json:"added_at"`
}
