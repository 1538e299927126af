package models

import "time"

// Ticker event type constants
const (
	EventWatchlistEntryAdded    = "WATCHLIST_ENTRY_ADDED"
	EventAnalysisCompleted      = "ANALYSIS_COMPLETED"
	EventAnalysisFailed         = "ANALYSIS_FAILED"
	EventTickerRefreshRequested = "TICKER_REFRESH_REQUESTED"
)

// TickerEvent represents a Kafka event about a ticker
type TickerEvent struct {
	EventType string    `json:"event_type"`
	Ticker    string    `json:"ticker"`
	UserID    int64     `json:"user_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	State     string    `json:"state,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Chunks    int       `json:"chunks,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
