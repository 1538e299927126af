package models

import "time"

// AnalysisResult is the outcome of one filing analysis run. It is delivered, never persisted.
type AnalysisResult struct {
	RunID          string    `json:"run_id"`
	Ticker         string    `json:"ticker"`
	RawModelOutput string    `json:"raw_model_output"`
	FormattedText  string    `json:"formatted_text"`
	Chunks         []string  `json:"chunks"`
	ProducedAt     time.Time `json:"produced_at"`
}
