package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/trogers1052/ticker-research-service/internal/analysis"
	"github.com/trogers1052/ticker-research-service/internal/otcmarkets"
	"github.com/trogers1052/ticker-research-service/internal/service"
	"github.com/trogers1052/ticker-research-service/internal/watchlist"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
}

// userError maps a core error to a status code and a message safe to show a user
func userError(err error, ticker string) (int, string) {
	switch {
	case errors.Is(err, otcmarkets.ErrInvalidTicker):
		return http.StatusBadRequest, "Please provide a ticker symbol of 3 to 5 letters."
	case errors.Is(err, service.ErrNotCached):
		return http.StatusConflict, fmt.Sprintf("Data not found for %s. Please fetch the ticker info first.", ticker)
	case errors.Is(err, otcmarkets.ErrProfileUnavailable):
		return http.StatusBadGateway, fmt.Sprintf("An error occurred while fetching data for %s. Please try again later.", ticker)
	case errors.Is(err, analysis.ErrNoFiling):
		return http.StatusNotFound, fmt.Sprintf("No latest filing URL found for %s.", ticker)
	case errors.Is(err, analysis.ErrParse), errors.Is(err, analysis.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, fmt.Sprintf("Unable to extract text from the filing for %s. The document might be in an unsupported format.", ticker)
	case errors.Is(err, analysis.ErrModel):
		return http.StatusBadGateway, fmt.Sprintf("Failed to get a valid response from the analysis API for %s. Please try again later.", ticker)
	case errors.Is(err, analysis.ErrDownload), errors.Is(err, analysis.ErrDelivery):
		return http.StatusBadGateway, fmt.Sprintf("An error occurred during the analysis for %s. Please try again later.", ticker)
	case errors.Is(err, watchlist.ErrAlreadyExists):
		return http.StatusConflict, fmt.Sprintf("%s already exists in the watchlist.", ticker)
	case errors.Is(err, watchlist.ErrInvalidEntry):
		return http.StatusBadRequest, "Sorry, some information is missing. Please fetch the ticker info again."
	case errors.Is(err, watchlist.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, fmt.Sprintf("An error occurred while adding %s to the watchlist. Please try again later.", ticker)
	default:
		return http.StatusInternalServerError, "An unexpected error occurred. Please try again later."
	}
}
