package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/ternarybob/arbor"

	"github.com/trogers1052/ticker-research-service/internal/analysis"
	"github.com/trogers1052/ticker-research-service/internal/models"
)

// TickerService is the core the handlers present
type TickerService interface {
	GetTicker(ctx context.Context, ticker string, forceRefresh bool) (*models.TickerRecord, error)
	Analyze(ctx context.Context, ticker string, sink analysis.Sink) (*models.AnalysisResult, error)
	AddToWatchlist(ctx context.Context, ticker string, userID int64, username, note string) (*models.WatchlistEntry, error)
	Watchlist(ctx context.Context, userID int64) ([]models.WatchlistItem, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc    TickerService
	logger arbor.ILogger
}

// NewHandler creates a new Handler
func NewHandler(svc TickerService, logger arbor.ILogger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// analysisResponse is returned by a successful analysis
type analysisResponse struct {
	RunID  string   `json:"run_id"`
	Ticker string   `json:"ticker"`
	Chunks []string `json:"chunks"`
}

// collectingSink keeps delivered chunks in order
type collectingSink struct {
	chunks []string
}

func (s *collectingSink) Deliver(_ context.Context, chunk string) error {
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *collectingSink) Fail(context.Context, *analysis.Error) {}

// GetTicker handles GET /tickers/{ticker}
func (h *Handler) GetTicker(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	record, err := h.svc.GetTicker(r.Context(), ticker, refresh)
	if err != nil {
		h.respondError(w, err, ticker)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// AnalyzeTicker handles POST /tickers/{ticker}/analysis
func (h *Handler) AnalyzeTicker(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	sink := &collectingSink{chunks: []string{}}

	result, err := h.svc.Analyze(r.Context(), ticker, sink)
	if err != nil {
		h.respondError(w, err, ticker)
		return
	}

	respondJSON(w, http.StatusOK, analysisResponse{
		RunID:  result.RunID,
		Ticker: result.Ticker,
		Chunks: sink.chunks,
	})
}

// GetWatchlist handles GET /watchlist?user_id=N
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	items, err := h.svc.Watchlist(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// AddToWatchlist handles POST /watchlist
func (h *Handler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker   string `json:"ticker"`
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
		Note     string `json:"note"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if strings.TrimSpace(req.Ticker) == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "ticker is required"})
		return
	}
	if req.UserID <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	entry, err := h.svc.AddToWatchlist(r.Context(), req.Ticker, req.UserID, req.Username, req.Note)
	if err != nil {
		h.respondError(w, err, strings.ToUpper(req.Ticker))
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, ticker string) {
	status, message := userError(err, strings.ToUpper(ticker))
	var event arbor.ILogEvent = h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Str("ticker", ticker).Int("status", status).Err(err).Msg("Request failed")

	respondJSON(w, status, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
