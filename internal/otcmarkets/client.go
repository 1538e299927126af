// Package otcmarkets fetches company profile, inside trade and news data from the OTC Markets API.
package otcmarkets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/trogers1052/ticker-research-service/internal/cache"
	"github.com/trogers1052/ticker-research-service/internal/models"
	"github.com/trogers1052/ticker-research-service/internal/ratelimit"
)

const (
	// DefaultBaseURL is the base URL for the OTC Markets backend API
	DefaultBaseURL = "https://backend.otcmarkets.com/otcapi"

	// DefaultTimeout is the per-request HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultNewsLimit is the number of news items kept per ticker
	DefaultNewsLimit = 3

	newsPageSize = 5
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36"
)

var tickerPattern = regexp.MustCompile(`^[A-Z]{3,5}$`)

var errEmptyProfile = errors.New("empty profile")

// Client fetches and caches TickerRecords
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	store      cache.Store
	logger     arbor.ILogger
	newsLimit  int
	now        func() time.Time
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithNewsLimit sets how many news items are kept
func WithNewsLimit(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.newsLimit = n
		}
	}
}

// WithClock sets the time source used for FetchedAt
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new OTC Markets client. Every request goes through limiter
// and every successful fetch is written to store.
func NewClient(limiter *ratelimit.Limiter, store cache.Store, logger arbor.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:   limiter,
		store:     store,
		logger:    logger,
		newsLimit: DefaultNewsLimit,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NormalizeTicker upper-cases and validates a ticker symbol
func NormalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return t, nil
}

// FetchTicker retrieves profile, trade and news concurrently and caches the merged record.
// Only a profile failure is an error; missing trade or news data degrades to absent values.
func (c *Client) FetchTicker(ctx context.Context, ticker string) (*models.TickerRecord, error) {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	var (
		wg                           sync.WaitGroup
		profile                      *profileResponse
		trade                        *tradeResponse
		news                         newsResponse
		profileErr, tradeErr, newsErr error
	)

	escaped := url.PathEscape(t)
	profilePath := "/company/profile/full/" + escaped
	newsParams := url.Values{}
	newsParams.Set("page", "1")
	newsParams.Set("pageSize", fmt.Sprint(newsPageSize))
	newsParams.Set("sortOn", "releaseDate")
	newsParams.Set("sortDir", "DESC")

	wg.Add(3)
	go func() {
		defer wg.Done()
		profileErr = c.get(ctx, profilePath, nil, &profile)
	}()
	go func() {
		defer wg.Done()
		tradeErr = c.get(ctx, "/stock/trade/inside/"+escaped, nil, &trade)
	}()
	go func() {
		defer wg.Done()
		newsErr = c.get(ctx, "/company/"+escaped+"/dns/news", newsParams, &news)
	}()
	wg.Wait()

	if profileErr == nil && profile == nil {
		profileErr = &UpstreamError{Endpoint: profilePath, Err: errEmptyProfile}
	}
	if profileErr != nil {
		c.logger.Error().Str("ticker", t).Err(profileErr).Msg("Failed to fetch company profile")
		return nil, profileErr
	}

	record := &models.TickerRecord{
		Ticker:    t,
		Profile:   profile.toModel(),
		News:      []models.NewsItem{},
		FetchedAt: c.now(),
	}

	switch {
	case tradeErr != nil:
		c.logger.Warn().Str("ticker", t).Err(tradeErr).Msg("Trade data unavailable")
	case trade == nil:
		c.logger.Warn().Str("ticker", t).Msg("Trade data empty")
	default:
		record.Trade = trade.toModel()
	}

	if newsErr != nil {
		c.logger.Warn().Str("ticker", t).Err(newsErr).Msg("News unavailable")
	} else {
		record.News = latestNews(news.toModel(), c.newsLimit)
	}

	if err := c.store.Set(ctx, t, record); err != nil {
		c.logger.Warn().Str("ticker", t).Err(err).Msg("Failed to cache ticker record")
	}

	c.logger.Debug().
		Str("ticker", t).
		Bool("has_trade", record.Trade != nil).
		Int("news", len(record.News)).
		Msg("Ticker fetched")

	return record, nil
}

// latestNews orders items newest first, undated items last, and keeps at most limit
func latestNews(items []models.NewsItem, limit int) []models.NewsItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ReleaseDate.After(items[j].ReleaseDate)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// get performs a rate limited GET against the API and decodes the JSON body into result
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	err := c.limiter.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return &UpstreamError{Endpoint: path, Err: fmt.Errorf("failed to create request: %w", err)}
		}
		setBrowserHeaders(req)

		c.logger.Debug().Str("url", reqURL).Msg("OTC Markets API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &UpstreamError{Endpoint: path, Transient: IsTransient(err, 0), Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &UpstreamError{Endpoint: path, Transient: IsTransient(err, 0), Err: fmt.Errorf("failed to read response: %w", err)}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &UpstreamError{
				Endpoint:   path,
				StatusCode: resp.StatusCode,
				Transient:  IsTransient(nil, resp.StatusCode),
			}
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(result); err != nil {
			return &UpstreamError{Endpoint: path, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil
	})

	var upstreamErr *UpstreamError
	if err != nil && !errors.As(err, &upstreamErr) {
		// limiter wait aborted by the context
		return &UpstreamError{Endpoint: path, Err: err}
	}
	return err
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("Origin", "https://www.otcmarkets.com")
	req.Header.Set("Referer", "https://www.otcmarkets.com/")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
