package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NotAvailable is rendered in place of absent values
const NotAvailable = "N/A"

// DefaultFilingBaseURL is prefixed to relative filing links
const DefaultFilingBaseURL = "https://www.otcmarkets.com/otcapi"

// ErrNoFiling means the ticker has no latest filing
var ErrNoFiling = errors.New("no filing available")

// TickerRecord is the merged profile, trade and news snapshot for one ticker
type TickerRecord struct {
	Ticker    string     `json:"ticker"`
	Profile   Profile    `json:"profile"`
	Trade     *Trade     `json:"trade,omitempty"`
	News      []NewsItem `json:"news"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Profile represents the company profile of an OTC security
type Profile struct {
	Security            Security  `json:"security"`
	IsProfileVerified   bool      `json:"is_profile_verified"`
	ProfileVerifiedAsOf Date      `json:"profile_verified_as_of"`
	LatestFilingType    string    `json:"latest_filing_type,omitempty"`
	LatestFilingDate    Date      `json:"latest_filing_date"`
	LatestFilingURL     string    `json:"latest_filing_url,omitempty"`
	IsCaveatEmptor      bool      `json:"is_caveat_emptor"`
	BusinessDesc        string    `json:"business_desc,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	Email               string    `json:"email,omitempty"`
	Address             Address   `json:"address"`
	Website             string    `json:"website,omitempty"`
	Twitter             string    `json:"twitter,omitempty"`
	LinkedIn            string    `json:"linkedin,omitempty"`
	Instagram           string    `json:"instagram,omitempty"`
	Officers            []Officer `json:"officers,omitempty"`
}

// Security holds the share structure of the primary security
type Security struct {
	TierDisplayName       string `json:"tier_display_name,omitempty"`
	OutstandingShares     *int64 `json:"outstanding_shares,omitempty"`
	OutstandingSharesAsOf Date   `json:"outstanding_shares_as_of"`
	DTCShares             *int64 `json:"dtc_shares,omitempty"`
	DTCSharesAsOf         Date   `json:"dtc_shares_as_of"`
	PublicFloat           *int64 `json:"public_float,omitempty"`
	PublicFloatAsOf       Date   `json:"public_float_as_of"`
}

// Address is the executive address from the profile
type Address struct {
	Addr1   string `json:"addr1,omitempty"`
	Addr2   string `json:"addr2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// Officer is a company officer listed on the profile
type Officer struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// Trade represents the inside trade quote
type Trade struct {
	PreviousClose decimal.NullDecimal `json:"previous_close"`
	LastSale      decimal.NullDecimal `json:"last_sale"`
	Volume        int64               `json:"volume,omitempty"`
}

// NewsItem is one company news release
type NewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ReleaseDate Date   `json:"release_date"`
}

// PreviousClose returns the previous close price, if trade data was available
func (r *TickerRecord) PreviousClose() decimal.NullDecimal {
	if r.Trade == nil {
		return decimal.NullDecimal{}
	}
	return r.Trade.PreviousClose
}

// PreviousCloseString renders the previous close price or N/A
func (r *TickerRecord) PreviousCloseString() string {
	pc := r.PreviousClose()
	if !pc.Valid {
		return NotAvailable
	}
	return pc.Decimal.String()
}

// FilingURL returns the latest filing link as reported upstream, empty if none
func (r *TickerRecord) FilingURL() string {
	u := r.Profile.LatestFilingURL
	if u == NotAvailable {
		return ""
	}
	return u
}

// ResolveFilingURL turns a filing link from the profile into an absolute URL
func ResolveFilingURL(baseURL, link string) (string, error) {
	u := strings.TrimSpace(link)
	if u == "" || u == NotAvailable {
		return "", ErrNoFiling
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u, nil
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(u, "/"), nil
}

// Age returns how long ago the record was fetched
func (r *TickerRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.FetchedAt)
}
