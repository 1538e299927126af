package otcmarkets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/ticker-research-service/internal/models"
)

// profileResponse is the wire shape of /company/profile/full/{T}.
// Date fields arrive as epoch milliseconds or strings and are normalized on ingest.
type profileResponse struct {
	Securities []struct {
		TierDisplayName           string      `json:"tierDisplayName"`
		OutstandingShares         interface{} `json:"outstandingShares"`
		OutstandingSharesAsOfDate interface{} `json:"outstandingSharesAsOfDate"`
		DTCShares                 interface{} `json:"dtcShares"`
		DTCSharesAsOfDate         interface{} `json:"dtcSharesAsOfDate"`
		PublicFloat               interface{} `json:"publicFloat"`
		PublicFloatAsOfDate       interface{} `json:"publicFloatAsOfDate"`
	} `json:"securities"`
	IsProfileVerified       bool        `json:"isProfileVerified"`
	ProfileVerifiedAsOfDate interface{} `json:"profileVerifiedAsOfDate"`
	LatestFilingType        string      `json:"latestFilingType"`
	LatestFilingDate        interface{} `json:"latestFilingDate"`
	LatestFilingURL         string      `json:"latestFilingUrl"`
	IsCaveatEmptor          bool        `json:"isCaveatEmptor"`
	BusinessDesc            string      `json:"businessDesc"`
	Phone                   string      `json:"phone"`
	Email                   string      `json:"email"`
	ExecAddr                struct {
		Addr1   string `json:"addr1"`
		Addr2   string `json:"addr2"`
		City    string `json:"city"`
		State   string `json:"state"`
		Zip     string `json:"zip"`
		Country string `json:"country"`
	} `json:"execAddr"`
	Website   string `json:"website"`
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
	Instagram string `json:"instagram"`
	Officers  []struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	} `json:"officers"`
}

// tradeResponse is the wire shape of /stock/trade/inside/{T}
type tradeResponse struct {
	PreviousClose interface{} `json:"previousClose"`
	LastSale      interface{} `json:"lastSale"`
	Volume        interface{} `json:"volume"`
}

// newsResponse is the wire shape of /company/{T}/dns/news
type newsResponse struct {
	Records []struct {
		ID          interface{} `json:"id"`
		Title       string      `json:"title"`
		ReleaseDate interface{} `json:"releaseDate"`
	} `json:"records"`
}

func (p *profileResponse) toModel() models.Profile {
	profile := models.Profile{
		IsProfileVerified:   p.IsProfileVerified,
		ProfileVerifiedAsOf: models.NormalizeDate(p.ProfileVerifiedAsOfDate),
		LatestFilingType:    p.LatestFilingType,
		LatestFilingDate:    models.NormalizeDate(p.LatestFilingDate),
		LatestFilingURL:     p.LatestFilingURL,
		IsCaveatEmptor:      p.IsCaveatEmptor,
		BusinessDesc:        p.BusinessDesc,
		Phone:               p.Phone,
		Email:               p.Email,
		Address: models.Address{
			Addr1:   p.ExecAddr.Addr1,
			Addr2:   p.ExecAddr.Addr2,
			City:    p.ExecAddr.City,
			State:   p.ExecAddr.State,
			Zip:     p.ExecAddr.Zip,
			Country: p.ExecAddr.Country,
		},
		Website:   p.Website,
		Twitter:   p.Twitter,
		LinkedIn:  p.LinkedIn,
		Instagram: p.Instagram,
	}

	if len(p.Securities) > 0 {
		s := p.Securities[0]
		profile.Security = models.Security{
			TierDisplayName:       s.TierDisplayName,
			OutstandingShares:     toInt64Ptr(s.OutstandingShares),
			OutstandingSharesAsOf: models.NormalizeDate(s.OutstandingSharesAsOfDate),
			DTCShares:             toInt64Ptr(s.DTCShares),
			DTCSharesAsOf:         models.NormalizeDate(s.DTCSharesAsOfDate),
			PublicFloat:           toInt64Ptr(s.PublicFloat),
			PublicFloatAsOf:       models.NormalizeDate(s.PublicFloatAsOfDate),
		}
	} else {
		profile.Security = models.Security{
			OutstandingSharesAsOf: models.NormalizeDate(nil),
			DTCSharesAsOf:         models.NormalizeDate(nil),
			PublicFloatAsOf:       models.NormalizeDate(nil),
		}
	}

	for _, o := range p.Officers {
		profile.Officers = append(profile.Officers, models.Officer{Name: o.Name, Title: o.Title})
	}
	return profile
}

func (t *tradeResponse) toModel() *models.Trade {
	trade := &models.Trade{
		PreviousClose: toNullDecimal(t.PreviousClose),
		LastSale:      toNullDecimal(t.LastSale),
	}
	if v := toInt64Ptr(t.Volume); v != nil {
		trade.Volume = *v
	}
	return trade
}

func (n *newsResponse) toModel() []models.NewsItem {
	items := make([]models.NewsItem, 0, len(n.Records))
	for _, r := range n.Records {
		items = append(items, models.NewsItem{
			ID:          toString(r.ID),
			Title:       r.Title,
			ReleaseDate: models.NormalizeDate(r.ReleaseDate),
		})
	}
	return items
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toInt64Ptr(v interface{}) *int64 {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.ReplaceAll(strings.TrimSpace(x), ",", "")
	case float64:
		n := int64(x)
		return &n
	default:
		return nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int64(f)
		return &n
	}
	return nil
}

func toNullDecimal(v interface{}) decimal.NullDecimal {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(x))
	default:
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
