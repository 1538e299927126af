package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Display values for dates that could not be resolved
const (
	DateNotAvailable = "N/A"
	DateInvalid      = "Invalid Date"
)

// DateStatus describes how a Date was resolved from upstream data
type DateStatus int

const (
	DateStatusMissing DateStatus = iota
	DateStatusInvalid
	DateStatusValid
)

// Date is a calendar date normalized once on ingest.
// Missing and malformed upstream values are kept as explicit states instead of errors.
type Date struct {
	Time   time.Time
	Status DateStatus
}

// numeric strings below this are not treated as epoch milliseconds
const minEpochMillis = 1e9

// accepted string layouts, tried in order
var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// NewDate returns a valid Date truncated to the calendar day in UTC
func NewDate(t time.Time) Date {
	t = t.UTC()
	return Date{
		Time:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Status: DateStatusValid,
	}
}

// NormalizeDate converts an upstream date value into a Date.
// Accepts epoch milliseconds (numeric, or a numeric string of at least ten digits in integer
// or float form), M/D/YYYY, YYYY-MM-DD and RFC 3339.
// nil, empty strings and "N/A" are missing; anything else that does not parse is invalid.
func NormalizeDate(raw interface{}) Date {
	switch v := raw.(type) {
	case nil:
		return Date{Status: DateStatusMissing}
	case Date:
		return v
	case time.Time:
		if v.IsZero() {
			return Date{Status: DateStatusMissing}
		}
		return NewDate(v)
	case int64:
		return fromEpochMillis(v)
	case int:
		return fromEpochMillis(int64(v))
	case float64:
		return fromEpochMillis(int64(v))
	case json.Number:
		return NormalizeDate(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" || s == DateNotAvailable {
			return Date{Status: DateStatusMissing}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return NewDate(t)
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && f >= minEpochMillis {
			return fromEpochMillis(int64(f))
		}
		return Date{Status: DateStatusInvalid}
	default:
		return Date{Status: DateStatusInvalid}
	}
}

func fromEpochMillis(ms int64) Date {
	if ms <= 0 {
		return Date{Status: DateStatusInvalid}
	}
	return NewDate(time.UnixMilli(ms))
}

// IsValid reports whether the date resolved to a calendar day
func (d Date) IsValid() bool {
	return d.Status == DateStatusValid
}

// String renders the date for display
func (d Date) String() string {
	switch d.Status {
	case DateStatusValid:
		return d.Time.Format("2006-01-02")
	case DateStatusInvalid:
		return DateInvalid
	default:
		return DateNotAvailable
	}
}

// After orders valid dates before invalid or missing ones
func (d Date) After(other Date) bool {
	if d.IsValid() != other.IsValid() {
		return d.IsValid()
	}
	return d.Time.After(other.Time)
}

// MarshalJSON encodes valid dates as YYYY-MM-DD, missing as null and invalid as "Invalid Date"
func (d Date) MarshalJSON() ([]byte, error) {
	switch d.Status {
	case DateStatusValid:
		return json.Marshal(d.Time.Format("2006-01-02"))
	case DateStatusInvalid:
		return json.Marshal(DateInvalid)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts everything NormalizeDate accepts and never fails on content
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode date: %w", err)
	}
	*d = NormalizeDate(raw)
	return nil
}

// Value writes valid dates as DATE values and everything else as NULL
func (d Date) Value() (driver.Value, error) {
	if !d.IsValid() {
		return nil, nil
	}
	return d.Time, nil
}

// Scan reads a nullable DATE column
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{Status: DateStatusMissing}
	case time.Time:
		*d = NewDate(v)
	case []byte:
		*d = NormalizeDate(string(v))
	case string:
		*d = NormalizeDate(v)
	default:
		return fmt.Errorf("unsupported date source type %T", src)
	}
	return nil
}
