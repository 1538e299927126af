package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	jan15 := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		raw    interface{}
		status DateStatus
		want   string
	}{
		{"epoch millis float", float64(jan15.UnixMilli()), DateStatusValid, "2024-01-15"},
		{"epoch millis int64", jan15.UnixMilli() + 3600*1000, DateStatusValid, "2024-01-15"},
		{"epoch millis string", "1705276800000", DateStatusValid, "2024-01-15"},
		{"json number", json.Number("1705276800000"), DateStatusValid, "2024-01-15"},
		{"float millis string", "1.7052768e12", DateStatusValid, "2024-01-15"},
		{"decimal millis string", "1705276800000.0", DateStatusValid, "2024-01-15"},
		{"compact digits are not millis", "20240101", DateStatusInvalid, DateInvalid},
		{"short number string", "42", DateStatusInvalid, DateInvalid},
		{"infinity string", "Inf", DateStatusInvalid, DateInvalid},
		{"month day year", "1/15/2024", DateStatusValid, "2024-01-15"},
		{"zero padded month day year", "01/05/2024", DateStatusValid, "2024-01-05"},
		{"iso date", "2024-01-01", DateStatusValid, "2024-01-01"},
		{"rfc3339", "2024-01-15T10:30:00Z", DateStatusValid, "2024-01-15"},
		{"nil", nil, DateStatusMissing, DateNotAvailable},
		{"empty string", "  ", DateStatusMissing, DateNotAvailable},
		{"not available", "N/A", DateStatusMissing, DateNotAvailable},
		{"garbage", "yesterday-ish", DateStatusInvalid, DateInvalid},
		{"impossible date", "13/45/2024", DateStatusInvalid, DateInvalid},
		{"negative millis", float64(-5), DateStatusInvalid, DateInvalid},
		{"unsupported type", []string{"2024-01-01"}, DateStatusInvalid, DateInvalid},
		{"bool", true, DateStatusInvalid, DateInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			assert.NotPanics(t, func() { d = NormalizeDate(tt.raw) })
			assert.Equal(t, tt.status, d.Status)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDateOrdering(t *testing.T) {
	older := NormalizeDate("2024-01-01")
	newer := NormalizeDate("2024-02-01")
	invalid := NormalizeDate("bogus")
	missing := NormalizeDate(nil)

	assert.True(t, newer.After(older))
	assert.False(t, older.After(newer))
	assert.True(t, older.After(invalid), "valid dates sort before invalid ones")
	assert.True(t, older.After(missing))
	assert.False(t, invalid.After(missing))
}

func TestDateJSON(t *testing.T) {
	t.Run("round trips each status", func(t *testing.T) {
		in := struct {
			Valid   Date `json:"valid"`
			Invalid Date `json:"invalid"`
			Missing Date `json:"missing"`
		}{
			Valid:   NormalizeDate("3/7/2024"),
			Invalid: NormalizeDate("not a date"),
			Missing: NormalizeDate(nil),
		}

		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{"valid":"2024-03-07","invalid":"Invalid Date","missing":null}`, string(data))

		var out struct {
			Valid   Date `json:"valid"`
			Invalid Date `json:"invalid"`
			Missing Date `json:"missing"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in.Valid, out.Valid)
		assert.Equal(t, DateStatusInvalid, out.Invalid.Status)
		assert.Equal(t, DateStatusMissing, out.Missing.Status)
	})

	t.Run("decodes upstream epoch millis", func(t *testing.T) {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(`1705276800000`), &d))
		assert.Equal(t, "2024-01-15", d.String())
	})
}

func TestDateValue(t *testing.T) {
	v, err := NormalizeDate("2024-01-15").Value()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), v)

	v, err = NormalizeDate("garbage").Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	var d Date
	require.NoError(t, d.Scan(nil))
	assert.Equal(t, DateStatusMissing, d.Status)
	require.NoError(t, d.Scan(time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2023-06-01", d.String())
}
