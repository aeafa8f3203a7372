package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsDateOverdue(t *testing.T) {
	due := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"before due date", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"on due date", due, false},
		{"day after due date", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsDateOverdue(due, tt.now))
		})
	}
}

func TestYearsBetween(t *testing.T) {
	endOf2026 := EndOfYear(2026)

	tests := []struct {
		name     string
		birth    time.Time
		at       time.Time
		expected int
	}{
		{"birthday on january 1st", time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC), endOf2026, 18},
		{"birthday on december 31st", time.Date(2008, 12, 31, 0, 0, 0, 0, time.UTC), endOf2026, 18},
		{"birthday later in year", time.Date(2008, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC), 17},
		{"birthday reached", time.Date(2008, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), 18},
		{"leap day birth at year end", time.Date(2008, 2, 29, 0, 0, 0, 0, time.UTC), EndOfYear(2027), 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, YearsBetween(tt.birth, tt.at))
		})
	}
}

func TestShortNonce(t *testing.T) {
	a := ShortNonce(8)
	b := ShortNonce(8)

	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
	assert.Len(t, ShortNonce(0), 32)
}

func TestSumDecimals(t *testing.T) {
	assert.True(t, SumDecimals(nil).IsZero())

	total := SumDecimals([]decimal.Decimal{
		decimal.NewFromInt(10000),
		decimal.RequireFromString("2500.50"),
	})
	assert.True(t, total.Equal(decimal.RequireFromString("12500.50")))
}

func TestDecimalFromString(t *testing.T) {
	d, err := DecimalFromString("40000")
	assert.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(40000)))

	_, err = DecimalFromString("forty")
	assert.Error(t, err)
}
