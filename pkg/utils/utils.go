package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IsDateOverdue checks if a due date has passed as of now
func IsDateOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

// EndOfYear returns December 31st of year at midnight UTC
func EndOfYear(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// YearsBetween returns the whole calendar years from birth to at
func YearsBetween(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	return years
}

// ShortNonce returns the first n hex characters of a random UUID
func ShortNonce(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}

// SumDecimals adds up values, returning zero for an empty slice
func SumDecimals(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
