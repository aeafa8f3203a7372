package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrBalanceExceeded is returned when a payment write would push the total paid past the contribution amount.
var ErrBalanceExceeded = errors.New("payment total exceeds contribution amount")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

// IsForeignKeyViolation reports whether err is a Postgres foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
