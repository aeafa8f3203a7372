package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Payment is an amount paid against a contribution.
type Payment struct {
	ID             string          `json:"id" db:"id"`
	AmountPaid     decimal.Decimal `json:"amountPaid" db:"amount_paid"`
	PaymentDate    time.Time       `json:"paymentDate" db:"payment_date"`
	Status         PaymentStatus   `json:"status" db:"status"`
	ContributionID string          `json:"contributionId" db:"contribution_id"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// PaymentID embeds the payment timestamp; nonce keeps same-second payments apart.
func PaymentID(paidAt time.Time, nonce string) string {
	return "PAY" + paidAt.UTC().Format("20060102T150405") + "-" + nonce
}

// MoneyScale is the number of decimal places money columns store.
const MoneyScale = 2

// IsMoneyAmount reports whether d fits a money column without rounding.
func IsMoneyAmount(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// DTOs for requests

type CreatePaymentRequest struct {
	ContributionID string          `json:"contributionId" validate:"required,max=32"`
	AmountPaid     decimal.Decimal `json:"amountPaid" validate:"required,gt=0"`
	PaymentDate    *time.Time      `json:"paymentDate,omitempty"`
	Status         *PaymentStatus  `json:"status,omitempty" validate:"omitempty,oneof=COMPLETED PENDING CANCELLED"`
}

type UpdatePaymentRequest struct {
	AmountPaid  *decimal.Decimal `json:"amountPaid,omitempty" validate:"omitempty,gt=0"`
	PaymentDate *time.Time       `json:"paymentDate,omitempty"`
	Status      *PaymentStatus   `json:"status,omitempty" validate:"omitempty,oneof=COMPLETED PENDING CANCELLED"`
}
