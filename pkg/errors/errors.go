package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrNotFound         = errors.New("entity not found")
	ErrConflict         = errors.New("entity already exists")
	ErrInvalidReference = errors.New("referenced entity does not exist")
	ErrOverpayment      = errors.New("payment exceeds contribution balance")
	ErrAuthentication   = errors.New("authentication failed")
	ErrForbidden        = errors.New("access denied")
	ErrValidation       = errors.New("validation failed")
	ErrRateLimited      = errors.New("too many attempts")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeDuplicateEntity  = "DUPLICATE_ENTITY"
	ErrCodeInvalidReference = "INVALID_REFERENCE"
	ErrCodeOverpayment      = "OVERPAYMENT"
	ErrCodeAuthentication   = "AUTHENTICATION_FAILED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeFamilyCycle      = "FAMILY_CYCLE"
	ErrCodeRateLimited      = "TOO_MANY_ATTEMPTS"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeCacheError       = "CACHE_ERROR"
)

// OverpaymentError is returned when a payment would push the total paid past the contribution amount.
type OverpaymentError struct {
	ContributionID string
	ProjectedTotal decimal.Decimal
	Amount         decimal.Decimal
	Surplus        decimal.Decimal
}

func NewOverpaymentError(contributionID string, projectedTotal, amount decimal.Decimal) *OverpaymentError {
	return &OverpaymentError{
		ContributionID: contributionID,
		ProjectedTotal: projectedTotal,
		Amount:         amount,
		Surplus:        projectedTotal.Sub(amount),
	}
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("%s: payment total %s exceeds contribution %s amount %s by %s",
		ErrCodeOverpayment, e.ProjectedTotal, e.ContributionID, e.Amount, e.Surplus)
}

func (e *OverpaymentError) Unwrap() error {
	return ErrOverpayment
}

// Wrap common errors with business context
func WrapNotFound(entity, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s with ID %s not found", entity, id),
		ErrNotFound,
	)
}

func WrapDuplicate(message string) *BusinessError {
	return NewBusinessError(ErrCodeDuplicateEntity, message, ErrConflict)
}

func WrapInvalidReference(entity, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidReference,
		fmt.Sprintf("%s with ID %s does not exist", entity, id),
		ErrInvalidReference,
	)
}

func WrapAuthentication(message string) *BusinessError {
	return NewBusinessError(ErrCodeAuthentication, message, ErrAuthentication)
}

func WrapForbidden(message string) *BusinessError {
	return NewBusinessError(ErrCodeForbidden, message, ErrForbidden)
}

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrValidation)
}

func WrapFamilyCycle(memberID, parentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeFamilyCycle,
		fmt.Sprintf("Member %s cannot become a child of its own descendant %s", memberID, parentID),
		ErrConflict,
	)
}

func WrapRateLimited(message string) *BusinessError {
	return NewBusinessError(ErrCodeRateLimited, message, ErrRateLimited)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// CodeOf returns the business code carried by err, or an empty string.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	var oe *OverpaymentError
	if errors.As(err, &oe) {
		return ErrCodeOverpayment
	}
	return ""
}

// MessageOf returns the client-facing message carried by err.
func MessageOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	var oe *OverpaymentError
	if errors.As(err, &oe) {
		return fmt.Sprintf("Payment exceeds the contribution amount by %s", oe.Surplus)
	}
	return ""
}
