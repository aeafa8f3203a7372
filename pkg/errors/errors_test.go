package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBusinessErrorUnwrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     string
	}{
		{"not found", WrapNotFound("Person", "MBR00000001"), ErrNotFound, ErrCodeNotFound},
		{"duplicate", WrapDuplicate("email already in use"), ErrConflict, ErrCodeDuplicateEntity},
		{"invalid reference", WrapInvalidReference("District", "9"), ErrInvalidReference, ErrCodeInvalidReference},
		{"authentication", WrapAuthentication("bad credentials"), ErrAuthentication, ErrCodeAuthentication},
		{"forbidden", WrapForbidden("superadmin only"), ErrForbidden, ErrCodeForbidden},
		{"validation", WrapValidation("year is required"), ErrValidation, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.Equal(t, tt.code, CodeOf(wrapped))
		})
	}
}

func TestOverpaymentError(t *testing.T) {
	err := NewOverpaymentError("COT2026-001", decimal.NewFromInt(45000), decimal.NewFromInt(40000))

	assert.True(t, errors.Is(err, ErrOverpayment))
	assert.True(t, err.Surplus.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, ErrCodeOverpayment, CodeOf(err))
	assert.Contains(t, MessageOf(err), "5000")

	var target *OverpaymentError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, "COT2026-001", target.ContributionID)
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Empty(t, CodeOf(errors.New("boom")))
	assert.Empty(t, MessageOf(errors.New("boom")))
}
