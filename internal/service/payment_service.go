package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/repository"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
	"github.com/fizanakara/membership-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// StatusRecomputer recomputes a contribution status after its payments change.
type StatusRecomputer interface {
	UpdateContributionStatusAfterPayment(ctx context.Context, contributionID string) (*domain.Contribution, error)
}

// PaymentService records payments and never lets a contribution be paid beyond its amount.
type PaymentService struct {
	PaymentRepo      repository.PaymentRepository
	ContributionRepo repository.ContributionRepository
	statuses         StatusRecomputer
	now              func() time.Time
	nonce            func() string
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	contributionRepo repository.ContributionRepository,
	statuses StatusRecomputer,
) *PaymentService {
	return &PaymentService{
		PaymentRepo:      paymentRepo,
		ContributionRepo: contributionRepo,
		statuses:         statuses,
		now:              time.Now,
		nonce:            func() string { return utils.ShortNonce(8) },
	}
}

// WithClock replaces the time source, for tests.
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

// CreatePayment records a payment against a contribution
func (s *PaymentService) CreatePayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.Payment, error) {
	// 1. Reject sub-cent amounts before they get rounded away by the store
	if err := checkMoney("amountPaid", request.AmountPaid); err != nil {
		return nil, err
	}

	// 2. Load the contribution
	contribution, err := s.getContribution(ctx, request.ContributionID)
	if err != nil {
		return nil, err
	}

	// 3. Reject anything that would overshoot the contribution amount
	if err := s.checkBalance(ctx, contribution, decimal.Zero, request.AmountPaid); err != nil {
		return nil, err
	}

	// 4. Build and persist the payment
	now := s.now()
	payment := &domain.Payment{
		ID:             domain.PaymentID(now, s.nonce()),
		AmountPaid:     request.AmountPaid,
		PaymentDate:    now,
		Status:         domain.PaymentStatusCompleted,
		ContributionID: contribution.ID,
		CreatedAt:      now,
	}
	if request.PaymentDate != nil {
		payment.PaymentDate = *request.PaymentDate
	}
	if request.Status != nil {
		payment.Status = *request.Status
	}

	if err := s.PaymentRepo.CreateWithinBalance(ctx, payment); err != nil {
		return nil, s.writeError(ctx, contribution, decimal.Zero, payment.AmountPaid, err)
	}

	slog.Info("payment recorded",
		"paymentId", payment.ID,
		"contributionId", contribution.ID,
		"amount", payment.AmountPaid.String(),
	)

	// 5. Move the contribution status along
	if _, err := s.statuses.UpdateContributionStatusAfterPayment(ctx, contribution.ID); err != nil {
		return nil, err
	}

	return payment, nil
}

// UpdatePayment applies a partial update and re-checks the balance without the payment's previous amount
func (s *PaymentService) UpdatePayment(ctx context.Context, id string, request *domain.UpdatePaymentRequest) (*domain.Payment, error) {
	payment, err := s.getPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := payment.AmountPaid
	if request.AmountPaid != nil {
		if err := checkMoney("amountPaid", *request.AmountPaid); err != nil {
			return nil, err
		}
		payment.AmountPaid = *request.AmountPaid
	}
	if request.PaymentDate != nil {
		payment.PaymentDate = *request.PaymentDate
	}
	if request.Status != nil {
		payment.Status = *request.Status
	}

	contribution, err := s.getContribution(ctx, payment.ContributionID)
	if err != nil {
		return nil, err
	}

	if err := s.checkBalance(ctx, contribution, previous, payment.AmountPaid); err != nil {
		return nil, err
	}

	if err := s.PaymentRepo.UpdateWithinBalance(ctx, payment); err != nil {
		return nil, s.writeError(ctx, contribution, previous, payment.AmountPaid, err)
	}

	slog.Info("payment updated", "paymentId", id, "contributionId", payment.ContributionID)

	if _, err := s.statuses.UpdateContributionStatusAfterPayment(ctx, payment.ContributionID); err != nil {
		return nil, err
	}

	return payment, nil
}

// DeletePayment removes a payment and recomputes the contribution status
func (s *PaymentService) DeletePayment(ctx context.Context, id string) error {
	payment, err := s.getPayment(ctx, id)
	if err != nil {
		return err
	}

	if err := s.PaymentRepo.Delete(ctx, id); err != nil {
		return customError.WrapDatabaseError(err)
	}

	slog.Info("payment deleted", "paymentId", id, "contributionId", payment.ContributionID)

	_, err = s.statuses.UpdateContributionStatusAfterPayment(ctx, payment.ContributionID)
	return err
}

// GetPaymentsByContributionID returns the payments of a contribution in store order
func (s *PaymentService) GetPaymentsByContributionID(ctx context.Context, contributionID string) ([]*domain.Payment, error) {
	if _, err := s.getContribution(ctx, contributionID); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.GetByContributionID(ctx, contributionID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// GetPayment returns a single payment
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return s.getPayment(ctx, id)
}

// checkBalance fails when replacing previous with amount would push the total past the contribution amount.
func (s *PaymentService) checkBalance(ctx context.Context, contribution *domain.Contribution, previous, amount decimal.Decimal) error {
	totalPaid, err := s.PaymentRepo.GetTotalPaid(ctx, contribution.ID)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	projected := totalPaid.Sub(previous).Add(amount)
	if projected.GreaterThan(contribution.Amount) {
		slog.Warn("overpayment rejected",
			"contributionId", contribution.ID,
			"projectedTotal", projected.String(),
			"amount", contribution.Amount.String(),
		)
		return customError.NewOverpaymentError(contribution.ID, projected, contribution.Amount)
	}
	return nil
}

// writeError maps a failed locked write; a lost race against another payment still surfaces as an overpayment.
func (s *PaymentService) writeError(ctx context.Context, contribution *domain.Contribution, previous, amount decimal.Decimal, err error) error {
	switch {
	case errors.Is(err, repository.ErrBalanceExceeded):
		if balanceErr := s.checkBalance(ctx, contribution, previous, amount); balanceErr != nil {
			return balanceErr
		}
		return customError.NewOverpaymentError(contribution.ID, contribution.Amount.Add(amount), contribution.Amount)
	case errors.Is(err, sql.ErrNoRows):
		return customError.WrapNotFound("Contribution", contribution.ID)
	case repository.IsUniqueViolation(err):
		return customError.WrapDuplicate("Payment identifier collision, retry the request")
	}
	return customError.WrapDatabaseError(err)
}

func checkMoney(field string, amount decimal.Decimal) error {
	if !domain.IsMoneyAmount(amount) {
		return customError.WrapValidation(
			fmt.Sprintf("%s must have at most %d decimal places", field, domain.MoneyScale),
		)
	}
	return nil
}

func (s *PaymentService) getContribution(ctx context.Context, id string) (*domain.Contribution, error) {
	contribution, err := s.ContributionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("Contribution", id)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return contribution, nil
}

func (s *PaymentService) getPayment(ctx context.Context, id string) (*domain.Payment, error) {
	payment, err := s.PaymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("Payment", id)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return payment, nil
}
