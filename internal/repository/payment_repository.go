package repository

import (
	"context"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const paymentSelect = `
	SELECT id, amount_paid, payment_date, status, contribution_id, created_at
	FROM payments
`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateWithinBalance(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = checkBalance(ctx, tx, payment.ContributionID, "", payment.AmountPaid); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (id, amount_paid, payment_date, status, contribution_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.ExecContext(ctx, query,
		payment.ID,
		payment.AmountPaid,
		payment.PaymentDate,
		payment.Status,
		payment.ContributionID,
		payment.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *paymentRepository) UpdateWithinBalance(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = checkBalance(ctx, tx, payment.ContributionID, payment.ID, payment.AmountPaid); err != nil {
		return err
	}

	query := `
		UPDATE payments
		SET amount_paid = $2, payment_date = $3, status = $4
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, query,
		payment.ID,
		payment.AmountPaid,
		payment.PaymentDate,
		payment.Status,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// checkBalance locks the contribution row so concurrent payment writes serialize on it.
func checkBalance(ctx context.Context, tx *sqlx.Tx, contributionID, excludePaymentID string, amount decimal.Decimal) error {
	var contributionAmount decimal.Decimal
	err := tx.GetContext(ctx, &contributionAmount,
		`SELECT amount FROM contributions WHERE id = $1 FOR UPDATE`, contributionID)
	if err != nil {
		return err
	}

	var paid decimal.Decimal
	err = tx.GetContext(ctx, &paid, `
		SELECT COALESCE(SUM(amount_paid), 0)
		FROM payments
		WHERE contribution_id = $1 AND id <> $2
	`, contributionID, excludePaymentID)
	if err != nil {
		return err
	}

	if paid.Add(amount).GreaterThan(contributionAmount) {
		return ErrBalanceExceeded
	}

	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, paymentSelect+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetByContributionID(ctx context.Context, contributionID string) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	err := r.db.SelectContext(ctx, &payments, paymentSelect+` WHERE contribution_id = $1`, contributionID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) GetByContributionIDs(ctx context.Context, contributionIDs []string) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	if len(contributionIDs) == 0 {
		return payments, nil
	}

	err := r.db.SelectContext(ctx, &payments,
		paymentSelect+` WHERE contribution_id = ANY($1) ORDER BY payment_date`, pq.Array(contributionIDs))
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, contributionID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(amount_paid), 0) FROM payments WHERE contribution_id = $1`, contributionID)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return err
}
