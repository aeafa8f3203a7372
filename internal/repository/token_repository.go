package repository

import (
	"context"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, admin_id, expiry_date, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	return r.db.GetContext(ctx, &token.ID, query,
		token.Token,
		token.AdminID,
		token.ExpiryDate,
		token.CreatedAt,
	)
}

func (r *tokenRepository) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, token, admin_id, expiry_date, created_at
		FROM refresh_tokens
		WHERE token = $1
	`

	var rt domain.RefreshToken
	err := r.db.GetContext(ctx, &rt, query, token)
	if err != nil {
		return nil, err
	}

	return &rt, nil
}

func (r *tokenRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (r *tokenRepository) ReplaceResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE admin_id = $1`, token.AdminID); err != nil {
		return err
	}

	query := `
		INSERT INTO password_reset_tokens (token, admin_id, expiry_date)
		VALUES ($1, $2, $3)
	`
	if _, err = tx.ExecContext(ctx, query, token.Token, token.AdminID, token.ExpiryDate); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *tokenRepository) GetResetToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	var prt domain.PasswordResetToken
	err := r.db.GetContext(ctx, &prt,
		`SELECT token, admin_id, expiry_date FROM password_reset_tokens WHERE token = $1`, token)
	if err != nil {
		return nil, err
	}

	return &prt, nil
}

func (r *tokenRepository) DeleteResetToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token = $1`, token)
	return err
}

func (r *tokenRepository) RedeemResetToken(ctx context.Context, token string, adminID string, passwordHash string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `UPDATE admins SET password = $2, updated_at = $3 WHERE id = $1`,
		adminID, passwordHash, time.Now()); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token = $1`, token); err != nil {
		return err
	}

	// Sessions opened with the old password end here.
	if _, err = tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE admin_id = $1`, adminID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *tokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	refresh, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expiry_date < $1`, now)
	if err != nil {
		return 0, 0, err
	}
	reset, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expiry_date < $1`, now)
	if err != nil {
		return 0, 0, err
	}

	refreshCount, _ := refresh.RowsAffected()
	resetCount, _ := reset.RowsAffected()

	return refreshCount, resetCount, tx.Commit()
}
