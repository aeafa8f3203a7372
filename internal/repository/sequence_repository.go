package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type sequenceRepository struct {
	db *sqlx.DB
}

func NewSequenceRepository(db *sqlx.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) NextAdminSequence(ctx context.Context) (int64, error) {
	return r.nextval(ctx, `SELECT nextval('admin_seq')`)
}

func (r *sequenceRepository) NextMemberSequence(ctx context.Context) (int64, error) {
	return r.nextval(ctx, `SELECT nextval('mbr_seq')`)
}

// NextContributionSequence increments the per-year counter atomically, starting at 1.
func (r *sequenceRepository) NextContributionSequence(ctx context.Context, year int) (int64, error) {
	query := `
		INSERT INTO contribution_sequences (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = contribution_sequences.last_value + 1
		RETURNING last_value
	`
	return r.nextval(ctx, query, year)
}

func (r *sequenceRepository) nextval(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var value int64
	if err := r.db.GetContext(ctx, &value, query, args...); err != nil {
		return 0, err
	}
	return value, nil
}
