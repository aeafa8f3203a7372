package repository

import (
	"context"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const contributionSelect = `
	SELECT c.id, c.year, c.amount, c.status, c.due_date, c.member_id,
		p.first_name || ' ' || p.last_name AS member_name,
		c.child_id, c.sequence_suffix, c.created_at, c.updated_at
	FROM contributions c
	JOIN persons p ON p.id = c.member_id
`

type contributionRepository struct {
	db *sqlx.DB
}

func NewContributionRepository(db *sqlx.DB) ContributionRepository {
	return &contributionRepository{db: db}
}

func (r *contributionRepository) Create(ctx context.Context, contribution *domain.Contribution) error {
	query := `
		INSERT INTO contributions (id, year, amount, status, due_date, member_id, child_id, sequence_suffix, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		contribution.ID,
		contribution.Year,
		contribution.Amount,
		contribution.Status,
		contribution.DueDate,
		contribution.MemberID,
		contribution.ChildID,
		contribution.SequenceSuffix,
		contribution.CreatedAt,
		contribution.UpdatedAt,
	)

	return err
}

func (r *contributionRepository) GetByID(ctx context.Context, id string) (*domain.Contribution, error) {
	var contribution domain.Contribution
	err := r.db.GetContext(ctx, &contribution, contributionSelect+` WHERE c.id = $1`, id)
	if err != nil {
		return nil, err
	}

	return &contribution, nil
}

func (r *contributionRepository) List(ctx context.Context) ([]*domain.Contribution, error) {
	return r.selectContributions(ctx, contributionSelect+` ORDER BY c.year DESC, c.id`)
}

func (r *contributionRepository) ListByMemberAndYear(ctx context.Context, memberID string, year int) ([]*domain.Contribution, error) {
	return r.selectContributions(ctx, contributionSelect+` WHERE c.member_id = $1 AND c.year = $2 ORDER BY c.id`, memberID, year)
}

func (r *contributionRepository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]*domain.Contribution, error) {
	query := contributionSelect + `
		WHERE c.due_date < $1 AND c.status <> 'PAID'
		ORDER BY c.due_date
	`
	return r.selectContributions(ctx, query, asOf)
}

func (r *contributionRepository) selectContributions(ctx context.Context, query string, args ...interface{}) ([]*domain.Contribution, error) {
	contributions := []*domain.Contribution{}
	err := r.db.SelectContext(ctx, &contributions, query, args...)
	if err != nil {
		return nil, err
	}

	return contributions, nil
}

func (r *contributionRepository) ExistsForMemberYear(ctx context.Context, memberID string, year int, childID *string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM contributions
			WHERE member_id = $1 AND year = $2 AND child_id IS NOT DISTINCT FROM $3
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, memberID, year, childID)
	return exists, err
}

func (r *contributionRepository) Update(ctx context.Context, contribution *domain.Contribution) error {
	query := `
		UPDATE contributions
		SET amount = $2, status = $3, member_id = $4, child_id = $5, updated_at = $6
		WHERE id = $1
	`

	contribution.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		contribution.ID,
		contribution.Amount,
		contribution.Status,
		contribution.MemberID,
		contribution.ChildID,
		contribution.UpdatedAt,
	)

	return err
}

func (r *contributionRepository) UpdateStatus(ctx context.Context, id string, status domain.ContributionStatus) error {
	query := `
		UPDATE contributions
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

func (r *contributionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM payments WHERE contribution_id = $1`, id); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM contributions WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}
