package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

// districts and tributes share one shape; the table name comes from a fixed set.
type referenceRepository struct {
	db    *sqlx.DB
	kind  domain.ReferenceKind
	table string
}

func NewDistrictRepository(db *sqlx.DB) ReferenceRepository {
	return &referenceRepository{db: db, kind: domain.ReferenceDistrict, table: "districts"}
}

func NewTributeRepository(db *sqlx.DB) ReferenceRepository {
	return &referenceRepository{db: db, kind: domain.ReferenceTribute, table: "tributes"}
}

func (r *referenceRepository) Kind() domain.ReferenceKind {
	return r.kind
}

func (r *referenceRepository) Create(ctx context.Context, name string) (*domain.Reference, error) {
	query := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id, name, created_at`, r.table)

	var ref domain.Reference
	if err := r.db.GetContext(ctx, &ref, query, name); err != nil {
		return nil, err
	}

	return &ref, nil
}

func (r *referenceRepository) GetByID(ctx context.Context, id int64) (*domain.Reference, error) {
	query := fmt.Sprintf(`SELECT id, name, created_at FROM %s WHERE id = $1`, r.table)

	var ref domain.Reference
	if err := r.db.GetContext(ctx, &ref, query, id); err != nil {
		return nil, err
	}

	return &ref, nil
}

func (r *referenceRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE LOWER(name) = LOWER($1) AND id <> $2)`, r.table)

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, name, excludeID)
	return exists, err
}

func (r *referenceRepository) List(ctx context.Context) ([]*domain.Reference, error) {
	query := fmt.Sprintf(`SELECT id, name, created_at FROM %s ORDER BY name`, r.table)

	refs := []*domain.Reference{}
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, err
	}

	return refs, nil
}

func (r *referenceRepository) Rename(ctx context.Context, id int64, name string) (*domain.Reference, error) {
	query := fmt.Sprintf(`UPDATE %s SET name = $2 WHERE id = $1 RETURNING id, name, created_at`, r.table)

	var ref domain.Reference
	if err := r.db.GetContext(ctx, &ref, query, id, name); err != nil {
		return nil, err
	}

	return &ref, nil
}

func (r *referenceRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *referenceRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, r.table))
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
