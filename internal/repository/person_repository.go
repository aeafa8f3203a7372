package repository

import (
	"context"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const personColumns = `
	p.id, p.sequence_number, p.first_name, p.last_name, p.birth_date, p.gender, p.image_url, p.phone_number,
	p.status, p.district_id, d.name AS district_name, p.tribute_id, t.name AS tribute_name,
	p.parent_id, pp.first_name || ' ' || pp.last_name AS parent_name,
	(SELECT COUNT(*) FROM persons c WHERE c.parent_id = p.id) AS children_count,
	p.is_active_member, p.created_at, p.updated_at
`

const personFrom = `
	FROM persons p
	JOIN districts d ON d.id = p.district_id
	JOIN tributes t ON t.id = p.tribute_id
	LEFT JOIN persons pp ON pp.id = p.parent_id
`

type personRepository struct {
	db *sqlx.DB
}

func NewPersonRepository(db *sqlx.DB) PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) Create(ctx context.Context, person *domain.Person) error {
	query := `
		INSERT INTO persons (id, sequence_number, first_name, last_name, birth_date, gender, image_url, phone_number,
			status, district_id, tribute_id, parent_id, is_active_member, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		person.ID,
		person.SequenceNumber,
		person.FirstName,
		person.LastName,
		person.BirthDate,
		person.Gender,
		person.ImageURL,
		person.PhoneNumber,
		person.Status,
		person.DistrictID,
		person.TributeID,
		person.ParentID,
		person.Active,
		person.CreatedAt,
		person.UpdatedAt,
	)

	return err
}

func (r *personRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	query := `SELECT ` + personColumns + personFrom + ` WHERE p.id = $1`

	var person domain.Person
	err := r.db.GetContext(ctx, &person, query, id)
	if err != nil {
		return nil, err
	}

	return &person, nil
}

func (r *personRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM persons WHERE id = $1)`, id)
	return exists, err
}

func (r *personRepository) List(ctx context.Context) ([]*domain.Person, error) {
	query := `SELECT ` + personColumns + personFrom + ` ORDER BY p.sequence_number`
	return r.selectPersons(ctx, query)
}

func (r *personRepository) ListByDistrict(ctx context.Context, districtID int64) ([]*domain.Person, error) {
	query := `SELECT ` + personColumns + personFrom + ` WHERE p.district_id = $1 ORDER BY p.sequence_number`
	return r.selectPersons(ctx, query, districtID)
}

func (r *personRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.Person, error) {
	query := `SELECT ` + personColumns + personFrom + ` WHERE p.parent_id = $1 ORDER BY p.birth_date`
	return r.selectPersons(ctx, query, parentID)
}

func (r *personRepository) ListEligibleForYear(ctx context.Context, year, adultAge int) ([]*domain.Person, error) {
	query := `SELECT ` + personColumns + personFrom + `
		WHERE ($1::int - EXTRACT(YEAR FROM p.birth_date)::int) >= $2 OR p.is_active_member
		ORDER BY p.sequence_number
	`
	return r.selectPersons(ctx, query, year, adultAge)
}

func (r *personRepository) selectPersons(ctx context.Context, query string, args ...interface{}) ([]*domain.Person, error) {
	persons := []*domain.Person{}
	err := r.db.SelectContext(ctx, &persons, query, args...)
	if err != nil {
		return nil, err
	}

	return persons, nil
}

func (r *personRepository) ExistsDuplicate(ctx context.Context, key domain.PersonKey, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM persons
			WHERE first_name = $1 AND last_name = $2 AND birth_date = $3 AND phone_number = $4
				AND district_id = $5 AND tribute_id = $6 AND status = $7 AND id <> $8
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query,
		key.FirstName,
		key.LastName,
		key.BirthDate,
		key.PhoneNumber,
		key.DistrictID,
		key.TributeID,
		key.Status,
		excludeID,
	)
	return exists, err
}

func (r *personRepository) ExistsByPhone(ctx context.Context, phone string, excludeID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM persons WHERE phone_number = $1 AND id <> $2)`, phone, excludeID)
	return exists, err
}

func (r *personRepository) Update(ctx context.Context, person *domain.Person) error {
	query := `
		UPDATE persons
		SET first_name = $2, last_name = $3, birth_date = $4, gender = $5, image_url = $6, phone_number = $7,
			status = $8, district_id = $9, tribute_id = $10, is_active_member = $11, updated_at = $12
		WHERE id = $1
	`

	person.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		person.ID,
		person.FirstName,
		person.LastName,
		person.BirthDate,
		person.Gender,
		person.ImageURL,
		person.PhoneNumber,
		person.Status,
		person.DistrictID,
		person.TributeID,
		person.Active,
		person.UpdatedAt,
	)

	return err
}

func (r *personRepository) UpdateParent(ctx context.Context, id string, parentID *string) error {
	query := `
		UPDATE persons
		SET parent_id = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, parentID, time.Now())
	return err
}

func (r *personRepository) GetAncestorIDs(ctx context.Context, id string) ([]string, error) {
	// UNION rather than UNION ALL stops the walk if stored data already contains a loop.
	query := `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id FROM persons WHERE id = $1
			UNION
			SELECT p.id, p.parent_id FROM persons p JOIN ancestors a ON p.id = a.parent_id
		)
		SELECT id FROM ancestors
	`

	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, query, id)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *personRepository) GetFamilyTree(ctx context.Context, rootID string) ([]*domain.FamilyNode, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT id, parent_id, first_name, last_name, birth_date, status, is_active_member, 0 AS depth
			FROM persons WHERE id = $1
			UNION
			SELECT p.id, p.parent_id, p.first_name, p.last_name, p.birth_date, p.status, p.is_active_member, t.depth + 1
			FROM persons p JOIN tree t ON p.parent_id = t.id
			WHERE t.depth < 64
		)
		SELECT id, parent_id, first_name, last_name, birth_date, status, is_active_member, depth
		FROM tree
		ORDER BY depth, last_name, first_name
	`

	nodes := []*domain.FamilyNode{}
	err := r.db.SelectContext(ctx, &nodes, query, rootID)
	if err != nil {
		return nil, err
	}

	return nodes, nil
}

func (r *personRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var parentID *string
	err = tx.GetContext(ctx, &parentID, `SELECT parent_id FROM persons WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM payments
		WHERE contribution_id IN (SELECT id FROM contributions WHERE member_id = $1 OR child_id = $1)
	`, id); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM contributions WHERE member_id = $1 OR child_id = $1`, id); err != nil {
		return err
	}

	// Children move up to the grandparent, or become roots.
	if _, err = tx.ExecContext(ctx, `UPDATE persons SET parent_id = $2, updated_at = $3 WHERE parent_id = $1`,
		id, parentID, time.Now()); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *personRepository) DeleteAll(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM payments`); err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM contributions`); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM persons`)
	if err != nil {
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return deleted, tx.Commit()
}
