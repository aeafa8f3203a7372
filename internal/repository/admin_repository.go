package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const adminSelect = `
	SELECT id, sequence_number, first_name, last_name, birth_date, gender, image_url, phone_number,
		email, password, verified, role, created_at, updated_at
	FROM admins
`

type adminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	query := `
		INSERT INTO admins (id, sequence_number, first_name, last_name, birth_date, gender, image_url, phone_number,
			email, password, verified, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		admin.ID,
		admin.SequenceNumber,
		admin.FirstName,
		admin.LastName,
		admin.BirthDate,
		admin.Gender,
		admin.ImageURL,
		admin.PhoneNumber,
		admin.Email,
		admin.PasswordHash,
		admin.Verified,
		admin.Role,
		admin.CreatedAt,
		admin.UpdatedAt,
	)

	return err
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	var admin domain.Admin
	err := r.db.GetContext(ctx, &admin, adminSelect+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	return &admin, nil
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var admin domain.Admin
	err := r.db.GetContext(ctx, &admin, adminSelect+` WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return nil, err
	}

	return &admin, nil
}

func (r *adminRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE LOWER(email) = LOWER($1) AND id <> $2)`, email, excludeID)
	return exists, err
}

func (r *adminRepository) ExistsWithRole(ctx context.Context, role domain.Role) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM admins WHERE role = $1)`, role)
	return exists, err
}

func (r *adminRepository) List(ctx context.Context) ([]*domain.Admin, error) {
	admins := []*domain.Admin{}
	err := r.db.SelectContext(ctx, &admins, adminSelect+` ORDER BY sequence_number`)
	if err != nil {
		return nil, err
	}

	return admins, nil
}

const updateAdminQuery = `
	UPDATE admins
	SET first_name = $2, last_name = $3, birth_date = $4, gender = $5, image_url = $6, phone_number = $7,
		email = $8, password = $9, verified = $10, updated_at = $11
	WHERE id = $1
`

func updateAdminArgs(admin *domain.Admin) []interface{} {
	return []interface{}{
		admin.ID,
		admin.FirstName,
		admin.LastName,
		admin.BirthDate,
		admin.Gender,
		admin.ImageURL,
		admin.PhoneNumber,
		admin.Email,
		admin.PasswordHash,
		admin.Verified,
		admin.UpdatedAt,
	}
}

func (r *adminRepository) Update(ctx context.Context, admin *domain.Admin) error {
	admin.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, updateAdminQuery, updateAdminArgs(admin)...)
	return err
}

func (r *adminRepository) UpdateWithNewPassword(ctx context.Context, admin *domain.Admin) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	admin.UpdatedAt = time.Now()
	if _, err = tx.ExecContext(ctx, updateAdminQuery, updateAdminArgs(admin)...); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE admin_id = $1`, admin.ID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *adminRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE admin_id = $1`, id); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE admin_id = $1`, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
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

	return tx.Commit()
}
