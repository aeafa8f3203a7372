package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fizanakara/membership-engine/internal/auth"
	"github.com/fizanakara/membership-engine/internal/config"
	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/repository"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
)

// AdminService manages back-office accounts.
type AdminService struct {
	AdminRepo    repository.AdminRepository
	SequenceRepo repository.SequenceRepository
	hash         func(string) (string, error)
	now          func() time.Time
}

func NewAdminService(adminRepo repository.AdminRepository, sequenceRepo repository.SequenceRepository) *AdminService {
	return &AdminService{
		AdminRepo:    adminRepo,
		SequenceRepo: sequenceRepo,
		hash:         auth.HashPassword,
		now:          time.Now,
	}
}

// Register creates an unverified ADMIN account
func (s *AdminService) Register(ctx context.Context, request *domain.RegisterAdminRequest) (*domain.Admin, error) {
	email := normalizeEmail(request.Email)

	// 1. Email must be free
	if err := s.checkEmail(ctx, email, ""); err != nil {
		return nil, err
	}

	// 2. Hash the password
	hash, err := s.hash(request.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 3. Assign the identifier and persist
	seq, err := s.SequenceRepo.NextAdminSequence(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	admin := &domain.Admin{
		ID:             domain.AdminID(seq),
		SequenceNumber: seq,
		Profile: domain.Profile{
			FirstName:   request.FirstName,
			LastName:    request.LastName,
			BirthDate:   request.BirthDate,
			Gender:      request.Gender,
			ImageURL:    request.ImageURL,
			PhoneNumber: request.PhoneNumber,
		},
		Email:        email,
		PasswordHash: hash,
		Verified:     false,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.AdminRepo.Create(ctx, admin); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, customError.WrapDuplicate(fmt.Sprintf("Email %s is already registered", email))
		}
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("admin registered", "adminId", admin.ID, "email", email)
	return admin, nil
}

// EnsureSuperAdmin creates the first SUPERADMIN from bootstrap settings when none exists
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, bootstrap config.BootstrapConfig) (*domain.Admin, error) {
	if bootstrap.Email == "" || bootstrap.Password == "" {
		slog.Debug("no bootstrap credentials, skipping superadmin creation")
		return nil, nil
	}

	exists, err := s.AdminRepo.ExistsWithRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if exists {
		return nil, nil
	}

	birthDate, err := domain.ParseDate(bootstrap.BirthDate)
	if err != nil {
		return nil, customError.WrapValidation(err.Error())
	}

	hash, err := s.hash(bootstrap.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	seq, err := s.SequenceRepo.NextAdminSequence(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	admin := &domain.Admin{
		ID:             domain.AdminID(seq),
		SequenceNumber: seq,
		Profile: domain.Profile{
			FirstName:   bootstrap.FirstName,
			LastName:    bootstrap.LastName,
			BirthDate:   birthDate,
			Gender:      domain.GenderMale,
			PhoneNumber: bootstrap.Phone,
		},
		Email:        normalizeEmail(bootstrap.Email),
		PasswordHash: hash,
		Verified:     true,
		Role:         domain.RoleSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.AdminRepo.Create(ctx, admin); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, customError.WrapDuplicate(fmt.Sprintf("Email %s is already registered", admin.Email))
		}
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("superadmin created", "adminId", admin.ID, "email", admin.Email)
	return admin, nil
}

func (s *AdminService) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	admin, err := s.AdminRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("Admin", id)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return admin, nil
}

func (s *AdminService) ListAdmins(ctx context.Context) ([]*domain.Admin, error) {
	admins, err := s.AdminRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return admins, nil
}

// UpdateAdmin applies a partial update; only a SUPERADMIN may change another account or its verification
func (s *AdminService) UpdateAdmin(ctx context.Context, actor *auth.Principal, id string, request *domain.UpdateAdminRequest) (*domain.Admin, error) {
	if actor.AdminID != id && actor.Role != domain.RoleSuperAdmin {
		return nil, customError.WrapForbidden("admins may only update their own account")
	}
	if request.Verified != nil && actor.Role != domain.RoleSuperAdmin {
		return nil, customError.WrapForbidden("only a superadmin may change verification")
	}

	admin, err := s.GetAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	if request.FirstName != nil {
		admin.FirstName = *request.FirstName
	}
	if request.LastName != nil {
		admin.LastName = *request.LastName
	}
	if request.BirthDate != nil {
		admin.BirthDate = *request.BirthDate
	}
	if request.Gender != nil {
		admin.Gender = *request.Gender
	}
	if request.ImageURL != nil {
		admin.ImageURL = *request.ImageURL
	}
	if request.PhoneNumber != nil {
		admin.PhoneNumber = *request.PhoneNumber
	}
	if request.Verified != nil {
		admin.Verified = *request.Verified
	}

	if request.Email != nil {
		email := normalizeEmail(*request.Email)
		if email != admin.Email {
			if err := s.checkEmail(ctx, email, id); err != nil {
				return nil, err
			}
			admin.Email = email
		}
	}

	if request.Password != nil {
		hash, err := s.hash(*request.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		admin.PasswordHash = hash
	}

	admin.UpdatedAt = s.now()
	save := s.AdminRepo.Update
	if request.Password != nil {
		save = s.AdminRepo.UpdateWithNewPassword
	}
	if err := save(ctx, admin); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, customError.WrapDuplicate(fmt.Sprintf("Email %s is already registered", admin.Email))
		}
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("admin updated", "adminId", id, "by", actor.AdminID)
	return admin, nil
}

// DeleteAdmin removes an account and every token it holds
func (s *AdminService) DeleteAdmin(ctx context.Context, actor *auth.Principal, id string) error {
	if actor.AdminID == id {
		return customError.WrapForbidden("admins cannot delete their own account")
	}

	if err := s.AdminRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapNotFound("Admin", id)
		}
		return customError.WrapDatabaseError(err)
	}

	slog.Info("admin deleted", "adminId", id, "by", actor.AdminID)
	return nil
}

func (s *AdminService) checkEmail(ctx context.Context, email, excludeID string) error {
	taken, err := s.AdminRepo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if taken {
		return customError.WrapDuplicate(fmt.Sprintf("Email %s is already registered", email))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
