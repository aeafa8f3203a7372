package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fizanakara/membership-engine/internal/auth"
	"github.com/fizanakara/membership-engine/internal/config"
	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/mocks"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
)

func newAdminService() (*AdminService, *mocks.MockAdminRepository, *mocks.MockSequenceRepository) {
	admins := &mocks.MockAdminRepository{}
	sequences := &mocks.MockSequenceRepository{}
	service := NewAdminService(admins, sequences)
	service.now = clock
	service.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	return service, admins, sequences
}

func TestRegister_Success(t *testing.T) {
	service, admins, sequences := newAdminService()

	admins.On("ExistsByEmail", mock.Anything, "new@example.org", "").Return(false, nil)
	sequences.On("NextAdminSequence", mock.Anything).Return(int64(3), nil)
	admins.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Admin) bool {
		return a.ID == "ADM00000003" && a.Role == domain.RoleAdmin && !a.Verified && a.PasswordHash == "hashed:s3cret-pass"
	})).Return(nil)

	admin, err := service.Register(context.Background(), &domain.RegisterAdminRequest{
		FirstName: "Tiana",
		LastName:  "Rabe",
		BirthDate: domain.NewDate(1992, time.August, 8),
		Gender:    domain.GenderFemale,
		Email:     "New@Example.org",
		Password:  "s3cret-pass",
	})

	require.NoError(t, err)
	assert.Equal(t, "new@example.org", admin.Email)
	admins.AssertExpectations(t)
}

func TestRegister_EmailTaken(t *testing.T) {
	service, admins, sequences := newAdminService()
	admins.On("ExistsByEmail", mock.Anything, "taken@example.org", "").Return(true, nil)

	_, err := service.Register(context.Background(), &domain.RegisterAdminRequest{Email: "taken@example.org", Password: "s3cret-pass"})

	assert.ErrorIs(t, err, customError.ErrConflict)
	sequences.AssertNotCalled(t, "NextAdminSequence", mock.Anything)
}

func TestEnsureSuperAdmin(t *testing.T) {
	bootstrap := config.BootstrapConfig{
		Email:     "root@example.org",
		Password:  "bootstrap-pass",
		FirstName: "Super",
		LastName:  "Admin",
		BirthDate: "1980-01-01",
	}

	t.Run("creates the first superadmin", func(t *testing.T) {
		service, admins, sequences := newAdminService()
		admins.On("ExistsWithRole", mock.Anything, domain.RoleSuperAdmin).Return(false, nil)
		sequences.On("NextAdminSequence", mock.Anything).Return(int64(1), nil)
		admins.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Admin) bool {
			return a.ID == "ADM00000001" && a.Role == domain.RoleSuperAdmin && a.Verified
		})).Return(nil)

		admin, err := service.EnsureSuperAdmin(context.Background(), bootstrap)

		require.NoError(t, err)
		require.NotNil(t, admin)
		assert.Equal(t, "1980-01-01", admin.BirthDate.String())
	})

	t.Run("existing superadmin is kept", func(t *testing.T) {
		service, admins, sequences := newAdminService()
		admins.On("ExistsWithRole", mock.Anything, domain.RoleSuperAdmin).Return(true, nil)

		admin, err := service.EnsureSuperAdmin(context.Background(), bootstrap)

		require.NoError(t, err)
		assert.Nil(t, admin)
		sequences.AssertNotCalled(t, "NextAdminSequence", mock.Anything)
	})

	t.Run("no credentials configured", func(t *testing.T) {
		service, admins, _ := newAdminService()

		admin, err := service.EnsureSuperAdmin(context.Background(), config.BootstrapConfig{})

		require.NoError(t, err)
		assert.Nil(t, admin)
		admins.AssertNotCalled(t, "ExistsWithRole", mock.Anything, mock.Anything)
	})
}

func TestUpdateAdmin(t *testing.T) {
	admin := &auth.Principal{AdminID: "ADM00000002", Role: domain.RoleAdmin}
	super := &auth.Principal{AdminID: "ADM00000001", Role: domain.RoleSuperAdmin}

	t.Run("admin cannot edit someone else", func(t *testing.T) {
		service, admins, _ := newAdminService()
		name := "Other"

		_, err := service.UpdateAdmin(context.Background(), admin, "ADM00000003", &domain.UpdateAdminRequest{FirstName: &name})

		assert.ErrorIs(t, err, customError.ErrForbidden)
		admins.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("admin cannot verify itself", func(t *testing.T) {
		service, _, _ := newAdminService()
		verified := true

		_, err := service.UpdateAdmin(context.Background(), admin, admin.AdminID, &domain.UpdateAdminRequest{Verified: &verified})

		assert.ErrorIs(t, err, customError.ErrForbidden)
	})

	t.Run("superadmin verifies and admin password is rehashed", func(t *testing.T) {
		service, admins, _ := newAdminService()
		verified := true
		password := "brand-new-pass"
		stored := &domain.Admin{ID: "ADM00000002", Email: "soa@example.org", PasswordHash: "old"}

		admins.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
		admins.On("UpdateWithNewPassword", mock.Anything, mock.MatchedBy(func(a *domain.Admin) bool {
			return a.Verified && a.PasswordHash == "hashed:brand-new-pass"
		})).Return(nil)

		updated, err := service.UpdateAdmin(context.Background(), super, stored.ID, &domain.UpdateAdminRequest{
			Verified: &verified,
			Password: &password,
		})

		require.NoError(t, err)
		assert.True(t, updated.Verified)
		admins.AssertExpectations(t)
		admins.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("profile change keeps sessions", func(t *testing.T) {
		service, admins, _ := newAdminService()
		name := "Hery"
		admins.On("GetByID", mock.Anything, admin.AdminID).Return(&domain.Admin{ID: admin.AdminID, Email: "soa@example.org"}, nil)
		admins.On("Update", mock.Anything, mock.MatchedBy(func(a *domain.Admin) bool {
			return a.FirstName == "Hery"
		})).Return(nil)

		_, err := service.UpdateAdmin(context.Background(), admin, admin.AdminID, &domain.UpdateAdminRequest{FirstName: &name})

		require.NoError(t, err)
		admins.AssertExpectations(t)
		admins.AssertNotCalled(t, "UpdateWithNewPassword", mock.Anything, mock.Anything)
	})

	t.Run("email collision", func(t *testing.T) {
		service, admins, _ := newAdminService()
		email := "taken@example.org"
		admins.On("GetByID", mock.Anything, admin.AdminID).Return(&domain.Admin{ID: admin.AdminID, Email: "soa@example.org"}, nil)
		admins.On("ExistsByEmail", mock.Anything, email, admin.AdminID).Return(true, nil)

		_, err := service.UpdateAdmin(context.Background(), admin, admin.AdminID, &domain.UpdateAdminRequest{Email: &email})

		assert.ErrorIs(t, err, customError.ErrConflict)
		admins.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestDeleteAdmin(t *testing.T) {
	super := &auth.Principal{AdminID: "ADM00000001", Role: domain.RoleSuperAdmin}

	t.Run("self delete is forbidden", func(t *testing.T) {
		service, admins, _ := newAdminService()

		err := service.DeleteAdmin(context.Background(), super, super.AdminID)

		assert.ErrorIs(t, err, customError.ErrForbidden)
		admins.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("unknown admin", func(t *testing.T) {
		service, admins, _ := newAdminService()
		admins.On("Delete", mock.Anything, "ADM00000404").Return(sql.ErrNoRows)

		err := service.DeleteAdmin(context.Background(), super, "ADM00000404")

		assert.ErrorIs(t, err, customError.ErrNotFound)
	})

	t.Run("deletes", func(t *testing.T) {
		service, admins, _ := newAdminService()
		admins.On("Delete", mock.Anything, "ADM00000002").Return(nil)

		assert.NoError(t, service.DeleteAdmin(context.Background(), super, "ADM00000002"))
		admins.AssertExpectations(t)
	})
}
