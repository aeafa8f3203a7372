package mocks

import (
	"context"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPersonRepository struct {
	mock.Mock
}

func (m *MockPersonRepository) Create(ctx context.Context, person *domain.Person) error {
	args := m.Called(ctx, person)
	return args.Error(0)
}

func (m *MockPersonRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockPersonRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPersonRepository) List(ctx context.Context) ([]*domain.Person, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Person), args.Error(1)
}

func (m *MockPersonRepository) ListByDistrict(ctx context.Context, districtID int64) ([]*domain.Person, error) {
	args := m.Called(ctx, districtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Person), args.Error(1)
}

func (m *MockPersonRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.Person, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Person), args.Error(1)
}

func (m *MockPersonRepository) ListEligibleForYear(ctx context.Context, year, adultAge int) ([]*domain.Person, error) {
	args := m.Called(ctx, year, adultAge)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Person), args.Error(1)
}

func (m *MockPersonRepository) ExistsDuplicate(ctx context.Context, key domain.PersonKey, excludeID string) (bool, error) {
	args := m.Called(ctx, key, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPersonRepository) ExistsByPhone(ctx context.Context, phone string, excludeID string) (bool, error) {
	args := m.Called(ctx, phone, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPersonRepository) Update(ctx context.Context, person *domain.Person) error {
	args := m.Called(ctx, person)
	return args.Error(0)
}

func (m *MockPersonRepository) UpdateParent(ctx context.Context, id string, parentID *string) error {
	args := m.Called(ctx, id, parentID)
	return args.Error(0)
}

func (m *MockPersonRepository) GetAncestorIDs(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPersonRepository) GetFamilyTree(ctx context.Context, rootID string) ([]*domain.FamilyNode, error) {
	args := m.Called(ctx, rootID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FamilyNode), args.Error(1)
}

func (m *MockPersonRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPersonRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockContributionRepository struct {
	mock.Mock
}

func (m *MockContributionRepository) Create(ctx context.Context, contribution *domain.Contribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

func (m *MockContributionRepository) GetByID(ctx context.Context, id string) (*domain.Contribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) List(ctx context.Context) ([]*domain.Contribution, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListByMemberAndYear(ctx context.Context, memberID string, year int) ([]*domain.Contribution, error) {
	args := m.Called(ctx, memberID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]*domain.Contribution, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ExistsForMemberYear(ctx context.Context, memberID string, year int, childID *string) (bool, error) {
	args := m.Called(ctx, memberID, year, childID)
	return args.Bool(0), args.Error(1)
}

func (m *MockContributionRepository) Update(ctx context.Context, contribution *domain.Contribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

func (m *MockContributionRepository) UpdateStatus(ctx context.Context, id string, status domain.ContributionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockContributionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreateWithinBalance(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) UpdateWithinBalance(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByContributionID(ctx context.Context, contributionID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, contributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByContributionIDs(ctx context.Context, contributionIDs []string) ([]*domain.Payment, error) {
	args := m.Called(ctx, contributionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetTotalPaid(ctx context.Context, contributionID string) (decimal.Decimal, error) {
	args := m.Called(ctx, contributionID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSequenceRepository struct {
	mock.Mock
}

func (m *MockSequenceRepository) NextAdminSequence(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSequenceRepository) NextMemberSequence(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSequenceRepository) NextContributionSequence(ctx context.Context, year int) (int64, error) {
	args := m.Called(ctx, year)
	return args.Get(0).(int64), args.Error(1)
}

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}

func (m *MockAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}

func (m *MockAdminRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminRepository) ExistsWithRole(ctx context.Context, role domain.Role) (bool, error) {
	args := m.Called(ctx, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminRepository) List(ctx context.Context) ([]*domain.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Admin), args.Error(1)
}

func (m *MockAdminRepository) Update(ctx context.Context, admin *domain.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminRepository) UpdateWithNewPassword(ctx context.Context, admin *domain.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *MockTokenRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) ReplaceResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetResetToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PasswordResetToken), args.Error(1)
}

func (m *MockTokenRepository) DeleteResetToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) RedeemResetToken(ctx context.Context, token string, adminID string, passwordHash string) error {
	args := m.Called(ctx, token, adminID, passwordHash)
	return args.Error(0)
}

func (m *MockTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type MockReferenceRepository struct {
	mock.Mock
	ReferenceKind domain.ReferenceKind
}

func (m *MockReferenceRepository) Kind() domain.ReferenceKind {
	return m.ReferenceKind
}

func (m *MockReferenceRepository) Create(ctx context.Context, name string) (*domain.Reference, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reference), args.Error(1)
}

func (m *MockReferenceRepository) GetByID(ctx context.Context, id int64) (*domain.Reference, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reference), args.Error(1)
}

func (m *MockReferenceRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferenceRepository) List(ctx context.Context) ([]*domain.Reference, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reference), args.Error(1)
}

func (m *MockReferenceRepository) Rename(ctx context.Context, id int64, name string) (*domain.Reference, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reference), args.Error(1)
}

func (m *MockReferenceRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReferenceRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
