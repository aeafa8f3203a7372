package mocks

import (
	"context"

	"github.com/fizanakara/membership-engine/internal/auth"
	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockPersonService struct {
	mock.Mock
}

func (m *MockPersonService) CreatePerson(ctx context.Context, request *domain.CreatePersonRequest) (*domain.Person, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockPersonService) CreateChild(ctx context.Context, parentID string, request *domain.CreatePersonRequest) (*domain.Person, error) {
	args := m.Called(ctx, parentID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockPersonService) PromoteToActiveMember(ctx context.Context, id string) (*domain.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockPersonService) UpdatePerson(ctx context.Context, id string, request *domain.UpdatePersonRequest) (*domain.Person, error) {
	args := m.Called(ctx, id, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockPersonService) ReparentPerson(ctx context.Context, id string, parentID *string) (*domain.Person, error) {
	args := m.Called(ctx, id, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockPersonService) GetPerson(ctx context.Context, id string) (*domain.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockPersonService) ListPersons(ctx context.Context) ([]*domain.Person, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Person), args.Error(1)
}

func (m *MockPersonService) ListByDistrict(ctx context.Context, districtID int64) ([]*domain.Person, error) {
	args := m.Called(ctx, districtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Person), args.Error(1)
}

func (m *MockPersonService) GetChildrenByParentID(ctx context.Context, parentID string) ([]*domain.Person, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Person), args.Error(1)
}

func (m *MockPersonService) GetFamilyTree(ctx context.Context, id string) ([]*domain.FamilyNode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FamilyNode), args.Error(1)
}

func (m *MockPersonService) DeletePerson(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPersonService) DeleteAllPersons(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockContributionService struct {
	mock.Mock
}

func (m *MockContributionService) CreateContributionsForYear(ctx context.Context, year int) ([]*domain.Contribution, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionService) CreateSingleContributionForPerson(ctx context.Context, year int, memberID string) (*domain.Contribution, error) {
	args := m.Called(ctx, year, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

func (m *MockContributionService) UpdateContribution(ctx context.Context, id string, request *domain.UpdateContributionRequest) (*domain.ContributionDetail, error) {
	args := m.Called(ctx, id, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionDetail), args.Error(1)
}

func (m *MockContributionService) DeleteContribution(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContributionService) GetContribution(ctx context.Context, id string) (*domain.ContributionDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionDetail), args.Error(1)
}

func (m *MockContributionService) ListContributions(ctx context.Context) ([]*domain.ContributionDetail, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ContributionDetail), args.Error(1)
}

func (m *MockContributionService) ListByMemberAndYear(ctx context.Context, memberID string, year int) ([]*domain.ContributionDetail, error) {
	args := m.Called(ctx, memberID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ContributionDetail), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreatePayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) UpdatePayment(ctx context.Context, id string, request *domain.UpdatePaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, id, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) DeletePayment(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) GetPaymentsByContributionID(ctx context.Context, contributionID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, contributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Register(ctx context.Context, request *domain.RegisterAdminRequest) (*domain.Admin, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}

func (m *MockAdminService) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}

func (m *MockAdminService) ListAdmins(ctx context.Context) ([]*domain.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Admin), args.Error(1)
}

func (m *MockAdminService) UpdateAdmin(ctx context.Context, actor *auth.Principal, id string, request *domain.UpdateAdminRequest) (*domain.Admin, error) {
	args := m.Called(ctx, actor, id, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}

func (m *MockAdminService) DeleteAdmin(ctx context.Context, actor *auth.Principal, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, request *domain.LoginRequest) (*domain.LoginResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginResponse), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, token string) (*domain.RefreshResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshResponse), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, request *domain.ResetPasswordRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

type MockReferenceService struct {
	mock.Mock
}

func (m *MockReferenceService) Create(ctx context.Context, request *domain.ReferenceRequest) (*domain.Reference, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reference), args.Error(1)
}

func (m *MockReferenceService) Get(ctx context.Context, id int64) (*domain.Reference, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reference), args.Error(1)
}

func (m *MockReferenceService) List(ctx context.Context) ([]*domain.Reference, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reference), args.Error(1)
}

func (m *MockReferenceService) Rename(ctx context.Context, id int64, request *domain.ReferenceRequest) (*domain.Reference, error) {
	args := m.Called(ctx, id, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reference), args.Error(1)
}

func (m *MockReferenceService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReferenceService) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
