package handler

import (
	"context"

	"github.com/fizanakara/membership-engine/internal/auth"
	"github.com/fizanakara/membership-engine/internal/domain"
)

type PersonService interface {
	CreatePerson(ctx context.Context, request *domain.CreatePersonRequest) (*domain.Person, error)
	CreateChild(ctx context.Context, parentID string, request *domain.CreatePersonRequest) (*domain.Person, error)
	PromoteToActiveMember(ctx context.Context, id string) (*domain.Person, error)
	UpdatePerson(ctx context.Context, id string, request *domain.UpdatePersonRequest) (*domain.Person, error)
	ReparentPerson(ctx context.Context, id string, parentID *string) (*domain.Person, error)
	GetPerson(ctx context.Context, id string) (*domain.Person, error)
	ListPersons(ctx context.Context) ([]*domain.Person, error)
	ListByDistrict(ctx context.Context, districtID int64) ([]*domain.Person, error)
	GetChildrenByParentID(ctx context.Context, parentID string) ([]*domain.Person, error)
	GetFamilyTree(ctx context.Context, id string) ([]*domain.FamilyNode, error)
	DeletePerson(ctx context.Context, id string) error
	DeleteAllPersons(ctx context.Context) (int64, error)
}

type ContributionService interface {
	CreateContributionsForYear(ctx context.Context, year int) ([]*domain.Contribution, error)
	CreateSingleContributionForPerson(ctx context.Context, year int, memberID string) (*domain.Contribution, error)
	UpdateContribution(ctx context.Context, id string, request *domain.UpdateContributionRequest) (*domain.ContributionDetail, error)
	DeleteContribution(ctx context.Context, id string) error
	GetContribution(ctx context.Context, id string) (*domain.ContributionDetail, error)
	ListContributions(ctx context.Context) ([]*domain.ContributionDetail, error)
	ListByMemberAndYear(ctx context.Context, memberID string, year int) ([]*domain.ContributionDetail, error)
}

type PaymentService interface {
	CreatePayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, id string, request *domain.UpdatePaymentRequest) (*domain.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	GetPaymentsByContributionID(ctx context.Context, contributionID string) ([]*domain.Payment, error)
}

type AdminService interface {
	Register(ctx context.Context, request *domain.RegisterAdminRequest) (*domain.Admin, error)
	GetAdmin(ctx context.Context, id string) (*domain.Admin, error)
	ListAdmins(ctx context.Context) ([]*domain.Admin, error)
	UpdateAdmin(ctx context.Context, actor *auth.Principal, id string, request *domain.UpdateAdminRequest) (*domain.Admin, error)
	DeleteAdmin(ctx context.Context, actor *auth.Principal, id string) error
}

type AuthService interface {
	Login(ctx context.Context, request *domain.LoginRequest) (*domain.LoginResponse, error)
	Refresh(ctx context.Context, token string) (*domain.RefreshResponse, error)
	Logout(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, request *domain.ResetPasswordRequest) error
}

type ReferenceService interface {
	Create(ctx context.Context, request *domain.ReferenceRequest) (*domain.Reference, error)
	Get(ctx context.Context, id int64) (*domain.Reference, error)
	List(ctx context.Context) ([]*domain.Reference, error)
	Rename(ctx context.Context, id int64, request *domain.ReferenceRequest) (*domain.Reference, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
}
