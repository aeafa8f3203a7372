package repository

import (
	"context"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/shopspring/decimal"
)

// PersonRepository defines the interface for member data operations
type PersonRepository interface {
	// Create inserts a new member
	Create(ctx context.Context, person *domain.Person) error

	// GetByID retrieves a member with its district, tribute and parent names resolved
	GetByID(ctx context.Context, id string) (*domain.Person, error)

	// Exists reports whether a member with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)

	// List retrieves all members
	List(ctx context.Context) ([]*domain.Person, error)

	// ListByDistrict retrieves the members of a district
	ListByDistrict(ctx context.Context, districtID int64) ([]*domain.Person, error)

	// ListChildren retrieves the direct children of a member
	ListChildren(ctx context.Context, parentID string) ([]*domain.Person, error)

	// ListEligibleForYear retrieves members reaching adultAge in year, or already active
	ListEligibleForYear(ctx context.Context, year, adultAge int) ([]*domain.Person, error)

	// ExistsDuplicate checks for another member sharing the duplicate key
	ExistsDuplicate(ctx context.Context, key domain.PersonKey, excludeID string) (bool, error)

	// ExistsByPhone checks whether another member uses the phone number
	ExistsByPhone(ctx context.Context, phone string, excludeID string) (bool, error)

	// Update persists profile, status, grouping and active flag changes
	Update(ctx context.Context, person *domain.Person) error

	// UpdateParent sets or clears the parent link of a member
	UpdateParent(ctx context.Context, id string, parentID *string) error

	// GetAncestorIDs returns the member ID followed by all of its ancestors
	GetAncestorIDs(ctx context.Context, id string) ([]string, error)

	// GetFamilyTree returns the member and all of its descendants with their depth
	GetFamilyTree(ctx context.Context, rootID string) ([]*domain.FamilyNode, error)

	// Delete removes a member, its contributions and payments, and re-parents its children
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every member together with all contributions and payments
	DeleteAll(ctx context.Context) (int64, error)
}

// ContributionRepository defines the interface for contribution data operations
type ContributionRepository interface {
	// Create inserts a new contribution
	Create(ctx context.Context, contribution *domain.Contribution) error

	// GetByID retrieves a contribution with its member name
	GetByID(ctx context.Context, id string) (*domain.Contribution, error)

	// List retrieves all contributions
	List(ctx context.Context) ([]*domain.Contribution, error)

	// ListByMemberAndYear retrieves the contributions of a member for a year
	ListByMemberAndYear(ctx context.Context, memberID string, year int) ([]*domain.Contribution, error)

	// ListOverdueCandidates retrieves unpaid contributions whose due date is before asOf
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]*domain.Contribution, error)

	// ExistsForMemberYear checks for a contribution with the exact (member, year, childId) key
	ExistsForMemberYear(ctx context.Context, memberID string, year int, childID *string) (bool, error)

	// Update persists amount, status, member and child changes
	Update(ctx context.Context, contribution *domain.Contribution) error

	// UpdateStatus sets the status of a contribution
	UpdateStatus(ctx context.Context, id string, status domain.ContributionStatus) error

	// Delete removes a contribution and its payments
	Delete(ctx context.Context, id string) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// CreateWithinBalance inserts a payment unless the contribution total would exceed its amount
	CreateWithinBalance(ctx context.Context, payment *domain.Payment) error

	// UpdateWithinBalance updates a payment unless the contribution total would exceed its amount
	UpdateWithinBalance(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByContributionID retrieves all payments for a contribution
	GetByContributionID(ctx context.Context, contributionID string) ([]*domain.Payment, error)

	// GetByContributionIDs retrieves the payments of several contributions
	GetByContributionIDs(ctx context.Context, contributionIDs []string) ([]*domain.Payment, error)

	// GetTotalPaid calculates total amount paid for a contribution
	GetTotalPaid(ctx context.Context, contributionID string) (decimal.Decimal, error)

	// Delete removes a payment
	Delete(ctx context.Context, id string) error
}

// SequenceRepository issues the numbers used to build record identifiers
type SequenceRepository interface {
	// NextAdminSequence returns the next value of admin_seq
	NextAdminSequence(ctx context.Context) (int64, error)

	// NextMemberSequence returns the next value of mbr_seq
	NextMemberSequence(ctx context.Context) (int64, error)

	// NextContributionSequence returns the next suffix number for a contribution year
	NextContributionSequence(ctx context.Context, year int) (int64, error)
}

// AdminRepository defines the interface for admin data operations
type AdminRepository interface {
	// Create inserts a new admin
	Create(ctx context.Context, admin *domain.Admin) error

	// GetByID retrieves an admin
	GetByID(ctx context.Context, id string) (*domain.Admin, error)

	// GetByEmail retrieves an admin by email
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)

	// ExistsByEmail checks whether another admin uses the email
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)

	// ExistsWithRole checks whether at least one admin holds the role
	ExistsWithRole(ctx context.Context, role domain.Role) (bool, error)

	// List retrieves all admins
	List(ctx context.Context) ([]*domain.Admin, error)

	// Update persists profile, credential and verification changes
	Update(ctx context.Context, admin *domain.Admin) error

	// UpdateWithNewPassword persists the changes and drops the admin's refresh tokens in one transaction
	UpdateWithNewPassword(ctx context.Context, admin *domain.Admin) error

	// Delete removes an admin after its refresh and reset tokens
	Delete(ctx context.Context, id string) error
}

// TokenRepository defines the interface for refresh and password reset tokens
type TokenRepository interface {
	// CreateRefreshToken stores a refresh token
	CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error

	// GetRefreshToken retrieves a refresh token
	GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error)

	// DeleteRefreshToken removes a refresh token
	DeleteRefreshToken(ctx context.Context, token string) error

	// ReplaceResetToken removes any reset token of the admin and stores the new one
	ReplaceResetToken(ctx context.Context, token *domain.PasswordResetToken) error

	// GetResetToken retrieves a password reset token
	GetResetToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)

	// DeleteResetToken removes a password reset token
	DeleteResetToken(ctx context.Context, token string) error

	// RedeemResetToken sets the admin password and removes the token and the admin's refresh tokens in one transaction
	RedeemResetToken(ctx context.Context, token string, adminID string, passwordHash string) error

	// DeleteExpired removes refresh and reset tokens that expired before now
	DeleteExpired(ctx context.Context, now time.Time) (refresh int64, reset int64, err error)
}

// ReferenceRepository defines the interface for district and tribute data operations
type ReferenceRepository interface {
	// Kind reports which grouping the repository manages
	Kind() domain.ReferenceKind

	// Create inserts a new reference
	Create(ctx context.Context, name string) (*domain.Reference, error)

	// GetByID retrieves a reference
	GetByID(ctx context.Context, id int64) (*domain.Reference, error)

	// ExistsByName checks whether another reference uses the name
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)

	// List retrieves all references ordered by name
	List(ctx context.Context) ([]*domain.Reference, error)

	// Rename changes the name of a reference
	Rename(ctx context.Context, id int64, name string) (*domain.Reference, error)

	// Delete removes a reference
	Delete(ctx context.Context, id int64) error

	// DeleteAll removes every reference of this kind
	DeleteAll(ctx context.Context) (int64, error)
}
