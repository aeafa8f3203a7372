package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/repository"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
)

// ContributionCreator raises the yearly contribution of one member.
type ContributionCreator interface {
	CreateSingleContributionForPerson(ctx context.Context, year int, memberID string) (*domain.Contribution, error)
}

// PersonService maintains members, their family links and their promotion to active membership.
type PersonService struct {
	PersonRepo    repository.PersonRepository
	SequenceRepo  repository.SequenceRepository
	DistrictRepo  repository.ReferenceRepository
	TributeRepo   repository.ReferenceRepository
	contributions ContributionCreator
	policy        domain.ContributionPolicy
	now           func() time.Time
}

func NewPersonService(
	personRepo repository.PersonRepository,
	sequenceRepo repository.SequenceRepository,
	districtRepo repository.ReferenceRepository,
	tributeRepo repository.ReferenceRepository,
	contributions ContributionCreator,
	policy domain.ContributionPolicy,
) *PersonService {
	return &PersonService{
		PersonRepo:    personRepo,
		SequenceRepo:  sequenceRepo,
		DistrictRepo:  districtRepo,
		TributeRepo:   tributeRepo,
		contributions: contributions,
		policy:        policy,
		now:           time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *PersonService) WithClock(now func() time.Time) *PersonService {
	s.now = now
	return s
}

// CreatePerson registers a member and raises this year's contribution when the member is already of age
func (s *PersonService) CreatePerson(ctx context.Context, request *domain.CreatePersonRequest) (*domain.Person, error) {
	now := s.now()
	person := &domain.Person{
		Profile: domain.Profile{
			FirstName:   request.FirstName,
			LastName:    request.LastName,
			BirthDate:   request.BirthDate,
			Gender:      request.Gender,
			ImageURL:    request.ImageURL,
			PhoneNumber: request.PhoneNumber,
		},
		Status:     request.Status,
		DistrictID: request.DistrictID,
		TributeID:  request.TributeID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if request.ParentID != nil && *request.ParentID != "" {
		parentID := *request.ParentID
		person.ParentID = &parentID
	}

	// 1. Duplicate check
	if err := s.checkDuplicate(ctx, person, ""); err != nil {
		return nil, err
	}

	// 2. Resolve references
	if err := s.checkReference(ctx, s.DistrictRepo, person.DistrictID); err != nil {
		return nil, err
	}
	if err := s.checkReference(ctx, s.TributeRepo, person.TributeID); err != nil {
		return nil, err
	}
	if person.ParentID != nil {
		exists, err := s.PersonRepo.Exists(ctx, *person.ParentID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		if !exists {
			return nil, customError.WrapInvalidReference("Person", *person.ParentID)
		}
	}

	// 3. Eligibility and identity
	year := now.Year()
	person.Active = s.policy.IsEligible(person.BirthDate, year)

	seq, err := s.SequenceRepo.NextMemberSequence(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	person.SequenceNumber = seq
	person.ID = domain.MemberID(seq)

	if err := s.PersonRepo.Create(ctx, person); err != nil {
		switch {
		case repository.IsUniqueViolation(err):
			return nil, customError.WrapDuplicate(fmt.Sprintf("Member %s already exists", person.ID))
		case repository.IsForeignKeyViolation(err):
			return nil, customError.WrapInvalidReference("Person", person.ID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("member created", "memberId", person.ID, "active", person.Active, "parentId", person.ParentID)

	// 4. Members of age start contributing right away. The member stays created if this fails;
	// the contribution can be raised later through the single-member endpoint.
	if person.Active {
		if _, err := s.contributions.CreateSingleContributionForPerson(ctx, year, person.ID); err != nil {
			slog.Error("failed to raise first contribution", "memberId", person.ID, "year", year, "error", err)
		}
	}

	return s.GetPerson(ctx, person.ID)
}

// CreateChild registers a member under an existing parent
func (s *PersonService) CreateChild(ctx context.Context, parentID string, request *domain.CreatePersonRequest) (*domain.Person, error) {
	if err := s.ensureExists(ctx, parentID); err != nil {
		return nil, err
	}

	request.ParentID = &parentID
	return s.CreatePerson(ctx, request)
}

// PromoteToActiveMember activates an eligible member; calling it again is a no-op
func (s *PersonService) PromoteToActiveMember(ctx context.Context, id string) (*domain.Person, error) {
	person, err := s.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	year := s.now().Year()
	if person.Active || !s.policy.IsEligible(person.BirthDate, year) {
		return person, nil
	}

	person.Active = true
	person.Status = s.policy.AdultStatus
	if err := s.PersonRepo.Update(ctx, person); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("member promoted", "memberId", id, "year", year, "status", person.Status)

	if _, err := s.contributions.CreateSingleContributionForPerson(ctx, year, id); err != nil {
		if !errors.Is(err, customError.ErrConflict) {
			return nil, err
		}
	}

	return s.GetPerson(ctx, id)
}

// UpdatePerson applies a partial update; the parent link is changed through ReparentPerson only
func (s *PersonService) UpdatePerson(ctx context.Context, id string, request *domain.UpdatePersonRequest) (*domain.Person, error) {
	person, err := s.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive := person.Active

	if request.FirstName != nil {
		person.FirstName = *request.FirstName
	}
	if request.LastName != nil {
		person.LastName = *request.LastName
	}
	if request.Gender != nil {
		person.Gender = *request.Gender
	}
	if request.ImageURL != nil {
		person.ImageURL = *request.ImageURL
	}
	if request.Status != nil {
		person.Status = *request.Status
	}
	if request.BirthDate != nil {
		person.BirthDate = *request.BirthDate
		person.Active = s.policy.IsEligible(person.BirthDate, s.now().Year())
	}

	if request.PhoneNumber != nil && *request.PhoneNumber != person.PhoneNumber {
		taken, err := s.PersonRepo.ExistsByPhone(ctx, *request.PhoneNumber, id)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		if taken {
			return nil, customError.WrapDuplicate(fmt.Sprintf("Phone number %s is already used by another member", *request.PhoneNumber))
		}
		person.PhoneNumber = *request.PhoneNumber
	}

	if request.DistrictID != nil {
		if err := s.checkReference(ctx, s.DistrictRepo, *request.DistrictID); err != nil {
			return nil, err
		}
		person.DistrictID = *request.DistrictID
	}
	if request.TributeID != nil {
		if err := s.checkReference(ctx, s.TributeRepo, *request.TributeID); err != nil {
			return nil, err
		}
		person.TributeID = *request.TributeID
	}

	if err := s.checkDuplicate(ctx, person, id); err != nil {
		return nil, err
	}

	if err := s.PersonRepo.Update(ctx, person); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("member updated", "memberId", id, "active", person.Active)

	if !wasActive && person.Active {
		year := s.now().Year()
		if _, err := s.contributions.CreateSingleContributionForPerson(ctx, year, id); err != nil && !errors.Is(err, customError.ErrConflict) {
			return nil, err
		}
	}

	return s.GetPerson(ctx, id)
}

// ReparentPerson moves a member under a new parent, or makes it a root when parentID is nil
func (s *PersonService) ReparentPerson(ctx context.Context, id string, parentID *string) (*domain.Person, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}

	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	if parentID != nil {
		exists, err := s.PersonRepo.Exists(ctx, *parentID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		if !exists {
			return nil, customError.WrapInvalidReference("Person", *parentID)
		}

		// The new parent must not sit in the member's own subtree.
		ancestors, err := s.PersonRepo.GetAncestorIDs(ctx, *parentID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		for _, ancestor := range ancestors {
			if ancestor == id {
				slog.Warn("family cycle rejected", "memberId", id, "parentId", *parentID)
				return nil, customError.WrapFamilyCycle(id, *parentID)
			}
		}
	}

	if err := s.PersonRepo.UpdateParent(ctx, id, parentID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("member re-parented", "memberId", id, "parentId", parentID)
	return s.GetPerson(ctx, id)
}

// GetPerson returns a member
func (s *PersonService) GetPerson(ctx context.Context, id string) (*domain.Person, error) {
	person, err := s.PersonRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("Person", id)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return person, nil
}

// ListPersons returns all members
func (s *PersonService) ListPersons(ctx context.Context) ([]*domain.Person, error) {
	persons, err := s.PersonRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return persons, nil
}

// ListByDistrict returns the members of a district
func (s *PersonService) ListByDistrict(ctx context.Context, districtID int64) ([]*domain.Person, error) {
	if _, err := s.DistrictRepo.GetByID(ctx, districtID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("District", strconv.FormatInt(districtID, 10))
		}
		return nil, customError.WrapDatabaseError(err)
	}

	persons, err := s.PersonRepo.ListByDistrict(ctx, districtID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return persons, nil
}

// GetChildrenByParentID returns the direct children of a member
func (s *PersonService) GetChildrenByParentID(ctx context.Context, parentID string) ([]*domain.Person, error) {
	if err := s.ensureExists(ctx, parentID); err != nil {
		return nil, err
	}

	children, err := s.PersonRepo.ListChildren(ctx, parentID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return children, nil
}

// GetFamilyTree returns a member and all of its descendants
func (s *PersonService) GetFamilyTree(ctx context.Context, id string) ([]*domain.FamilyNode, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}

	nodes, err := s.PersonRepo.GetFamilyTree(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return nodes, nil
}

// DeletePerson removes a member with its contributions; its children move up to its parent
func (s *PersonService) DeletePerson(ctx context.Context, id string) error {
	if err := s.PersonRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapNotFound("Person", id)
		}
		return customError.WrapDatabaseError(err)
	}

	slog.Info("member deleted", "memberId", id)
	return nil
}

// DeleteAllPersons removes every member, contribution and payment
func (s *PersonService) DeleteAllPersons(ctx context.Context) (int64, error) {
	deleted, err := s.PersonRepo.DeleteAll(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	slog.Warn("all members deleted", "count", deleted)
	return deleted, nil
}

func (s *PersonService) ensureExists(ctx context.Context, id string) error {
	exists, err := s.PersonRepo.Exists(ctx, id)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if !exists {
		return customError.WrapNotFound("Person", id)
	}
	return nil
}

func (s *PersonService) checkDuplicate(ctx context.Context, person *domain.Person, excludeID string) error {
	duplicate, err := s.PersonRepo.ExistsDuplicate(ctx, person.DuplicateKey(), excludeID)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if duplicate {
		slog.Warn("duplicate member rejected", "firstName", person.FirstName, "lastName", person.LastName)
		return customError.WrapDuplicate(fmt.Sprintf("Member %s already exists", person.FullName()))
	}
	return nil
}

func (s *PersonService) checkReference(ctx context.Context, repo repository.ReferenceRepository, id int64) error {
	if _, err := repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapInvalidReference(referenceLabel(repo.Kind()), strconv.FormatInt(id, 10))
		}
		return customError.WrapDatabaseError(err)
	}
	return nil
}
