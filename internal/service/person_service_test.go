package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/mocks"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
)

type personFixture struct {
	persons       *mocks.MockPersonRepository
	sequences     *mocks.MockSequenceRepository
	districts     *mocks.MockReferenceRepository
	tributes      *mocks.MockReferenceRepository
	contributions *mocks.MockContributionCreator
	service       *PersonService
}

func newPersonFixture() *personFixture {
	f := &personFixture{
		persons:       &mocks.MockPersonRepository{},
		sequences:     &mocks.MockSequenceRepository{},
		districts:     &mocks.MockReferenceRepository{ReferenceKind: domain.ReferenceDistrict},
		tributes:      &mocks.MockReferenceRepository{ReferenceKind: domain.ReferenceTribute},
		contributions: &mocks.MockContributionCreator{},
	}
	f.service = NewPersonService(f.persons, f.sequences, f.districts, f.tributes, f.contributions, domain.DefaultContributionPolicy()).
		WithClock(clock)
	return f
}

func createRequest(birth domain.Date) *domain.CreatePersonRequest {
	return &domain.CreatePersonRequest{
		FirstName:   "Hery",
		LastName:    "Rakoto",
		BirthDate:   birth,
		Gender:      domain.GenderMale,
		PhoneNumber: "0341234567",
		Status:      domain.MemberStatusWorker,
		DistrictID:  1,
		TributeID:   2,
	}
}

func (f *personFixture) expectReferences() {
	f.districts.On("GetByID", mock.Anything, int64(1)).Return(&domain.Reference{ID: 1, Name: "Analamanga"}, nil)
	f.tributes.On("GetByID", mock.Anything, int64(2)).Return(&domain.Reference{ID: 2, Name: "Merina"}, nil)
}

func TestCreatePerson_AdultGetsContribution(t *testing.T) {
	// Arrange
	f := newPersonFixture()
	f.persons.On("ExistsDuplicate", mock.Anything, mock.AnythingOfType("domain.PersonKey"), "").Return(false, nil)
	f.expectReferences()
	f.sequences.On("NextMemberSequence", mock.Anything).Return(int64(7), nil)
	f.persons.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Person) bool {
		return p.ID == "MBR00000007" && p.SequenceNumber == 7 && p.Active
	})).Return(nil)
	f.contributions.On("CreateSingleContributionForPerson", mock.Anything, 2025, "MBR00000007").
		Return(&domain.Contribution{ID: "COT2025-001"}, nil)
	f.persons.On("GetByID", mock.Anything, "MBR00000007").
		Return(&domain.Person{ID: "MBR00000007", Active: true}, nil)

	// Act
	person, err := f.service.CreatePerson(context.Background(), createRequest(domain.NewDate(1990, time.April, 2)))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "MBR00000007", person.ID)
	assert.True(t, person.Active)
	f.persons.AssertExpectations(t)
	f.contributions.AssertExpectations(t)
}

func TestCreatePerson_MinorHasNoContribution(t *testing.T) {
	f := newPersonFixture()
	f.persons.On("ExistsDuplicate", mock.Anything, mock.Anything, "").Return(false, nil)
	f.expectReferences()
	f.sequences.On("NextMemberSequence", mock.Anything).Return(int64(8), nil)
	f.persons.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Person) bool { return !p.Active })).Return(nil)
	f.persons.On("GetByID", mock.Anything, "MBR00000008").Return(&domain.Person{ID: "MBR00000008"}, nil)

	_, err := f.service.CreatePerson(context.Background(), createRequest(domain.NewDate(2015, time.January, 9)))

	require.NoError(t, err)
	f.contributions.AssertNotCalled(t, "CreateSingleContributionForPerson", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePerson_ContributionFailureKeepsMember(t *testing.T) {
	f := newPersonFixture()
	f.persons.On("ExistsDuplicate", mock.Anything, mock.Anything, "").Return(false, nil)
	f.expectReferences()
	f.sequences.On("NextMemberSequence", mock.Anything).Return(int64(9), nil)
	f.persons.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.contributions.On("CreateSingleContributionForPerson", mock.Anything, 2025, "MBR00000009").
		Return(nil, customError.WrapDatabaseError(errors.New("connection reset")))
	f.persons.On("GetByID", mock.Anything, "MBR00000009").Return(&domain.Person{ID: "MBR00000009", Active: true}, nil)

	person, err := f.service.CreatePerson(context.Background(), createRequest(domain.NewDate(1985, time.May, 1)))

	require.NoError(t, err)
	assert.Equal(t, "MBR00000009", person.ID)
}

func TestCreatePerson_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *personFixture, req *domain.CreatePersonRequest)
		expected error
	}{
		{
			name: "duplicate member",
			setup: func(f *personFixture, req *domain.CreatePersonRequest) {
				f.persons.On("ExistsDuplicate", mock.Anything, mock.Anything, "").Return(true, nil)
			},
			expected: customError.ErrConflict,
		},
		{
			name: "unknown district",
			setup: func(f *personFixture, req *domain.CreatePersonRequest) {
				f.persons.On("ExistsDuplicate", mock.Anything, mock.Anything, "").Return(false, nil)
				f.districts.On("GetByID", mock.Anything, int64(1)).Return(nil, sql.ErrNoRows)
			},
			expected: customError.ErrInvalidReference,
		},
		{
			name: "unknown parent",
			setup: func(f *personFixture, req *domain.CreatePersonRequest) {
				parent := "MBR00000404"
				req.ParentID = &parent
				f.persons.On("ExistsDuplicate", mock.Anything, mock.Anything, "").Return(false, nil)
				f.expectReferences()
				f.persons.On("Exists", mock.Anything, parent).Return(false, nil)
			},
			expected: customError.ErrInvalidReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPersonFixture()
			req := createRequest(domain.NewDate(1990, time.April, 2))
			tt.setup(f, req)

			_, err := f.service.CreatePerson(context.Background(), req)

			assert.ErrorIs(t, err, tt.expected)
			f.persons.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.sequences.AssertNotCalled(t, "NextMemberSequence", mock.Anything)
		})
	}
}

func TestCreateChild_UnknownParent(t *testing.T) {
	f := newPersonFixture()
	f.persons.On("Exists", mock.Anything, "MBR00000404").Return(false, nil)

	_, err := f.service.CreateChild(context.Background(), "MBR00000404", createRequest(domain.NewDate(2015, time.May, 1)))

	assert.ErrorIs(t, err, customError.ErrNotFound)
}

func TestPromoteToActiveMember(t *testing.T) {
	t.Run("eligible member is promoted once", func(t *testing.T) {
		f := newPersonFixture()
		pending := &domain.Person{
			ID:      "MBR00000003",
			Profile: domain.Profile{BirthDate: domain.NewDate(2007, time.March, 3)},
			Status:  domain.MemberStatusStudent,
		}
		promoted := *pending
		promoted.Active = true
		promoted.Status = domain.MemberStatusWorker

		f.persons.On("GetByID", mock.Anything, pending.ID).Return(pending, nil).Once()
		f.persons.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.Person) bool {
			return p.Active && p.Status == domain.MemberStatusWorker
		})).Return(nil)
		f.contributions.On("CreateSingleContributionForPerson", mock.Anything, 2025, pending.ID).
			Return(nil, customError.WrapDuplicate("already billed"))
		f.persons.On("GetByID", mock.Anything, pending.ID).Return(&promoted, nil)

		person, err := f.service.PromoteToActiveMember(context.Background(), pending.ID)

		require.NoError(t, err)
		assert.True(t, person.Active)

		// A second call finds the member already active and does nothing.
		again, err := f.service.PromoteToActiveMember(context.Background(), pending.ID)

		require.NoError(t, err)
		assert.True(t, again.Active)
		f.persons.AssertNumberOfCalls(t, "Update", 1)
		f.contributions.AssertNumberOfCalls(t, "CreateSingleContributionForPerson", 1)
	})

	t.Run("minor stays inactive", func(t *testing.T) {
		f := newPersonFixture()
		minor := &domain.Person{ID: "MBR00000004", Profile: domain.Profile{BirthDate: domain.NewDate(2012, time.March, 3)}}
		f.persons.On("GetByID", mock.Anything, minor.ID).Return(minor, nil)

		person, err := f.service.PromoteToActiveMember(context.Background(), minor.ID)

		require.NoError(t, err)
		assert.False(t, person.Active)
		f.persons.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestUpdatePerson_PhoneTaken(t *testing.T) {
	f := newPersonFixture()
	current := &domain.Person{ID: "MBR00000001", Profile: domain.Profile{PhoneNumber: "0340000000"}}
	phone := "0341111111"

	f.persons.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	f.persons.On("ExistsByPhone", mock.Anything, phone, current.ID).Return(true, nil)

	_, err := f.service.UpdatePerson(context.Background(), current.ID, &domain.UpdatePersonRequest{PhoneNumber: &phone})

	assert.ErrorIs(t, err, customError.ErrConflict)
	f.persons.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdatePerson_BirthDateMakesActive(t *testing.T) {
	f := newPersonFixture()
	current := &domain.Person{ID: "MBR00000001", Profile: domain.Profile{BirthDate: domain.NewDate(2015, time.May, 1)}, DistrictID: 1, TributeID: 2}
	birth := domain.NewDate(1995, time.May, 1)

	f.persons.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	f.persons.On("ExistsDuplicate", mock.Anything, mock.Anything, current.ID).Return(false, nil)
	f.persons.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.Person) bool { return p.Active })).Return(nil)
	f.contributions.On("CreateSingleContributionForPerson", mock.Anything, 2025, current.ID).
		Return(&domain.Contribution{ID: "COT2025-010"}, nil)

	person, err := f.service.UpdatePerson(context.Background(), current.ID, &domain.UpdatePersonRequest{BirthDate: &birth})

	require.NoError(t, err)
	assert.True(t, person.Active)
	f.contributions.AssertExpectations(t)
}

func TestReparentPerson(t *testing.T) {
	t.Run("descendant as parent is a cycle", func(t *testing.T) {
		f := newPersonFixture()
		grandchild := "MBR00000003"
		f.persons.On("Exists", mock.Anything, "MBR00000001").Return(true, nil)
		f.persons.On("Exists", mock.Anything, grandchild).Return(true, nil)
		f.persons.On("GetAncestorIDs", mock.Anything, grandchild).
			Return([]string{grandchild, "MBR00000002", "MBR00000001"}, nil)

		_, err := f.service.ReparentPerson(context.Background(), "MBR00000001", &grandchild)

		assert.ErrorIs(t, err, customError.ErrConflict)
		assert.Equal(t, customError.ErrCodeFamilyCycle, customError.CodeOf(err))
		f.persons.AssertNotCalled(t, "UpdateParent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("self as parent is a cycle", func(t *testing.T) {
		f := newPersonFixture()
		self := "MBR00000001"
		f.persons.On("Exists", mock.Anything, self).Return(true, nil)
		f.persons.On("GetAncestorIDs", mock.Anything, self).Return([]string{self}, nil)

		_, err := f.service.ReparentPerson(context.Background(), self, &self)

		assert.Equal(t, customError.ErrCodeFamilyCycle, customError.CodeOf(err))
	})

	t.Run("unknown parent", func(t *testing.T) {
		f := newPersonFixture()
		parent := "MBR00000404"
		f.persons.On("Exists", mock.Anything, "MBR00000001").Return(true, nil)
		f.persons.On("Exists", mock.Anything, parent).Return(false, nil)

		_, err := f.service.ReparentPerson(context.Background(), "MBR00000001", &parent)

		assert.ErrorIs(t, err, customError.ErrInvalidReference)
	})

	t.Run("detach to root", func(t *testing.T) {
		f := newPersonFixture()
		f.persons.On("Exists", mock.Anything, "MBR00000002").Return(true, nil)
		f.persons.On("UpdateParent", mock.Anything, "MBR00000002", (*string)(nil)).Return(nil)
		f.persons.On("GetByID", mock.Anything, "MBR00000002").Return(&domain.Person{ID: "MBR00000002"}, nil)

		person, err := f.service.ReparentPerson(context.Background(), "MBR00000002", nil)

		require.NoError(t, err)
		assert.Nil(t, person.ParentID)
		f.persons.AssertExpectations(t)
	})

	t.Run("move under sibling", func(t *testing.T) {
		f := newPersonFixture()
		sibling := "MBR00000005"
		f.persons.On("Exists", mock.Anything, "MBR00000002").Return(true, nil)
		f.persons.On("Exists", mock.Anything, sibling).Return(true, nil)
		f.persons.On("GetAncestorIDs", mock.Anything, sibling).Return([]string{sibling, "MBR00000001"}, nil)
		f.persons.On("UpdateParent", mock.Anything, "MBR00000002", &sibling).Return(nil)
		f.persons.On("GetByID", mock.Anything, "MBR00000002").
			Return(&domain.Person{ID: "MBR00000002", ParentID: &sibling}, nil)

		person, err := f.service.ReparentPerson(context.Background(), "MBR00000002", &sibling)

		require.NoError(t, err)
		assert.Equal(t, sibling, *person.ParentID)
	})
}

func TestDeletePerson_NotFound(t *testing.T) {
	f := newPersonFixture()
	f.persons.On("Delete", mock.Anything, "MBR00000404").Return(sql.ErrNoRows)

	err := f.service.DeletePerson(context.Background(), "MBR00000404")

	assert.ErrorIs(t, err, customError.ErrNotFound)
}

func TestListByDistrict_UnknownDistrict(t *testing.T) {
	f := newPersonFixture()
	f.districts.On("GetByID", mock.Anything, int64(42)).Return(nil, sql.ErrNoRows)

	_, err := f.service.ListByDistrict(context.Background(), 42)

	assert.ErrorIs(t, err, customError.ErrNotFound)
	f.persons.AssertNotCalled(t, "ListByDistrict", mock.Anything, mock.Anything)
}
