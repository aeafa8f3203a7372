package domain

import (
	"fmt"
	"time"

	"github.com/fizanakara/membership-engine/pkg/utils"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

type MemberStatus string

const (
	MemberStatusStudent MemberStatus = "STUDENT"
	MemberStatusWorker  MemberStatus = "WORKER"
)

// Profile holds the personal fields shared by admins and members.
type Profile struct {
	FirstName   string `json:"firstName" db:"first_name"`
	LastName    string `json:"lastName" db:"last_name"`
	BirthDate   Date   `json:"birthDate" db:"birth_date"`
	Gender      Gender `json:"gender" db:"gender"`
	ImageURL    string `json:"imageUrl" db:"image_url"`
	PhoneNumber string `json:"phoneNumber" db:"phone_number"`
}

func (p Profile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Person represents a tracked member, possibly a minor linked to a parent.
type Person struct {
	ID             string `json:"id" db:"id"`
	SequenceNumber int64  `json:"sequenceNumber" db:"sequence_number"`
	Profile
	Status       MemberStatus `json:"status" db:"status"`
	DistrictID   int64        `json:"districtId" db:"district_id"`
	DistrictName string       `json:"districtName" db:"district_name"`
	TributeID    int64        `json:"tributeId" db:"tribute_id"`
	TributeName  string       `json:"tributeName" db:"tribute_name"`
	ParentID     *string      `json:"parentId,omitempty" db:"parent_id"`
	ParentName   *string      `json:"parentName,omitempty" db:"parent_name"`
	// ChildrenCount is resolved from the parent_id reverse index, never stored.
	ChildrenCount int       `json:"childrenCount" db:"children_count"`
	Active        bool      `json:"isActiveMember" db:"is_active_member"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// MemberID builds the public member identifier from its sequence number.
func MemberID(seq int64) string {
	return fmt.Sprintf("MBR%08d", seq)
}

// AgeAtYear returns the age reached on December 31st of year.
func AgeAtYear(birthDate Date, year int) int {
	return utils.YearsBetween(birthDate.Time, utils.EndOfYear(year))
}

func (p *Person) AgeAtYear(year int) int {
	return AgeAtYear(p.BirthDate, year)
}

// DuplicateKey returns the field set used to detect duplicate members.
func (p *Person) DuplicateKey() PersonKey {
	return PersonKey{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		BirthDate:   p.BirthDate,
		PhoneNumber: p.PhoneNumber,
		DistrictID:  p.DistrictID,
		TributeID:   p.TributeID,
		Status:      p.Status,
	}
}

type PersonKey struct {
	FirstName   string
	LastName    string
	BirthDate   Date
	PhoneNumber string
	DistrictID  int64
	TributeID   int64
	Status      MemberStatus
}

// FamilyNode is one row of a family tree walk.
type FamilyNode struct {
	ID        string       `json:"id" db:"id"`
	ParentID  *string      `json:"parentId,omitempty" db:"parent_id"`
	FirstName string       `json:"firstName" db:"first_name"`
	LastName  string       `json:"lastName" db:"last_name"`
	BirthDate Date         `json:"birthDate" db:"birth_date"`
	Status    MemberStatus `json:"status" db:"status"`
	Active    bool         `json:"isActiveMember" db:"is_active_member"`
	Depth     int          `json:"depth" db:"depth"`
}

// DTOs for requests

type CreatePersonRequest struct {
	FirstName   string       `json:"firstName" validate:"required,max=250"`
	LastName    string       `json:"lastName" validate:"required,max=250"`
	BirthDate   Date         `json:"birthDate" validate:"required"`
	Gender      Gender       `json:"gender" validate:"required,oneof=MALE FEMALE"`
	ImageURL    string       `json:"imageUrl" validate:"max=250"`
	PhoneNumber string       `json:"phoneNumber" validate:"required,max=13"`
	Status      MemberStatus `json:"status" validate:"required,oneof=STUDENT WORKER"`
	DistrictID  int64        `json:"districtId" validate:"required,gt=0"`
	TributeID   int64        `json:"tributeId" validate:"required,gt=0"`
	ParentID    *string      `json:"parentId,omitempty" validate:"omitempty,max=11"`
}

// UpdatePersonRequest is a partial update; the parent link cannot be changed here.
type UpdatePersonRequest struct {
	FirstName   *string       `json:"firstName,omitempty" validate:"omitempty,max=250"`
	LastName    *string       `json:"lastName,omitempty" validate:"omitempty,max=250"`
	BirthDate   *Date         `json:"birthDate,omitempty"`
	Gender      *Gender       `json:"gender,omitempty" validate:"omitempty,oneof=MALE FEMALE"`
	ImageURL    *string       `json:"imageUrl,omitempty" validate:"omitempty,max=250"`
	PhoneNumber *string       `json:"phoneNumber,omitempty" validate:"omitempty,max=13"`
	Status      *MemberStatus `json:"status,omitempty" validate:"omitempty,oneof=STUDENT WORKER"`
	DistrictID  *int64        `json:"districtId,omitempty" validate:"omitempty,gt=0"`
	TributeID   *int64        `json:"tributeId,omitempty" validate:"omitempty,gt=0"`
}

type ReparentRequest struct {
	ParentID *string `json:"parentId"`
}
