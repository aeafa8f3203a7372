package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fizanakara/membership-engine/pkg/utils"
)

type ContributionStatus string

const (
	ContributionStatusPending ContributionStatus = "PENDING"
	ContributionStatusPartial ContributionStatus = "PARTIAL"
	ContributionStatusPaid    ContributionStatus = "PAID"
	ContributionStatusOverdue ContributionStatus = "OVERDUE"
)

// Contribution represents a yearly obligation assessed to a member.
type Contribution struct {
	ID         string             `json:"id" db:"id"`
	Year       int                `json:"year" db:"year"`
	Amount     decimal.Decimal    `json:"amount" db:"amount"`
	Status     ContributionStatus `json:"status" db:"status"`
	DueDate    Date               `json:"dueDate" db:"due_date"`
	MemberID   string             `json:"memberId" db:"member_id"`
	MemberName string             `json:"memberName" db:"member_name"`
	// ChildID is set when the contribution is raised on behalf of a member who is not active yet.
	ChildID        *string   `json:"childId,omitempty" db:"child_id"`
	SequenceSuffix string    `json:"-" db:"sequence_suffix"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

func (c *Contribution) IsChildContribution() bool {
	return c.ChildID != nil && *c.ChildID != ""
}

// ContributionID builds "COT<year>-<suffix>".
func ContributionID(year int, suffix string) string {
	return fmt.Sprintf("COT%d-%s", year, suffix)
}

func SequenceSuffix(seq int64) string {
	return fmt.Sprintf("%03d", seq)
}

// DueDateForYear returns December 31st of year.
func DueDateForYear(year int) Date {
	return Date{Time: utils.EndOfYear(year)}
}

// StatusFor derives a contribution status from what has been paid so far.
func StatusFor(amount, totalPaid decimal.Decimal, dueDate Date, now time.Time) ContributionStatus {
	switch {
	case totalPaid.GreaterThanOrEqual(amount):
		return ContributionStatusPaid
	case totalPaid.IsPositive():
		return ContributionStatusPartial
	case utils.IsDateOverdue(dueDate.Time, DateOf(now).Time):
		return ContributionStatusOverdue
	default:
		return ContributionStatusPending
	}
}

// ContributionPolicy is the amount table applied when contributions are raised.
type ContributionPolicy struct {
	AdultAge       int
	StudentMaxAge  int
	StudentAmount  decimal.Decimal
	StandardAmount decimal.Decimal
	// AdultStatus is assigned to members on promotion.
	AdultStatus MemberStatus
}

func DefaultContributionPolicy() ContributionPolicy {
	return ContributionPolicy{
		AdultAge:       18,
		StudentMaxAge:  21,
		StudentAmount:  decimal.NewFromInt(30000),
		StandardAmount: decimal.NewFromInt(40000),
		AdultStatus:    MemberStatusWorker,
	}
}

func (p ContributionPolicy) IsEligible(birthDate Date, year int) bool {
	return AgeAtYear(birthDate, year) >= p.AdultAge
}

// AmountFor returns the student rate for students aged AdultAge..StudentMaxAge, the standard rate otherwise.
func (p ContributionPolicy) AmountFor(person *Person, year int) decimal.Decimal {
	age := person.AgeAtYear(year)
	if age >= p.AdultAge && age <= p.StudentMaxAge && person.Status == MemberStatusStudent {
		return p.StudentAmount
	}
	return p.StandardAmount
}

// ContributionDetail is a contribution with its payment ledger.
type ContributionDetail struct {
	*Contribution
	TotalPaid decimal.Decimal `json:"totalPaid"`
	Remaining decimal.Decimal `json:"remaining"`
	Payments  []*Payment      `json:"payments"`
}

// DTOs for requests

type CreateContributionsRequest struct {
	Year int `json:"year" validate:"required,gte=1900,lte=2200"`
}

type UpdateContributionRequest struct {
	Amount   *decimal.Decimal    `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Status   *ContributionStatus `json:"status,omitempty" validate:"omitempty,oneof=PENDING PARTIAL PAID OVERDUE"`
	MemberID *string             `json:"memberId,omitempty" validate:"omitempty,max=11"`
}
