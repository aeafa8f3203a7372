package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/repository"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
	"github.com/fizanakara/membership-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// ContributionService raises yearly contributions and keeps their status in line with payments.
type ContributionService struct {
	ContributionRepo repository.ContributionRepository
	PaymentRepo      repository.PaymentRepository
	PersonRepo       repository.PersonRepository
	SequenceRepo     repository.SequenceRepository
	policy           domain.ContributionPolicy
	now              func() time.Time
}

func NewContributionService(
	contributionRepo repository.ContributionRepository,
	paymentRepo repository.PaymentRepository,
	personRepo repository.PersonRepository,
	sequenceRepo repository.SequenceRepository,
	policy domain.ContributionPolicy,
) *ContributionService {
	return &ContributionService{
		ContributionRepo: contributionRepo,
		PaymentRepo:      paymentRepo,
		PersonRepo:       personRepo,
		SequenceRepo:     sequenceRepo,
		policy:           policy,
		now:              time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *ContributionService) WithClock(now func() time.Time) *ContributionService {
	s.now = now
	return s
}

// CreateContributionsForYear raises a contribution for every member eligible in year that has none yet
func (s *ContributionService) CreateContributionsForYear(ctx context.Context, year int) ([]*domain.Contribution, error) {
	persons, err := s.PersonRepo.ListEligibleForYear(ctx, year, s.policy.AdultAge)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	created := make([]*domain.Contribution, 0, len(persons))
	for _, person := range persons {
		// Members not yet promoted are billed as dependents.
		var childID *string
		if !person.Active {
			childID = &person.ID
		}

		exists, err := s.billedForYear(ctx, person.ID, year, childID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		if exists {
			slog.Debug("contribution already exists, skipping", "memberId", person.ID, "year", year)
			continue
		}

		contribution, err := s.create(ctx, person, year, childID)
		if err != nil {
			return nil, err
		}
		created = append(created, contribution)
	}

	slog.Info("yearly contributions created", "year", year, "eligible", len(persons), "created", len(created))
	return created, nil
}

// CreateSingleContributionForPerson raises the contribution of one member for year
func (s *ContributionService) CreateSingleContributionForPerson(ctx context.Context, year int, memberID string) (*domain.Contribution, error) {
	person, err := s.PersonRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapInvalidReference("Person", memberID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	var childID *string
	if !s.policy.IsEligible(person.BirthDate, year) {
		childID = &person.ID
	}

	exists, err := s.billedForYear(ctx, person.ID, year, childID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if exists {
		slog.Warn("duplicate contribution rejected", "memberId", person.ID, "year", year)
		return nil, customError.WrapDuplicate(
			fmt.Sprintf("Contribution for member %s and year %d already exists", person.ID, year),
		)
	}

	return s.create(ctx, person, year, childID)
}

// billedForYear reports whether the member already carries a contribution for year.
// A dependent contribution raised before promotion also covers the adult obligation.
func (s *ContributionService) billedForYear(ctx context.Context, memberID string, year int, childID *string) (bool, error) {
	exists, err := s.ContributionRepo.ExistsForMemberYear(ctx, memberID, year, childID)
	if err != nil || exists || childID != nil {
		return exists, err
	}
	return s.ContributionRepo.ExistsForMemberYear(ctx, memberID, year, &memberID)
}

func (s *ContributionService) create(ctx context.Context, person *domain.Person, year int, childID *string) (*domain.Contribution, error) {
	seq, err := s.SequenceRepo.NextContributionSequence(ctx, year)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	suffix := domain.SequenceSuffix(seq)
	contribution := &domain.Contribution{
		ID:             domain.ContributionID(year, suffix),
		Year:           year,
		Amount:         s.policy.AmountFor(person, year),
		Status:         domain.ContributionStatusPending,
		DueDate:        domain.DueDateForYear(year),
		MemberID:       person.ID,
		MemberName:     person.FullName(),
		ChildID:        childID,
		SequenceSuffix: suffix,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.ContributionRepo.Create(ctx, contribution); err != nil {
		switch {
		case repository.IsUniqueViolation(err):
			return nil, customError.WrapDuplicate(fmt.Sprintf("Contribution %s already exists", contribution.ID))
		case repository.IsForeignKeyViolation(err):
			return nil, customError.WrapInvalidReference("Person", person.ID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("contribution created",
		"contributionId", contribution.ID,
		"memberId", person.ID,
		"year", year,
		"amount", contribution.Amount.String(),
	)
	return contribution, nil
}

// UpdateContributionStatusAfterPayment recomputes the status from the payments recorded so far
func (s *ContributionService) UpdateContributionStatusAfterPayment(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	contribution, err := s.getContribution(ctx, contributionID)
	if err != nil {
		return nil, err
	}

	totalPaid, err := s.PaymentRepo.GetTotalPaid(ctx, contributionID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	status := domain.StatusFor(contribution.Amount, totalPaid, contribution.DueDate, s.now())
	if status == contribution.Status {
		return contribution, nil
	}

	if err := s.ContributionRepo.UpdateStatus(ctx, contributionID, status); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("contribution status changed",
		"contributionId", contributionID,
		"from", contribution.Status,
		"to", status,
		"totalPaid", totalPaid.String(),
	)
	contribution.Status = status
	return contribution, nil
}

// UpdateContribution applies a partial update; the amount can never drop below what is already paid
func (s *ContributionService) UpdateContribution(ctx context.Context, id string, request *domain.UpdateContributionRequest) (*domain.ContributionDetail, error) {
	contribution, err := s.getContribution(ctx, id)
	if err != nil {
		return nil, err
	}

	if request.MemberID != nil && *request.MemberID != contribution.MemberID {
		person, err := s.PersonRepo.GetByID(ctx, *request.MemberID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, customError.WrapInvalidReference("Person", *request.MemberID)
			}
			return nil, customError.WrapDatabaseError(err)
		}

		// The dependent link follows the new member, like in a yearly batch.
		var childID *string
		if !person.Active {
			childID = &person.ID
		}

		exists, err := s.billedForYear(ctx, person.ID, contribution.Year, childID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		if exists {
			return nil, customError.WrapDuplicate(
				fmt.Sprintf("Contribution for member %s and year %d already exists", person.ID, contribution.Year),
			)
		}

		contribution.MemberID = person.ID
		contribution.MemberName = person.FullName()
		contribution.ChildID = childID
	}

	amountChanged := false
	if request.Amount != nil && !request.Amount.Equal(contribution.Amount) {
		if err := checkMoney("amount", *request.Amount); err != nil {
			return nil, err
		}
		totalPaid, err := s.PaymentRepo.GetTotalPaid(ctx, id)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		if totalPaid.GreaterThan(*request.Amount) {
			return nil, customError.NewOverpaymentError(id, totalPaid, *request.Amount)
		}
		contribution.Amount = *request.Amount
		amountChanged = true
	}

	if request.Status != nil {
		contribution.Status = *request.Status
	}

	if err := s.ContributionRepo.Update(ctx, contribution); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, customError.WrapInvalidReference("Person", contribution.MemberID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	// A new amount without an explicit status moves the status along with it.
	if amountChanged && request.Status == nil {
		if _, err := s.UpdateContributionStatusAfterPayment(ctx, id); err != nil {
			return nil, err
		}
	}

	slog.Info("contribution updated", "contributionId", id)
	return s.GetContribution(ctx, id)
}

// DeleteContribution removes a contribution together with its payments
func (s *ContributionService) DeleteContribution(ctx context.Context, id string) error {
	if _, err := s.getContribution(ctx, id); err != nil {
		return err
	}

	if err := s.ContributionRepo.Delete(ctx, id); err != nil {
		return customError.WrapDatabaseError(err)
	}

	slog.Info("contribution deleted", "contributionId", id)
	return nil
}

// GetContribution returns a contribution with its payment ledger
func (s *ContributionService) GetContribution(ctx context.Context, id string) (*domain.ContributionDetail, error) {
	contribution, err := s.getContribution(ctx, id)
	if err != nil {
		return nil, err
	}

	details, err := s.withPayments(ctx, []*domain.Contribution{contribution})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// ListContributions returns every contribution with its payment ledger
func (s *ContributionService) ListContributions(ctx context.Context) ([]*domain.ContributionDetail, error) {
	contributions, err := s.ContributionRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.withPayments(ctx, contributions)
}

// ListByMemberAndYear returns the contributions of a member for a year
func (s *ContributionService) ListByMemberAndYear(ctx context.Context, memberID string, year int) ([]*domain.ContributionDetail, error) {
	exists, err := s.PersonRepo.Exists(ctx, memberID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !exists {
		return nil, customError.WrapNotFound("Person", memberID)
	}

	contributions, err := s.ContributionRepo.ListByMemberAndYear(ctx, memberID, year)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.withPayments(ctx, contributions)
}

func (s *ContributionService) getContribution(ctx context.Context, id string) (*domain.Contribution, error) {
	contribution, err := s.ContributionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("Contribution", id)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return contribution, nil
}

func (s *ContributionService) withPayments(ctx context.Context, contributions []*domain.Contribution) ([]*domain.ContributionDetail, error) {
	ids := make([]string, 0, len(contributions))
	for _, c := range contributions {
		ids = append(ids, c.ID)
	}

	payments, err := s.PaymentRepo.GetByContributionIDs(ctx, ids)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	byContribution := make(map[string][]*domain.Payment, len(contributions))
	for _, p := range payments {
		byContribution[p.ContributionID] = append(byContribution[p.ContributionID], p)
	}

	details := make([]*domain.ContributionDetail, 0, len(contributions))
	for _, c := range contributions {
		ledger := byContribution[c.ID]
		if ledger == nil {
			ledger = []*domain.Payment{}
		}

		amounts := make([]decimal.Decimal, 0, len(ledger))
		for _, p := range ledger {
			amounts = append(amounts, p.AmountPaid)
		}
		totalPaid := utils.SumDecimals(amounts)

		remaining := c.Amount.Sub(totalPaid)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		details = append(details, &domain.ContributionDetail{
			Contribution: c,
			TotalPaid:    totalPaid,
			Remaining:    remaining,
			Payments:     ledger,
		})
	}
	return details, nil
}
