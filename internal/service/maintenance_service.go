package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fizanakara/membership-engine/internal/repository"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
)

// MaintenanceService runs the periodic housekeeping jobs.
type MaintenanceService struct {
	TokenRepo        repository.TokenRepository
	ContributionRepo repository.ContributionRepository
	statuses         StatusRecomputer
	now              func() time.Time
}

func NewMaintenanceService(
	tokenRepo repository.TokenRepository,
	contributionRepo repository.ContributionRepository,
	statuses StatusRecomputer,
) *MaintenanceService {
	return &MaintenanceService{
		TokenRepo:        tokenRepo,
		ContributionRepo: contributionRepo,
		statuses:         statuses,
		now:              time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *MaintenanceService) WithClock(now func() time.Time) *MaintenanceService {
	s.now = now
	return s
}

// PurgeExpiredTokens removes refresh and reset tokens past their expiry
func (s *MaintenanceService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	refresh, reset, err := s.TokenRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	slog.Info("expired tokens purged", "refresh", refresh, "reset", reset)
	return refresh + reset, nil
}

// RefreshOverdueContributions moves unpaid contributions past their due date to OVERDUE
func (s *MaintenanceService) RefreshOverdueContributions(ctx context.Context) (int, error) {
	candidates, err := s.ContributionRepo.ListOverdueCandidates(ctx, s.now())
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	changed := 0
	for _, candidate := range candidates {
		updated, err := s.statuses.UpdateContributionStatusAfterPayment(ctx, candidate.ID)
		if err != nil {
			slog.Error("failed to refresh contribution status", "contributionId", candidate.ID, "error", err)
			continue
		}
		if updated.Status != candidate.Status {
			changed++
		}
	}

	slog.Info("overdue contributions refreshed", "candidates", len(candidates), "changed", changed)
	return changed, nil
}
