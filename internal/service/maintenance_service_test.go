package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/mocks"
)

func TestPurgeExpiredTokens(t *testing.T) {
	tokens := &mocks.MockTokenRepository{}
	service := NewMaintenanceService(tokens, &mocks.MockContributionRepository{}, &mocks.MockStatusRecomputer{}).WithClock(clock)
	tokens.On("DeleteExpired", mock.Anything, fixedNow).Return(int64(3), int64(1), nil)

	purged, err := service.PurgeExpiredTokens(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), purged)
}

func TestRefreshOverdueContributions(t *testing.T) {
	contributions := &mocks.MockContributionRepository{}
	statuses := &mocks.MockStatusRecomputer{}
	service := NewMaintenanceService(&mocks.MockTokenRepository{}, contributions, statuses).WithClock(clock)

	candidates := []*domain.Contribution{
		{ID: "COT2024-001", Status: domain.ContributionStatusPending},
		{ID: "COT2024-002", Status: domain.ContributionStatusOverdue},
		{ID: "COT2024-003", Status: domain.ContributionStatusPending},
	}
	contributions.On("ListOverdueCandidates", mock.Anything, fixedNow).Return(candidates, nil)
	statuses.On("UpdateContributionStatusAfterPayment", mock.Anything, "COT2024-001").
		Return(&domain.Contribution{ID: "COT2024-001", Status: domain.ContributionStatusOverdue}, nil)
	statuses.On("UpdateContributionStatusAfterPayment", mock.Anything, "COT2024-002").
		Return(&domain.Contribution{ID: "COT2024-002", Status: domain.ContributionStatusOverdue}, nil)
	statuses.On("UpdateContributionStatusAfterPayment", mock.Anything, "COT2024-003").
		Return(nil, errors.New("boom"))

	changed, err := service.RefreshOverdueContributions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	statuses.AssertNumberOfCalls(t, "UpdateContributionStatusAfterPayment", 3)
}
