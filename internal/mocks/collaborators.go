package mocks

import (
	"context"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/mail"

	"github.com/stretchr/testify/mock"
)

type MockStatusRecomputer struct {
	mock.Mock
}

func (m *MockStatusRecomputer) UpdateContributionStatusAfterPayment(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	args := m.Called(ctx, contributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

type MockContributionCreator struct {
	mock.Mock
}

func (m *MockContributionCreator) CreateSingleContributionForPerson(ctx context.Context, year int, memberID string) (*domain.Contribution, error) {
	args := m.Called(ctx, year, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

type MockLoginLimiter struct {
	mock.Mock
}

func (m *MockLoginLimiter) Allow(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoginLimiter) Reset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(admin *domain.Admin) (string, error) {
	args := m.Called(admin)
	return args.String(0), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
