package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fizanakara/membership-engine/internal/auth"
	"github.com/fizanakara/membership-engine/internal/config"
	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/mail"
	"github.com/fizanakara/membership-engine/internal/repository"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
)

// LoginLimiter throttles login attempts per email.
type LoginLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	Reset(ctx context.Context, email string) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(admin *domain.Admin) (string, error)
}

// Mailer delivers outgoing mail.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// AuthService handles login, token refresh and password reset.
type AuthService struct {
	AdminRepo       repository.AdminRepository
	TokenRepo       repository.TokenRepository
	limiter         LoginLimiter
	issuer          TokenIssuer
	mailer          Mailer
	refreshTokenTTL time.Duration
	resetTokenTTL   time.Duration
	resetURL        string
	hash            func(string) (string, error)
	now             func() time.Time
}

func NewAuthService(
	adminRepo repository.AdminRepository,
	tokenRepo repository.TokenRepository,
	limiter LoginLimiter,
	issuer TokenIssuer,
	mailer Mailer,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		AdminRepo:       adminRepo,
		TokenRepo:       tokenRepo,
		limiter:         limiter,
		issuer:          issuer,
		mailer:          mailer,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		resetTokenTTL:   cfg.ResetTokenTTL,
		resetURL:        cfg.ResetURL,
		hash:            auth.HashPassword,
		now:             time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login checks the credentials and issues an access token with a refresh token
func (s *AuthService) Login(ctx context.Context, request *domain.LoginRequest) (*domain.LoginResponse, error) {
	email := normalizeEmail(request.Email)

	// 1. Throttle
	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		// Redis being down must not lock everyone out.
		slog.Warn("login limiter unavailable", "error", customError.WrapCacheError(err))
	}
	if !allowed {
		slog.Warn("login throttled", "email", email)
		return nil, customError.WrapRateLimited("too many login attempts, try again later")
	}

	// 2. Verify the credentials
	admin, err := s.AdminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapAuthentication("invalid email or password")
		}
		return nil, customError.WrapDatabaseError(err)
	}
	if !auth.CheckPassword(admin.PasswordHash, request.Password) {
		slog.Info("login rejected", "email", email)
		return nil, customError.WrapAuthentication("invalid email or password")
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		slog.Warn("failed to reset login attempts", "email", email, "error", err)
	}

	// 3. Issue the tokens
	accessToken, err := s.issuer.Issue(admin)
	if err != nil {
		return nil, err
	}

	now := s.now()
	refresh := &domain.RefreshToken{
		Token:      uuid.NewString(),
		AdminID:    admin.ID,
		ExpiryDate: now.Add(s.refreshTokenTTL),
		CreatedAt:  now,
	}
	if err := s.TokenRepo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("admin logged in", "adminId", admin.ID, "role", admin.Role)
	return &domain.LoginResponse{
		User: domain.AdminSummary{
			ID:        admin.ID,
			Email:     admin.Email,
			FirstName: admin.FirstName,
			LastName:  admin.LastName,
			Gender:    admin.Gender,
		},
		Role:         admin.Role,
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
	}, nil
}

// Refresh issues a new access token for a live refresh token
func (s *AuthService) Refresh(ctx context.Context, token string) (*domain.RefreshResponse, error) {
	refresh, err := s.TokenRepo.GetRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapAuthentication("refresh token is invalid")
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if refresh.Expired(s.now()) {
		if err := s.TokenRepo.DeleteRefreshToken(ctx, token); err != nil {
			slog.Warn("failed to delete expired refresh token", "adminId", refresh.AdminID, "error", err)
		}
		return nil, customError.WrapAuthentication("refresh token has expired, please log in again")
	}

	admin, err := s.AdminRepo.GetByID(ctx, refresh.AdminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapAuthentication("refresh token is invalid")
		}
		return nil, customError.WrapDatabaseError(err)
	}

	accessToken, err := s.issuer.Issue(admin)
	if err != nil {
		return nil, err
	}
	return &domain.RefreshResponse{AccessToken: accessToken}, nil
}

// Logout revokes a refresh token; unknown tokens are ignored
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.TokenRepo.DeleteRefreshToken(ctx, token); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// ForgotPassword mails a reset link. Unknown emails get the same answer as known ones.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	admin, err := s.AdminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return customError.WrapDatabaseError(err)
	}

	reset := &domain.PasswordResetToken{
		Token:      uuid.NewString(),
		AdminID:    admin.ID,
		ExpiryDate: s.now().Add(s.resetTokenTTL),
	}
	if err := s.TokenRepo.ReplaceResetToken(ctx, reset); err != nil {
		return customError.WrapDatabaseError(err)
	}

	msg := mail.Message{
		To:      admin.Email,
		Subject: "Password reset",
		Body: fmt.Sprintf(
			"Hello %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s?token=%s\n",
			admin.FirstName, s.resetTokenTTL, s.resetURL, reset.Token,
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		slog.Error("failed to send password reset mail", "adminId", admin.ID, "error", err)
		return nil
	}

	slog.Info("password reset mail sent", "adminId", admin.ID)
	return nil
}

// ResetPassword redeems a reset token and sets the new password
func (s *AuthService) ResetPassword(ctx context.Context, request *domain.ResetPasswordRequest) error {
	reset, err := s.TokenRepo.GetResetToken(ctx, request.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapAuthentication("reset token is invalid")
		}
		return customError.WrapDatabaseError(err)
	}

	if reset.Expired(s.now()) {
		if err := s.TokenRepo.DeleteResetToken(ctx, request.Token); err != nil {
			slog.Warn("failed to delete expired reset token", "adminId", reset.AdminID, "error", err)
		}
		return customError.WrapAuthentication("reset token has expired")
	}

	hash, err := s.hash(request.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.TokenRepo.RedeemResetToken(ctx, request.Token, reset.AdminID, hash); err != nil {
		return customError.WrapDatabaseError(err)
	}

	slog.Info("password reset", "adminId", reset.AdminID)
	return nil
}
