package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

// Admin is an authenticated operator of the back office.
type Admin struct {
	ID             string `json:"id" db:"id"`
	SequenceNumber int64  `json:"sequenceNumber" db:"sequence_number"`
	Profile
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password"`
	Verified     bool      `json:"verified" db:"verified"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

func AdminID(seq int64) string {
	return fmt.Sprintf("ADM%08d", seq)
}

type RefreshToken struct {
	ID         int64     `json:"-" db:"id"`
	Token      string    `json:"token" db:"token"`
	AdminID    string    `json:"adminId" db:"admin_id"`
	ExpiryDate time.Time `json:"expiryDate" db:"expiry_date"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiryDate.Before(now)
}

// PasswordResetToken is single use; an admin holds at most one.
type PasswordResetToken struct {
	Token      string    `db:"token"`
	AdminID    string    `db:"admin_id"`
	ExpiryDate time.Time `db:"expiry_date"`
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return t.ExpiryDate.Before(now)
}

// AdminSummary is the user block returned on login.
type AdminSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Gender    Gender `json:"gender"`
}

// DTOs for requests and responses

type RegisterAdminRequest struct {
	FirstName   string `json:"firstName" validate:"required,max=250"`
	LastName    string `json:"lastName" validate:"required,max=250"`
	BirthDate   Date   `json:"birthDate" validate:"required"`
	Gender      Gender `json:"gender" validate:"required,oneof=MALE FEMALE"`
	ImageURL    string `json:"imageUrl" validate:"max=250"`
	PhoneNumber string `json:"phoneNumber" validate:"required,max=13"`
	Email       string `json:"email" validate:"required,email,max=250"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

type UpdateAdminRequest struct {
	FirstName   *string `json:"firstName,omitempty" validate:"omitempty,max=250"`
	LastName    *string `json:"lastName,omitempty" validate:"omitempty,max=250"`
	BirthDate   *Date   `json:"birthDate,omitempty"`
	Gender      *Gender `json:"gender,omitempty" validate:"omitempty,oneof=MALE FEMALE"`
	ImageURL    *string `json:"imageUrl,omitempty" validate:"omitempty,max=250"`
	PhoneNumber *string `json:"phoneNumber,omitempty" validate:"omitempty,max=13"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=250"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Verified    *bool   `json:"verified,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User         AdminSummary `json:"user"`
	Role         Role         `json:"role"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}
