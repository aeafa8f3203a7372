package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/pkg/response"
)

type AuthHandler struct {
	service   AuthService
	validator *validator.Validate
}

func NewAuthHandler(service AuthService) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request domain.LoginRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	resp, err := h.service.Login(r.Context(), &request)
	if err != nil {
		writeError(w, err, "Failed to log in")
		return
	}

	response.Success(w, resp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var request domain.RefreshRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	resp, err := h.service.Refresh(r.Context(), request.RefreshToken)
	if err != nil {
		writeError(w, err, "Failed to refresh token")
		return
	}

	response.Success(w, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var request domain.RefreshRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	if err := h.service.Logout(r.Context(), request.RefreshToken); err != nil {
		writeError(w, err, "Failed to log out")
		return
	}

	response.Message(w, "Logged out")
}

// ForgotPassword always answers the same way so that registered emails cannot be probed
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var request domain.ForgotPasswordRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), request.Email); err != nil {
		writeError(w, err, "Failed to start password reset")
		return
	}

	response.Message(w, "If the email is registered, a reset link has been sent")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var request domain.ResetPasswordRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), &request); err != nil {
		writeError(w, err, "Failed to reset password")
		return
	}

	response.Message(w, "Password updated")
}
