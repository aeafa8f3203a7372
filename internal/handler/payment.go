package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/pkg/response"
)

type PaymentHandler struct {
	service   PaymentService
	validator *validator.Validate
}

func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: newValidator(),
	}
}

// MakePayment records a payment against a contribution
func (h *PaymentHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePaymentRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	payment, err := h.service.CreatePayment(r.Context(), &request)
	if err != nil {
		writeError(w, err, "Failed to process payment")
		return
	}

	response.Created(w, payment)
}

func (h *PaymentHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var request domain.UpdatePaymentRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	payment, err := h.service.UpdatePayment(r.Context(), mux.Vars(r)["id"], &request)
	if err != nil {
		writeError(w, err, "Failed to update payment")
		return
	}

	response.Success(w, payment)
}

func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.DeletePayment(r.Context(), id); err != nil {
		writeError(w, err, "Failed to delete payment")
		return
	}

	response.Message(w, "Payment "+id+" deleted")
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.GetPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get payment")
		return
	}

	response.Success(w, payment)
}

func (h *PaymentHandler) ListByContribution(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.GetPaymentsByContributionID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to list payments")
		return
	}

	response.Success(w, payments)
}
