package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/pkg/response"
)

// ReferenceHandler serves the CRUD routes of districts or tributes.
type ReferenceHandler struct {
	service   ReferenceService
	validator *validator.Validate
}

func NewReferenceHandler(service ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *ReferenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var request domain.ReferenceRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	reference, err := h.service.Create(r.Context(), &request)
	if err != nil {
		writeError(w, err, "Failed to create reference")
		return
	}

	response.Created(w, reference)
}

func (h *ReferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	references, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list references")
		return
	}

	response.Success(w, references)
}

func (h *ReferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	reference, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get reference")
		return
	}

	response.Success(w, reference)
}

func (h *ReferenceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	var request domain.ReferenceRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	reference, err := h.service.Rename(r.Context(), id, &request)
	if err != nil {
		writeError(w, err, "Failed to rename reference")
		return
	}

	response.Success(w, reference)
}

func (h *ReferenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err, "Failed to delete reference")
		return
	}

	response.Message(w, "Deleted")
}

func (h *ReferenceHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteAll(r.Context())
	if err != nil {
		writeError(w, err, "Failed to delete references")
		return
	}

	response.Success(w, map[string]int64{"deleted": deleted})
}
