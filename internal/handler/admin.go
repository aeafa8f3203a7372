package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/pkg/response"
)

type AdminHandler struct {
	service   AdminService
	validator *validator.Validate
}

func NewAdminHandler(service AdminService) *AdminHandler {
	return &AdminHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request domain.RegisterAdminRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	admin, err := h.service.Register(r.Context(), &request)
	if err != nil {
		writeError(w, err, "Failed to register admin")
		return
	}

	response.Created(w, admin)
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.ListAdmins(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list admins")
		return
	}

	response.Success(w, admins)
}

func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	admin, err := h.service.GetAdmin(r.Context(), actor.AdminID)
	if err != nil {
		writeError(w, err, "Failed to get admin")
		return
	}

	response.Success(w, admin)
}

func (h *AdminHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	h.update(w, r, actor.AdminID)
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.GetAdmin(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get admin")
		return
	}

	response.Success(w, admin)
}

func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, mux.Vars(r)["id"])
}

func (h *AdminHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	var request domain.UpdateAdminRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	admin, err := h.service.UpdateAdmin(r.Context(), actor, id, &request)
	if err != nil {
		writeError(w, err, "Failed to update admin")
		return
	}

	response.Success(w, admin)
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteAdmin(r.Context(), actor, id); err != nil {
		writeError(w, err, "Failed to delete admin")
		return
	}

	response.Message(w, "Admin "+id+" deleted")
}
