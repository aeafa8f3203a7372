package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/pkg/response"
)

type PersonHandler struct {
	service   PersonService
	validator *validator.Validate
}

func NewPersonHandler(service PersonService) *PersonHandler {
	return &PersonHandler{
		service:   service,
		validator: newValidator(),
	}
}

// CreatePerson registers a member
func (h *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePersonRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	person, err := h.service.CreatePerson(r.Context(), &request)
	if err != nil {
		writeError(w, err, "Failed to create member")
		return
	}

	response.Created(w, person)
}

// CreateChild registers a member under {parentId}
func (h *PersonHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePersonRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	person, err := h.service.CreateChild(r.Context(), mux.Vars(r)["parentId"], &request)
	if err != nil {
		writeError(w, err, "Failed to create child")
		return
	}

	response.Created(w, person)
}

func (h *PersonHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.service.GetChildrenByParentID(r.Context(), mux.Vars(r)["parentId"])
	if err != nil {
		writeError(w, err, "Failed to list children")
		return
	}

	response.Success(w, children)
}

func (h *PersonHandler) Promote(w http.ResponseWriter, r *http.Request) {
	person, err := h.service.PromoteToActiveMember(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to promote member")
		return
	}

	response.Success(w, person)
}

func (h *PersonHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	var request domain.UpdatePersonRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	person, err := h.service.UpdatePerson(r.Context(), mux.Vars(r)["id"], &request)
	if err != nil {
		writeError(w, err, "Failed to update member")
		return
	}

	response.Success(w, person)
}

// Reparent moves a member under another parent; a null parentId detaches it
func (h *PersonHandler) Reparent(w http.ResponseWriter, r *http.Request) {
	var request domain.ReparentRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	person, err := h.service.ReparentPerson(r.Context(), mux.Vars(r)["id"], request.ParentID)
	if err != nil {
		writeError(w, err, "Failed to change parent")
		return
	}

	response.Success(w, person)
}

func (h *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	person, err := h.service.GetPerson(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get member")
		return
	}

	response.Success(w, person)
}

func (h *PersonHandler) GetFamilyTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.GetFamilyTree(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to load family tree")
		return
	}

	response.Success(w, tree)
}

func (h *PersonHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.service.ListPersons(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list members")
		return
	}

	response.Success(w, persons)
}

func (h *PersonHandler) ListByDistrict(w http.ResponseWriter, r *http.Request) {
	districtID, ok := pathInt64(w, r, "districtId")
	if !ok {
		return
	}

	persons, err := h.service.ListByDistrict(r.Context(), districtID)
	if err != nil {
		writeError(w, err, "Failed to list members")
		return
	}

	response.Success(w, persons)
}

func (h *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.DeletePerson(r.Context(), id); err != nil {
		writeError(w, err, "Failed to delete member")
		return
	}

	response.Message(w, "Member "+id+" deleted")
}

func (h *PersonHandler) DeleteAllPersons(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteAllPersons(r.Context())
	if err != nil {
		writeError(w, err, "Failed to delete members")
		return
	}

	response.Success(w, map[string]int64{"deleted": deleted})
}
