package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/pkg/response"
)

type ContributionHandler struct {
	service   ContributionService
	validator *validator.Validate
}

func NewContributionHandler(service ContributionService) *ContributionHandler {
	return &ContributionHandler{
		service:   service,
		validator: newValidator(),
	}
}

// CreateForYear raises the yearly contributions of every eligible member
func (h *ContributionHandler) CreateForYear(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateContributionsRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	created, err := h.service.CreateContributionsForYear(r.Context(), request.Year)
	if err != nil {
		writeError(w, err, "Failed to create contributions")
		return
	}

	response.Created(w, created)
}

// CreateForPerson raises the contribution of the member {id} for the requested year
func (h *ContributionHandler) CreateForPerson(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateContributionsRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	contribution, err := h.service.CreateSingleContributionForPerson(r.Context(), request.Year, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to create contribution")
		return
	}

	response.Created(w, contribution)
}

func (h *ContributionHandler) List(w http.ResponseWriter, r *http.Request) {
	contributions, err := h.service.ListContributions(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list contributions")
		return
	}

	response.Success(w, contributions)
}

func (h *ContributionHandler) ListByPersonAndYear(w http.ResponseWriter, r *http.Request) {
	year, ok := pathYear(w, r)
	if !ok {
		return
	}

	contributions, err := h.service.ListByMemberAndYear(r.Context(), mux.Vars(r)["id"], year)
	if err != nil {
		writeError(w, err, "Failed to list contributions")
		return
	}

	response.Success(w, contributions)
}

func (h *ContributionHandler) Get(w http.ResponseWriter, r *http.Request) {
	contribution, err := h.service.GetContribution(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get contribution")
		return
	}

	response.Success(w, contribution)
}

func (h *ContributionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var request domain.UpdateContributionRequest
	if !decode(w, r, h.validator, &request) {
		return
	}

	contribution, err := h.service.UpdateContribution(r.Context(), mux.Vars(r)["id"], &request)
	if err != nil {
		writeError(w, err, "Failed to update contribution")
		return
	}

	response.Success(w, contribution)
}

func (h *ContributionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.DeleteContribution(r.Context(), id); err != nil {
		writeError(w, err, "Failed to delete contribution")
		return
	}

	response.Message(w, "Contribution "+id+" deleted")
}
