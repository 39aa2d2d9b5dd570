package handlers

import (
	"net/http"
	"time"

	"trackd-backend/application/services"
	"trackd-backend/domain/core/aggregates"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MilestoneHandler handles milestone-related HTTP requests
type MilestoneHandler struct {
	milestones *services.MilestoneService
	logger     *zap.Logger
}

// NewMilestoneHandler creates a new milestone handler
func NewMilestoneHandler(milestones *services.MilestoneService, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones, logger: logger}
}

// CreateMilestoneRequest is the request body for creating a milestone
type CreateMilestoneRequest struct {
	RepositoryID string     `json:"repositoryId" validate:"required"`
	Title        string     `json:"title" validate:"required,max=200"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}

// SetDueDateRequest is the request body for setting or clearing a due date
type SetDueDateRequest struct {
	DueDate *time.Time `json:"dueDate"`
}

type milestoneResponse struct {
	ID           string     `json:"id"`
	RepositoryID string     `json:"repositoryId"`
	Title        string     `json:"title"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Closed       bool       `json:"closed"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Version      int        `json:"version"`
}

func toMilestoneResponse(milestone *aggregates.Milestone) milestoneResponse {
	return milestoneResponse{
		ID:           milestone.ID().String(),
		RepositoryID: milestone.RepositoryID().String(),
		Title:        milestone.Title(),
		DueDate:      milestone.DueDate(),
		Closed:       milestone.IsClosed(),
		CreatedAt:    milestone.CreatedAt(),
		UpdatedAt:    milestone.UpdatedAt(),
		Version:      milestone.Version(),
	}
}

// CreateMilestone handles POST /milestones
func (h *MilestoneHandler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	var req CreateMilestoneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	milestone, err := h.milestones.CreateMilestone(r.Context(), services.CreateMilestoneRequest{
		RepositoryID: req.RepositoryID,
		Title:        req.Title,
		DueDate:      req.DueDate,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	// Reload so the response carries the committed state, version included
	created, err := h.milestones.GetMilestone(r.Context(), milestone.ID().String())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMilestoneResponse(created))
}

// GetMilestone handles GET /milestones/{milestoneID}
func (h *MilestoneHandler) GetMilestone(w http.ResponseWriter, r *http.Request) {
	milestone, err := h.milestones.GetMilestone(r.Context(), chi.URLParam(r, "milestoneID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toMilestoneResponse(milestone))
}

// Retitle handles PUT /milestones/{milestoneID}/title
func (h *MilestoneHandler) Retitle(w http.ResponseWriter, r *http.Request) {
	var req RetitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutation(w, r, h.milestones.RetitleMilestone(r.Context(), chi.URLParam(r, "milestoneID"), req.Title))
}

// SetDueDate handles PUT /milestones/{milestoneID}/due-date
func (h *MilestoneHandler) SetDueDate(w http.ResponseWriter, r *http.Request) {
	var req SetDueDateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutation(w, r, h.milestones.SetDueDate(r.Context(), chi.URLParam(r, "milestoneID"), req.DueDate))
}

// CloseMilestone handles POST /milestones/{milestoneID}/close
func (h *MilestoneHandler) CloseMilestone(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, h.milestones.CloseMilestone(r.Context(), chi.URLParam(r, "milestoneID")))
}

// ReopenMilestone handles POST /milestones/{milestoneID}/reopen
func (h *MilestoneHandler) ReopenMilestone(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, h.milestones.ReopenMilestone(r.Context(), chi.URLParam(r, "milestoneID")))
}

// DeleteMilestone handles DELETE /milestones/{milestoneID}
func (h *MilestoneHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	if err := h.milestones.DeleteMilestone(r.Context(), chi.URLParam(r, "milestoneID")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *MilestoneHandler) mutation(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	milestone, err := h.milestones.GetMilestone(r.Context(), chi.URLParam(r, "milestoneID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toMilestoneResponse(milestone))
}
