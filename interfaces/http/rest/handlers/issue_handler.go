package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"trackd-backend/application/services"
	"trackd-backend/domain/core/aggregates"
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// IssueHandler handles issue-related HTTP requests
type IssueHandler struct {
	issues *services.IssueService
	logger *zap.Logger
}

// NewIssueHandler creates a new issue handler
func NewIssueHandler(issues *services.IssueService, logger *zap.Logger) *IssueHandler {
	return &IssueHandler{issues: issues, logger: logger}
}

// CreateIssueRequest is the request body for opening an issue
type CreateIssueRequest struct {
	RepositoryID string `json:"repositoryId" validate:"required"`
	AuthorID     string `json:"authorId" validate:"required"`
	Title        string `json:"title" validate:"required,max=200"`
	Body         string `json:"body,omitempty"`
}

// AddCommentRequest is the request body for commenting on an issue
type AddCommentRequest struct {
	AuthorID string `json:"authorId" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

// EditCommentRequest is the request body for editing a comment
type EditCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// RetitleRequest is the request body for changing a title
type RetitleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// UpdateBodyRequest is the request body for replacing an issue body
type UpdateBodyRequest struct {
	Body string `json:"body"`
}

// CloseIssueRequest is the request body for closing an issue
type CloseIssueRequest struct {
	Reason string `json:"reason"`
}

// AttachLabelRequest is the request body for attaching a label
type AttachLabelRequest struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color,omitempty"`
}

// AssignMilestoneRequest is the request body for assigning a milestone
type AssignMilestoneRequest struct {
	MilestoneID string `json:"milestoneId" validate:"required"`
}

type labelResponse struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type commentResponse struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"authorId"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}

type issueResponse struct {
	ID           string            `json:"id"`
	RepositoryID string            `json:"repositoryId"`
	MilestoneID  string            `json:"milestoneId,omitempty"`
	AuthorID     string            `json:"authorId"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Closed       bool              `json:"closed"`
	CloseReason  string            `json:"closeReason,omitempty"`
	Labels       []labelResponse   `json:"labels"`
	Comments     []commentResponse `json:"comments"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Version      int               `json:"version"`
}

func toIssueResponse(issue *aggregates.Issue) (issueResponse, error) {
	comments, err := issue.Comments()
	if err != nil {
		// Rendering a partially loaded aggregate would show "no comments"
		// where the truth is "not fetched".
		return issueResponse{}, pkgerrors.Wrap(err, "cannot render issue")
	}

	resp := issueResponse{
		ID:           issue.ID().String(),
		RepositoryID: issue.RepositoryID().String(),
		AuthorID:     issue.AuthorID().String(),
		Title:        issue.Title(),
		Body:         issue.Body(),
		Closed:       issue.IsClosed(),
		CloseReason:  issue.CloseReason(),
		Labels:       []labelResponse{},
		Comments:     []commentResponse{},
		CreatedAt:    issue.CreatedAt(),
		UpdatedAt:    issue.UpdatedAt(),
		Version:      issue.Version(),
	}
	if !issue.MilestoneID().IsZero() {
		resp.MilestoneID = issue.MilestoneID().String()
	}
	for _, label := range issue.Labels() {
		resp.Labels = append(resp.Labels, labelResponse{Name: label.Name(), Color: label.Color()})
	}
	for _, comment := range comments {
		resp.Comments = append(resp.Comments, commentResponse{
			ID:        comment.ID().String(),
			AuthorID:  comment.AuthorID().String(),
			Text:      comment.Text(),
			CreatedAt: comment.CreatedAt(),
			EditedAt:  comment.EditedAt(),
		})
	}
	return resp, nil
}

func (h *IssueHandler) respondIssue(w http.ResponseWriter, status int, issue *aggregates.Issue) {
	resp, err := toIssueResponse(issue)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "validation error: " + err.Error()})
		return false
	}
	return true
}

// CreateIssue handles POST /issues
func (h *IssueHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	var req CreateIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	issue, err := h.issues.CreateIssue(r.Context(), services.CreateIssueRequest{
		RepositoryID: req.RepositoryID,
		AuthorID:     req.AuthorID,
		Title:        req.Title,
		Body:         req.Body,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	// Reload so the response carries the committed state, version included
	created, err := h.issues.GetIssue(r.Context(), issue.ID().String())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.respondIssue(w, http.StatusCreated, created)
}

// GetIssue handles GET /issues/{issueID}
func (h *IssueHandler) GetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := h.issues.GetIssue(r.Context(), chi.URLParam(r, "issueID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.respondIssue(w, http.StatusOK, issue)
}

// DeleteIssue handles DELETE /issues/{issueID}
func (h *IssueHandler) DeleteIssue(w http.ResponseWriter, r *http.Request) {
	if err := h.issues.DeleteIssue(r.Context(), chi.URLParam(r, "issueID")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Retitle handles PUT /issues/{issueID}/title
func (h *IssueHandler) Retitle(w http.ResponseWriter, r *http.Request) {
	var req RetitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutation(w, r, h.issues.RetitleIssue(r.Context(), chi.URLParam(r, "issueID"), req.Title))
}

// UpdateBody handles PUT /issues/{issueID}/body
func (h *IssueHandler) UpdateBody(w http.ResponseWriter, r *http.Request) {
	var req UpdateBodyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutation(w, r, h.issues.UpdateBody(r.Context(), chi.URLParam(r, "issueID"), req.Body))
}

// CloseIssue handles POST /issues/{issueID}/close
func (h *IssueHandler) CloseIssue(w http.ResponseWriter, r *http.Request) {
	var req CloseIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutation(w, r, h.issues.CloseIssue(r.Context(), chi.URLParam(r, "issueID"), req.Reason))
}

// ReopenIssue handles POST /issues/{issueID}/reopen
func (h *IssueHandler) ReopenIssue(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, h.issues.ReopenIssue(r.Context(), chi.URLParam(r, "issueID")))
}

// AddComment handles POST /issues/{issueID}/comments
func (h *IssueHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.issues.AddComment(r.Context(), chi.URLParam(r, "issueID"), req.AuthorID, req.Text)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, commentResponse{
		ID:        comment.ID().String(),
		AuthorID:  comment.AuthorID().String(),
		Text:      comment.Text(),
		CreatedAt: comment.CreatedAt(),
		EditedAt:  comment.EditedAt(),
	})
}

// EditComment handles PUT /issues/{issueID}/comments/{commentID}
func (h *IssueHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	var req EditCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutation(w, r, h.issues.EditComment(r.Context(),
		chi.URLParam(r, "issueID"), chi.URLParam(r, "commentID"), req.Text))
}

// RemoveComment handles DELETE /issues/{issueID}/comments/{commentID}
func (h *IssueHandler) RemoveComment(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, h.issues.RemoveComment(r.Context(),
		chi.URLParam(r, "issueID"), chi.URLParam(r, "commentID")))
}

// AttachLabel handles POST /issues/{issueID}/labels
func (h *IssueHandler) AttachLabel(w http.ResponseWriter, r *http.Request) {
	var req AttachLabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutation(w, r, h.issues.AttachLabel(r.Context(), chi.URLParam(r, "issueID"), req.Name, req.Color))
}

// DetachLabel handles DELETE /issues/{issueID}/labels/{name}
func (h *IssueHandler) DetachLabel(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, h.issues.DetachLabel(r.Context(),
		chi.URLParam(r, "issueID"), chi.URLParam(r, "name")))
}

// AssignMilestone handles PUT /issues/{issueID}/milestone
func (h *IssueHandler) AssignMilestone(w http.ResponseWriter, r *http.Request) {
	var req AssignMilestoneRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutation(w, r, h.issues.AssignMilestone(r.Context(), chi.URLParam(r, "issueID"), req.MilestoneID))
}

// ClearMilestone handles DELETE /issues/{issueID}/milestone
func (h *IssueHandler) ClearMilestone(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, h.issues.ClearMilestone(r.Context(), chi.URLParam(r, "issueID")))
}

// mutation finishes a write endpoint by reloading the issue so the client
// sees the committed state, version included.
func (h *IssueHandler) mutation(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	issue, err := h.issues.GetIssue(r.Context(), chi.URLParam(r, "issueID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.respondIssue(w, http.StatusOK, issue)
}
