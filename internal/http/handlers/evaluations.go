package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conceptbridge/conceptbridge-backend/internal/http/response"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
	"github.com/conceptbridge/conceptbridge-backend/internal/services"
)

type EvaluationHandler struct {
	evaluations services.EvaluationService
}

func NewEvaluationHandler(evaluations services.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations}
}

// POST /api/mappings/:id/vote — body: { "vote": "approve" | "reject" | "uncertain" }
// Authors may not vote on their own mappings.
func (h *EvaluationHandler) Vote(c *gin.Context) {
	mappingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		Vote string `json:"vote"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	userID := currentUserID(c)
	if userID == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
		return
	}

	status, err := h.evaluations.Status(c.Request.Context(), mappingID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if status.Mapping.MappedByUserID != nil && *status.Mapping.MappedByUserID == *userID {
		response.RespondError(c, http.StatusForbidden, "forbidden",
			errors.New("authors may not evaluate their own mappings"))
		return
	}

	updated, err := h.evaluations.RecordVote(c.Request.Context(), mappingID, *userID, req.Vote)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, updated)
}

// DELETE /api/mappings/:id/vote
func (h *EvaluationHandler) ClearVote(c *gin.Context) {
	mappingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	userID := currentUserID(c)
	if userID == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
		return
	}
	status, err := h.evaluations.ClearVote(c.Request.Context(), mappingID, *userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// GET /api/mappings/:id/status
func (h *EvaluationHandler) Status(c *gin.Context) {
	mappingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	status, err := h.evaluations.Status(c.Request.Context(), mappingID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// POST /api/mappings/:id/comments — body: { "text": "..." }
func (h *EvaluationHandler) AddComment(c *gin.Context) {
	mappingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	userID := currentUserID(c)
	if userID == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
		return
	}
	comment, err := h.evaluations.AddComment(c.Request.Context(), mappingID, *userID, req.Text)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, comment)
}

// GET /api/mappings/:id/comments
func (h *EvaluationHandler) Comments(c *gin.Context) {
	mappingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	comments, err := h.evaluations.Comments(c.Request.Context(), mappingID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"comments": comments})
}

// DELETE /api/comments/:id
func (h *EvaluationHandler) DeleteComment(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	userID := currentUserID(c)
	if userID == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
		return
	}
	if err := h.evaluations.DeleteComment(c.Request.Context(), commentID, *userID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
