package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conceptbridge/conceptbridge-backend/internal/http/response"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/ctxutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/services"
)

type AlignmentHandler struct {
	alignments  services.AlignmentService
	evaluations services.EvaluationService
}

func NewAlignmentHandler(alignments services.AlignmentService, evaluations services.EvaluationService) *AlignmentHandler {
	return &AlignmentHandler{alignments: alignments, evaluations: evaluations}
}

// POST /api/alignments — multipart upload:
// file, name, description, column_types (optional JSON object column→type)
func (h *AlignmentHandler) Create(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	req := services.CreateAlignmentRequest{
		Name:           c.PostForm("name"),
		Description:    c.PostForm("description"),
		SourceFileName: fileHeader.Filename,
		Data:           data,
	}
	if raw := c.PostForm("column_types"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.ColumnTypes); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	alignment, err := h.alignments.Create(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, alignment)
}

// GET /api/alignments
func (h *AlignmentHandler) List(c *gin.Context) {
	details, err := h.alignments.List(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"alignments": details})
}

// GET /api/alignments/:id
func (h *AlignmentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	detail, err := h.alignments.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// GET /api/alignments/:id/rows
func (h *AlignmentHandler) Rows(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rows, err := h.alignments.Rows(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rows": rows})
}

// GET /api/alignments/:id/mappings — mappings with vote summaries
func (h *AlignmentHandler) Mappings(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	statuses, err := h.evaluations.StatusByAlignment(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mappings": statuses})
}

// DELETE /api/alignments/:id
func (h *AlignmentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.alignments.Delete(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/alignments/:id/mappings
func (h *AlignmentHandler) CreateMapping(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req services.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.AlignmentID = id
	mapping, err := h.alignments.CreateMapping(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, mapping)
}

// DELETE /api/mappings/:id
func (h *AlignmentHandler) DeleteMapping(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.alignments.DeleteMapping(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// currentUserID returns the authenticated user id, or nil outside an
// authenticated request.
func currentUserID(c *gin.Context) *uuid.UUID {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return nil
	}
	id := rd.UserID
	return &id
}
