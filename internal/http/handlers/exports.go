package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conceptbridge/conceptbridge-backend/internal/http/response"
	"github.com/conceptbridge/conceptbridge-backend/internal/ingestion/mappingfile"
	"github.com/conceptbridge/conceptbridge-backend/internal/services"
)

type ExportHandler struct {
	exports services.ExportService
}

func NewExportHandler(exports services.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// POST /api/alignments/:id/export — body:
// { "format": "...", "statuses": [...], "policy": "..." }
func (h *ExportHandler) Export(c *gin.Context) {
	alignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req services.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.AlignmentID = alignmentID

	var buf bytes.Buffer
	name, err := h.exports.Export(c.Request.Context(), &buf, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	contentType := "text/csv"
	if req.Format == mappingfile.FormatArchive {
		contentType = "application/zip"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
