package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conceptbridge/conceptbridge-backend/internal/http/response"
	"github.com/conceptbridge/conceptbridge-backend/internal/ingestion/mappingfile"
	"github.com/conceptbridge/conceptbridge-backend/internal/services"
)

type ImportHandler struct {
	importer services.ImporterService
}

func NewImportHandler(importer services.ImporterService) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// POST /api/alignments/:id/imports — multipart upload:
// file, format (optional), column_mapping (optional JSON, generic only)
func (h *ImportHandler) Merge(c *gin.Context) {
	alignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
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

	opts := services.MergeOptions{Format: c.PostForm("format")}
	if raw := c.PostForm("column_mapping"); raw != "" {
		var cm mappingfile.ColumnMapping
		if err := json.Unmarshal([]byte(raw), &cm); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		opts.ColumnMapping = &cm
	}

	summary, err := h.importer.Merge(c.Request.Context(), alignmentID, fileHeader.Filename, data, opts, currentUserID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, summary)
}

// GET /api/alignments/:id/imports
func (h *ImportHandler) History(c *gin.Context) {
	alignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	imports, err := h.importer.History(c.Request.Context(), alignmentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"imports": imports})
}

// DELETE /api/imports/:id
func (h *ImportHandler) Undo(c *gin.Context) {
	importID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.importer.Undo(c.Request.Context(), importID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
