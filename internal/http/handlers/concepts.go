package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conceptbridge/conceptbridge-backend/internal/http/response"
	"github.com/conceptbridge/conceptbridge-backend/internal/services"
)

type ConceptHandler struct {
	matcher services.MatcherService
}

func NewConceptHandler(matcher services.MatcherService) *ConceptHandler {
	return &ConceptHandler{matcher: matcher}
}

// POST /api/concepts/search
func (h *ConceptHandler) Search(c *gin.Context) {
	var req services.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	hits, err := h.matcher.Search(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"concepts": hits, "count": len(hits)})
}

// GET /api/concepts/facets
func (h *ConceptHandler) Facets(c *gin.Context) {
	facets, err := h.matcher.Facets(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, facets)
}
