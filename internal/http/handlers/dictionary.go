package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conceptbridge/conceptbridge-backend/internal/http/response"
	"github.com/conceptbridge/conceptbridge-backend/internal/services"
)

type DictionaryHandler struct {
	dictionary services.DictionaryService
	resolver   services.ResolverService
}

func NewDictionaryHandler(dictionary services.DictionaryService, resolver services.ResolverService) *DictionaryHandler {
	return &DictionaryHandler{dictionary: dictionary, resolver: resolver}
}

// GET /api/general-concepts?category=...
func (h *DictionaryHandler) List(c *gin.Context) {
	concepts, err := h.dictionary.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"general_concepts": concepts})
}

// GET /api/general-concepts/:id
func (h *DictionaryHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	concept, err := h.dictionary.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, concept)
}

// GET /api/general-concepts/:id/resolve
func (h *DictionaryHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	resolved, err := h.resolver.Resolve(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"concepts": resolved, "count": len(resolved)})
}

// POST /api/general-concepts/:id/entries
func (h *DictionaryHandler) AddEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req services.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.GeneralConceptID = id
	entry, err := h.dictionary.AddEntry(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, entry)
}

// POST /api/general-concepts/:id/custom-concepts
func (h *DictionaryHandler) AddCustomConcept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req services.AddCustomConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.GeneralConceptID = id
	custom, err := h.dictionary.AddCustomConcept(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, custom)
}
