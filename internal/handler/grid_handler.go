package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tessera/internal/service"
)

// GridHandler handles per-cell review endpoints.
type GridHandler struct {
	gridService service.GridService
}

// NewGridHandler creates a new GridHandler.
func NewGridHandler(gridService service.GridService) *GridHandler {
	return &GridHandler{gridService: gridService}
}

// Edit handles PATCH /api/v1/cells/:id
func (h *GridHandler) Edit(c *gin.Context) {
	cellID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid cell ID")
		return
	}
	var req struct {
		Value     *string `json:"value"`
		Reasoning string  `json:"reasoning"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body")
		return
	}
	cell, err := h.gridService.EditCell(c.Request.Context(), cellID, req.Value, req.Reasoning)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, cell)
}

// Verify handles POST /api/v1/cells/:id/verify
func (h *GridHandler) Verify(c *gin.Context) {
	cellID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid cell ID")
		return
	}
	var req struct {
		Verified *bool `json:"verified"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Verified == nil {
		verified := true
		req.Verified = &verified
	}
	cell, err := h.gridService.VerifyCell(c.Request.Context(), cellID, *req.Verified)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, cell)
}
