package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/gridexport"
	"tessera/internal/service"
)

// SessionHandler handles extraction session endpoints, including the
// validation grid and its exports.
type SessionHandler struct {
	sessionService service.SessionService
	gridService    service.GridService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService service.SessionService, gridService service.GridService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, gridService: gridService}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		ProjectID     uuid.UUID `json:"project_id" binding:"required"`
		DocumentCount int       `json:"document_count"`
		CreatedBy     uuid.UUID `json:"created_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "project_id is required")
		return
	}
	session, err := h.sessionService.CreateSession(c.Request.Context(), service.CreateSessionInput{
		ProjectID:     req.ProjectID,
		DocumentCount: req.DocumentCount,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, session)
}

// GetByID handles GET /api/v1/sessions/:id
func (h *SessionHandler) GetByID(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return
	}
	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, session)
}

// List handles GET /api/v1/sessions?project_id=...
func (h *SessionHandler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "project_id query parameter is required")
		return
	}
	offset, limit := parsePagination(c)
	sessions, total, err := h.sessionService.ListSessions(c.Request.Context(), projectID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, sessions, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Close handles POST /api/v1/sessions/:id/close
func (h *SessionHandler) Close(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return
	}
	var req struct {
		Status domain.SessionStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		req.Status = domain.SessionStatusCompleted
	}
	session, err := h.sessionService.CloseSession(c.Request.Context(), sessionID, req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, session)
}

// Grid handles GET /api/v1/sessions/:id/grid
func (h *SessionHandler) Grid(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return
	}
	cells, err := h.gridService.Grid(c.Request.Context(), sessionID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, cells)
}

// Rows handles GET /api/v1/sessions/:id/rows
func (h *SessionHandler) Rows(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return
	}
	rows, err := h.gridService.Rows(c.Request.Context(), sessionID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rows)
}

// Export handles GET /api/v1/sessions/:id/export?format=csv|xlsx
func (h *SessionHandler) Export(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	ctx := c.Request.Context()
	sc, err := h.gridService.Resolved(ctx, sessionID)
	if err != nil {
		HandleError(c, err)
		return
	}
	cells, err := h.gridService.Grid(ctx, sessionID)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := gridexport.BuildFilename("session_"+sessionID.String(), format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if format == "xlsx" {
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		var buf bytes.Buffer
		if err := gridexport.WriteXLSX(&buf, sc, cells); err != nil {
			HandleError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	_, _ = c.Writer.Write(gridexport.BOM)
	w := gridexport.NewWriter(c.Writer)
	if err := w.WriteHeader(sc); err != nil {
		return
	}
	if err := w.WriteGrid(sc, cells); err != nil {
		return
	}
	w.Flush()
}
