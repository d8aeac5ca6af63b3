package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tessera/internal/service"
)

// JobHandler handles extraction job endpoints.
type JobHandler struct {
	jobService service.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService service.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// Create handles POST /api/v1/sessions/:id/jobs
// The job is created pending; the queue worker picks it up.
func (h *JobHandler) Create(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return
	}
	var req struct {
		DocumentIDs []uuid.UUID `json:"document_ids" binding:"required"`
		CreatedBy   uuid.UUID   `json:"created_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "document_ids is required")
		return
	}
	job, err := h.jobService.CreateJob(c.Request.Context(), service.CreateJobInput{
		SessionID:   sessionID,
		DocumentIDs: req.DocumentIDs,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, job)
}

// ListBySession handles GET /api/v1/sessions/:id/jobs
func (h *JobHandler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return
	}
	jobs, err := h.jobService.ListJobs(c.Request.Context(), sessionID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, jobs)
}

// GetByID handles GET /api/v1/jobs/:id
func (h *JobHandler) GetByID(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return
	}
	job, err := h.jobService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// Cancel handles POST /api/v1/jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return
	}
	if err := h.jobService.CancelJob(c.Request.Context(), jobID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"cancelled": true})
}

// Logs handles GET /api/v1/jobs/:id/logs
func (h *JobHandler) Logs(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return
	}
	job, err := h.jobService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job.LogEntries())
}

// AddLog handles POST /api/v1/jobs/:id/logs
func (h *JobHandler) AddLog(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "message is required")
		return
	}
	if err := h.jobService.AddLog(c.Request.Context(), jobID, req.Message); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"logged": true})
}

// PutCache handles PUT /api/v1/jobs/:id/cache/:key
func (h *JobHandler) PutCache(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return
	}
	var req struct {
		Data     json.RawMessage `json:"data" binding:"required"`
		TTLHours int             `json:"ttl_hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "data is required")
		return
	}
	if err := h.jobService.CacheData(c.Request.Context(), jobID, c.Param("key"), req.Data, req.TTLHours); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"cached": true})
}

// GetCache handles GET /api/v1/jobs/:id/cache/:key
func (h *JobHandler) GetCache(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return
	}
	data, err := h.jobService.GetCachedData(c.Request.Context(), jobID, c.Param("key"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, data)
}
