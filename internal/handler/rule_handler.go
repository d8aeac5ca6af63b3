package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tessera/internal/service"
)

// RuleHandler handles extraction rule endpoints.
type RuleHandler struct {
	ruleService service.RuleService
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleService service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// Create handles POST /api/v1/projects/:id/rules
func (h *RuleHandler) Create(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid project ID")
		return
	}
	var req struct {
		TargetField *string         `json:"target_field"`
		RuleContent string          `json:"rule_content" binding:"required"`
		RuleConfig  json.RawMessage `json:"rule_config"`
		CreatedBy   uuid.UUID       `json:"created_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "rule_content is required")
		return
	}
	rule, err := h.ruleService.CreateRule(c.Request.Context(), service.CreateRuleInput{
		ProjectID:   projectID,
		TargetField: req.TargetField,
		RuleContent: req.RuleContent,
		RuleConfig:  req.RuleConfig,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, rule)
}

// List handles GET /api/v1/projects/:id/rules?active=true
func (h *RuleHandler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid project ID")
		return
	}
	activeOnly := c.Query("active") == "true"
	rules, err := h.ruleService.ListRules(c.Request.Context(), projectID, activeOnly)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rules)
}

// Update handles PUT /api/v1/rules/:id
func (h *RuleHandler) Update(c *gin.Context) {
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid rule ID")
		return
	}
	var req struct {
		TargetField *string         `json:"target_field"`
		RuleContent string          `json:"rule_content" binding:"required"`
		RuleConfig  json.RawMessage `json:"rule_config"`
		IsActive    bool            `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "rule_content is required")
		return
	}
	rule, err := h.ruleService.UpdateRule(c.Request.Context(), ruleID, service.UpdateRuleInput{
		TargetField: req.TargetField,
		RuleContent: req.RuleContent,
		RuleConfig:  req.RuleConfig,
		IsActive:    req.IsActive,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rule)
}

// Delete handles DELETE /api/v1/rules/:id
func (h *RuleHandler) Delete(c *gin.Context) {
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid rule ID")
		return
	}
	if err := h.ruleService.DeleteRule(c.Request.Context(), ruleID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
