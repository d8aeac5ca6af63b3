package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/schema"
	"tessera/internal/service"
)

// ProjectHandler handles project and schema definition endpoints.
type ProjectHandler struct {
	projectService service.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// Create handles POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Name       string            `json:"name" binding:"required"`
		SchemaMode domain.SchemaMode `json:"schema_mode" binding:"required"`
		CreatedBy  uuid.UUID         `json:"created_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "name and schema_mode are required")
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), service.CreateProjectInput{
		Name:       req.Name,
		SchemaMode: req.SchemaMode,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, project)
}

// GetByID handles GET /api/v1/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid project ID")
		return
	}
	project, err := h.projectService.GetProject(c.Request.Context(), projectID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, project)
}

// List handles GET /api/v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	projects, total, err := h.projectService.ListProjects(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, projects, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// elementResponse is the wire shape of one resolved schema element.
type elementResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	GroupID      *uuid.UUID `json:"group_id,omitempty"`
	GroupName    string     `json:"group_name,omitempty"`
	GroupIsList  bool       `json:"group_is_list"`
	IsIdentifier bool       `json:"is_identifier"`
	OrderIndex   int        `json:"order_index"`
}

// GetSchema handles GET /api/v1/projects/:id/schema
func (h *ProjectHandler) GetSchema(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid project ID")
		return
	}
	resolved, err := h.projectService.ResolveSchema(c.Request.Context(), projectID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"project_id": resolved.ProjectID,
		"mode":       resolved.Mode,
		"elements":   elementResponses(resolved),
	})
}

func elementResponses(resolved *schema.Resolved) []elementResponse {
	elements := resolved.Elements()
	out := make([]elementResponse, 0, len(elements))
	for _, el := range elements {
		out = append(out, elementResponse{
			ID:           el.ID,
			Name:         el.Name,
			Type:         string(el.Type),
			GroupID:      el.GroupID,
			GroupName:    el.GroupName,
			GroupIsList:  el.GroupIsList,
			IsIdentifier: el.IsIdentifier,
			OrderIndex:   el.OrderIndex,
		})
	}
	return out
}

// AddField handles POST /api/v1/projects/:id/fields
func (h *ProjectHandler) AddField(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid project ID")
		return
	}
	var req struct {
		Name       string           `json:"name" binding:"required"`
		FieldType  domain.FieldType `json:"field_type" binding:"required"`
		OrderIndex int              `json:"order_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "name and field_type are required")
		return
	}
	field, err := h.projectService.AddField(c.Request.Context(), service.AddFieldInput{
		ProjectID:  projectID,
		Name:       req.Name,
		FieldType:  req.FieldType,
		OrderIndex: req.OrderIndex,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, field)
}

// AddCollection handles POST /api/v1/projects/:id/collections
func (h *ProjectHandler) AddCollection(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid project ID")
		return
	}
	var req struct {
		Name       string `json:"name" binding:"required"`
		OrderIndex int    `json:"order_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "name is required")
		return
	}
	collection, err := h.projectService.AddCollection(c.Request.Context(), service.AddCollectionInput{
		ProjectID:  projectID,
		Name:       req.Name,
		OrderIndex: req.OrderIndex,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, collection)
}

// AddProperty handles POST /api/v1/collections/:id/properties
func (h *ProjectHandler) AddProperty(c *gin.Context) {
	collectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid collection ID")
		return
	}
	var req struct {
		Name         string           `json:"name" binding:"required"`
		FieldType    domain.FieldType `json:"field_type" binding:"required"`
		IsIdentifier bool             `json:"is_identifier"`
		OrderIndex   int              `json:"order_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "name and field_type are required")
		return
	}
	property, err := h.projectService.AddProperty(c.Request.Context(), service.AddPropertyInput{
		CollectionID: collectionID,
		Name:         req.Name,
		FieldType:    req.FieldType,
		IsIdentifier: req.IsIdentifier,
		OrderIndex:   req.OrderIndex,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, property)
}

// AddStep handles POST /api/v1/projects/:id/steps
func (h *ProjectHandler) AddStep(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid project ID")
		return
	}
	var req struct {
		StepName   string          `json:"step_name" binding:"required"`
		StepType   domain.StepType `json:"step_type" binding:"required"`
		OrderIndex int             `json:"order_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "step_name and step_type are required")
		return
	}
	step, err := h.projectService.AddStep(c.Request.Context(), service.AddStepInput{
		ProjectID:  projectID,
		StepName:   req.StepName,
		StepType:   req.StepType,
		OrderIndex: req.OrderIndex,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, step)
}

// AddStepValue handles POST /api/v1/steps/:id/values
func (h *ProjectHandler) AddStepValue(c *gin.Context) {
	stepID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid step ID")
		return
	}
	var req struct {
		ValueName    string           `json:"value_name" binding:"required"`
		DataType     domain.FieldType `json:"data_type" binding:"required"`
		ToolID       *uuid.UUID       `json:"tool_id"`
		IsIdentifier bool             `json:"is_identifier"`
		OrderIndex   int              `json:"order_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "value_name and data_type are required")
		return
	}
	value, err := h.projectService.AddStepValue(c.Request.Context(), service.AddStepValueInput{
		StepID:       stepID,
		ValueName:    req.ValueName,
		DataType:     req.DataType,
		ToolID:       req.ToolID,
		IsIdentifier: req.IsIdentifier,
		OrderIndex:   req.OrderIndex,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, value)
}
