package router

import (
	"github.com/gin-gonic/gin"

	"tessera/internal/handler"
	"tessera/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	corsOrigins []string,
	projectH *handler.ProjectHandler,
	sessionH *handler.SessionHandler,
	jobH *handler.JobHandler,
	gridH *handler.GridHandler,
	ruleH *handler.RuleHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Projects and schema definition
	projects := v1.Group("/projects")
	projects.POST("", projectH.Create)
	projects.GET("", projectH.List)
	projects.GET("/:id", projectH.GetByID)
	projects.GET("/:id/schema", projectH.GetSchema)
	projects.POST("/:id/fields", projectH.AddField)
	projects.POST("/:id/collections", projectH.AddCollection)
	projects.POST("/:id/steps", projectH.AddStep)
	projects.POST("/:id/rules", ruleH.Create)
	projects.GET("/:id/rules", ruleH.List)

	v1.POST("/collections/:id/properties", projectH.AddProperty)
	v1.POST("/steps/:id/values", projectH.AddStepValue)

	// Sessions, grid, exports
	sessions := v1.Group("/sessions")
	sessions.POST("", sessionH.Create)
	sessions.GET("", sessionH.List)
	sessions.GET("/:id", sessionH.GetByID)
	sessions.POST("/:id/close", sessionH.Close)
	sessions.GET("/:id/grid", sessionH.Grid)
	sessions.GET("/:id/rows", sessionH.Rows)
	sessions.GET("/:id/export", sessionH.Export)
	sessions.POST("/:id/jobs", jobH.Create)
	sessions.GET("/:id/jobs", jobH.ListBySession)

	// Jobs
	jobs := v1.Group("/jobs")
	jobs.GET("/:id", jobH.GetByID)
	jobs.POST("/:id/cancel", jobH.Cancel)
	jobs.GET("/:id/logs", jobH.Logs)
	jobs.POST("/:id/logs", jobH.AddLog)
	jobs.PUT("/:id/cache/:key", jobH.PutCache)
	jobs.GET("/:id/cache/:key", jobH.GetCache)

	// Grid cells
	cells := v1.Group("/cells")
	cells.PATCH("/:id", gridH.Edit)
	cells.POST("/:id/verify", gridH.Verify)

	// Rules
	rules := v1.Group("/rules")
	rules.PUT("/:id", ruleH.Update)
	rules.DELETE("/:id", ruleH.Delete)

	return r
}
