package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Handlers groups every API handler mounted under the API prefix.
type Handlers struct {
	Teachers     *TeacherHandler
	Classes      *ClassHandler
	Rules        *RuleHandler
	Requirements *SubjectRequirementHandler
	Schedules    *ScheduleHandler
	Generator    *ScheduleGeneratorHandler
	Dashboard    *DashboardHandler
}

type crudHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterRoutes mounts the API on group. Reads stay open; when tokens is
// non-nil every mutating route requires an ADMIN bearer token.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	group.Use(middleware.WithResponseMeta())
	admin := middleware.Protect(tokens, models.RoleAdmin)

	mountCRUD(group.Group("/teachers"), h.Teachers, admin)
	mountCRUD(group.Group("/classes"), h.Classes, admin)
	mountCRUD(group.Group("/rules"), h.Rules, admin)
	mountCRUD(group.Group("/subject-requirements"), h.Requirements, admin)

	schedules := group.Group("/schedules")
	schedules.GET("", h.Schedules.List)
	schedules.POST("", chain(admin, h.Schedules.Create)...)
	schedules.POST("/generate", chain(admin, h.Generator.Generate)...)
	schedules.GET("/generate/status", h.Generator.Status)
	schedules.POST("/generate/:runId/cancel", chain(admin, h.Generator.Cancel)...)
	schedules.GET("/:id", h.Schedules.Get)
	schedules.PUT("/:id", chain(admin, h.Schedules.Update)...)
	schedules.DELETE("/:id", chain(admin, h.Schedules.Delete)...)

	compliance := group.Group("/compliance")
	compliance.GET("/hours", h.Dashboard.TeacherHours)
	compliance.GET("/min-hours", h.Dashboard.TeacherMinHours)
	compliance.GET("/ratio", h.Dashboard.ComplianceRatio)
	group.GET("/dashboard", h.Dashboard.Dashboard)
}

func mountCRUD(group *gin.RouterGroup, h crudHandler, admin []gin.HandlerFunc) {
	group.GET("", h.List)
	group.POST("", chain(admin, h.Create)...)
	group.GET("/:id", h.Get)
	group.PUT("/:id", chain(admin, h.Update)...)
	group.DELETE("/:id", chain(admin, h.Delete)...)
}

func chain(guards []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, handler)
}
