package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type complianceReporter interface {
	TeacherHours(ctx context.Context) (map[int64]float64, error)
	TeacherMinHours(ctx context.Context) (map[int64]int, error)
	ComplianceRatio(ctx context.Context) (float64, error)
	Dashboard(ctx context.Context) (*models.Dashboard, bool, error)
}

// DashboardHandler exposes workload compliance projections.
type DashboardHandler struct {
	service complianceReporter
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service complianceReporter) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Dashboard godoc
// @Summary Admin dashboard summary
// @Description Totals, overall compliance ratio and per-teacher progress. Served from cache when enabled; see the X-Cache header.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.StampProcessingTime(c, start))
}

// TeacherHours godoc
// @Summary Scheduled hours per teacher
// @Tags Compliance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /compliance/hours [get]
func (h *DashboardHandler) TeacherHours(c *gin.Context) {
	hours, err := h.service.TeacherHours(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	entries := make([]dto.TeacherHoursEntry, 0, len(hours))
	for id, value := range hours {
		entries = append(entries, dto.TeacherHoursEntry{TeacherID: id, Hours: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TeacherID < entries[j].TeacherID })
	response.JSON(c, http.StatusOK, entries, nil)
}

// TeacherMinHours godoc
// @Summary Effective minimum hours per teacher
// @Description When several rules name the same teacher the most recently created one wins.
// @Tags Compliance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /compliance/min-hours [get]
func (h *DashboardHandler) TeacherMinHours(c *gin.Context) {
	minHours, err := h.service.TeacherMinHours(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	entries := make([]dto.TeacherMinHoursEntry, 0, len(minHours))
	for id, value := range minHours {
		entries = append(entries, dto.TeacherMinHoursEntry{TeacherID: id, MinHours: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TeacherID < entries[j].TeacherID })
	response.JSON(c, http.StatusOK, entries, nil)
}

// ComplianceRatio godoc
// @Summary Percentage of ruled teachers meeting their minimum
// @Tags Compliance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /compliance/ratio [get]
func (h *DashboardHandler) ComplianceRatio(c *gin.Context) {
	ratio, err := h.service.ComplianceRatio(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ComplianceRatioResponse{Ratio: ratio}, nil)
}
