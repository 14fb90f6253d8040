package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type scheduleManager interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleView, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.ScheduleView, error)
	Save(ctx context.Context, id int64, req dto.SaveScheduleRequest) (*models.Schedule, error)
	Delete(ctx context.Context, id int64) error
}

// ScheduleHandler manages manual schedule endpoints.
type ScheduleHandler struct {
	service scheduleManager
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleManager) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param class_id query int false "Filter by class"
// @Param teacher_id query int false "Filter by teacher"
// @Param day_of_week query string false "Filter by day (Monday..Friday)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var query dto.ScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter := models.ScheduleFilter{
		ClassID:   query.ClassID,
		TeacherID: query.TeacherID,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if day := strings.TrimSpace(query.DayOfWeek); day != "" {
		parsed, err := models.ParseDayOfWeek(day)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid day_of_week"))
			return
		}
		filter.DayOfWeek = parsed
	}

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get schedule
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	schedule, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create schedule
// @Description Rejects the session with 409 when the teacher is already booked in an overlapping interval on that day.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.SaveScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Save(c.Request.Context(), 0, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path int true "Schedule ID"
// @Param payload body dto.SaveScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Save(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete schedule
// @Tags Schedules
// @Param id path int true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
