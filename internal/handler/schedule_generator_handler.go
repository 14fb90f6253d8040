package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type scheduleGenerator interface {
	Start(ctx context.Context, req dto.GenerateScheduleRequest) (*models.GenerationRun, error)
	Status(ctx context.Context) (*models.GenerationRun, error)
	Cancel(ctx context.Context, runID string) (*models.GenerationRun, error)
}

// ScheduleGeneratorHandler exposes timetable generation endpoints.
type ScheduleGeneratorHandler struct {
	service scheduleGenerator
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc scheduleGenerator) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Regenerate the whole timetable
// @Description Clears every schedule and places one session per subject requirement in the background. Poll the status endpoint for progress.
// @Tags Generator
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest false "Optional seed"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.RequestedBy = claims.UserID
	}
	run, err := h.service.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// Status godoc
// @Summary Latest generation run
// @Tags Generator
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/generate/status [get]
func (h *ScheduleGeneratorHandler) Status(c *gin.Context) {
	run, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Cancel godoc
// @Summary Cancel a generation run
// @Description Sessions placed before cancellation stay in the timetable.
// @Tags Generator
// @Produce json
// @Param runId path string true "Generation run ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schedules/generate/{runId}/cancel [post]
func (h *ScheduleGeneratorHandler) Cancel(c *gin.Context) {
	run, err := h.service.Cancel(c.Request.Context(), c.Param("runId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}
