package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type requirementRoster interface {
	ListRequirements(ctx context.Context) ([]models.SubjectRequirement, error)
	GetRequirement(ctx context.Context, id int64) (*models.SubjectRequirement, error)
	CreateRequirement(ctx context.Context, req dto.SubjectRequirementRequest) (*models.SubjectRequirement, error)
	UpdateRequirement(ctx context.Context, id int64, req dto.SubjectRequirementRequest) (*models.SubjectRequirement, error)
	DeleteRequirement(ctx context.Context, id int64) error
}

// SubjectRequirementHandler wires subject requirement roster operations to HTTP routes.
type SubjectRequirementHandler struct {
	roster requirementRoster
}

// NewSubjectRequirementHandler constructs a new SubjectRequirementHandler.
func NewSubjectRequirementHandler(roster requirementRoster) *SubjectRequirementHandler {
	return &SubjectRequirementHandler{roster: roster}
}

// List godoc
// @Summary List subject requirements
// @Tags SubjectRequirements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subject-requirements [get]
func (h *SubjectRequirementHandler) List(c *gin.Context) {
	items, err := h.roster.ListRequirements(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get subject requirement detail
// @Tags SubjectRequirements
// @Produce json
// @Param id path int true "Subject requirement ID"
// @Success 200 {object} response.Envelope
// @Router /subject-requirements/{id} [get]
func (h *SubjectRequirementHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.roster.GetRequirement(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create subject requirement
// @Tags SubjectRequirements
// @Accept json
// @Produce json
// @Param payload body dto.SubjectRequirementRequest true "Subject requirement payload"
// @Success 201 {object} response.Envelope
// @Router /subject-requirements [post]
func (h *SubjectRequirementHandler) Create(c *gin.Context) {
	var req dto.SubjectRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.roster.CreateRequirement(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update subject requirement
// @Tags SubjectRequirements
// @Accept json
// @Produce json
// @Param id path int true "Subject requirement ID"
// @Param payload body dto.SubjectRequirementRequest true "Subject requirement payload"
// @Success 200 {object} response.Envelope
// @Router /subject-requirements/{id} [put]
func (h *SubjectRequirementHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubjectRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.roster.UpdateRequirement(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete subject requirement
// @Description Takes effect on the next generation run.
// @Tags SubjectRequirements
// @Param id path int true "Subject requirement ID"
// @Success 204
// @Router /subject-requirements/{id} [delete]
func (h *SubjectRequirementHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.roster.DeleteRequirement(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
