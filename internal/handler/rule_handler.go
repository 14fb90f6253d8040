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

type ruleRoster interface {
	ListRules(ctx context.Context) ([]models.Rule, error)
	GetRule(ctx context.Context, id int64) (*models.Rule, error)
	CreateRule(ctx context.Context, req dto.RuleRequest) (*models.Rule, error)
	UpdateRule(ctx context.Context, id int64, req dto.RuleRequest) (*models.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
}

// RuleHandler wires rule roster operations to HTTP routes.
type RuleHandler struct {
	roster ruleRoster
}

// NewRuleHandler constructs a new RuleHandler.
func NewRuleHandler(roster ruleRoster) *RuleHandler {
	return &RuleHandler{roster: roster}
}

// List godoc
// @Summary List minimum-hours rules
// @Tags Rules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	items, err := h.roster.ListRules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get minimum-hours rule
// @Tags Rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /rules/{id} [get]
func (h *RuleHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.roster.GetRule(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body dto.RuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /rules [post]
func (h *RuleHandler) Create(c *gin.Context) {
	var req dto.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.roster.CreateRule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param payload body dto.RuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /rules/{id} [put]
func (h *RuleHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.roster.UpdateRule(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete rule
// @Description Compliance falls back to no minimum for the teacher.
// @Tags Rules
// @Param id path int true "Rule ID"
// @Success 204
// @Router /rules/{id} [delete]
func (h *RuleHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.roster.DeleteRule(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
