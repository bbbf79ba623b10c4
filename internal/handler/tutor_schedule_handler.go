package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	"github.com/brightpath-edu/scheduling-api/internal/models"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
	"github.com/brightpath-edu/scheduling-api/pkg/response"
)

type templateService interface {
	List(ctx context.Context, tutorID string) ([]models.AvailabilityTemplate, error)
	Create(ctx context.Context, tutorID string, req dto.CreateAvailabilityTemplateRequest) (*models.AvailabilityTemplate, error)
	Delete(ctx context.Context, tutorID, id string) error
}

type timeOffService interface {
	List(ctx context.Context, tutorID string) ([]models.TimeOffRequest, error)
	Create(ctx context.Context, tutorID string, req dto.CreateTimeOffRequest) (*models.TimeOffRequest, error)
	Review(ctx context.Context, id string, req dto.ReviewTimeOffRequest) (*models.TimeOffRequest, error)
}

// TutorScheduleHandler manages tutors' weekly windows and time off.
type TutorScheduleHandler struct {
	templates templateService
	timeOff   timeOffService
}

// NewTutorScheduleHandler builds a new handler.
func NewTutorScheduleHandler(templates templateService, timeOff timeOffService) *TutorScheduleHandler {
	return &TutorScheduleHandler{templates: templates, timeOff: timeOff}
}

// ListTemplates godoc
// @Summary List a tutor's weekly availability windows
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/availability [get]
func (h *TutorScheduleHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// CreateTemplate godoc
// @Summary Add a weekly availability window
// @Tags Tutors
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body dto.CreateAvailabilityTemplateRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Router /tutors/{id}/availability [post]
func (h *TutorScheduleHandler) CreateTemplate(c *gin.Context) {
	var req dto.CreateAvailabilityTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability window payload"))
		return
	}

	template, err := h.templates.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// DeleteTemplate godoc
// @Summary Remove a weekly availability window
// @Tags Tutors
// @Param id path string true "Tutor ID"
// @Param templateId path string true "Template ID"
// @Success 204
// @Router /tutors/{id}/availability/{templateId} [delete]
func (h *TutorScheduleHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templates.Delete(c.Request.Context(), c.Param("id"), c.Param("templateId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTimeOff godoc
// @Summary List a tutor's time-off requests
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/time-off [get]
func (h *TutorScheduleHandler) ListTimeOff(c *gin.Context) {
	requests, err := h.timeOff.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// CreateTimeOff godoc
// @Summary File a time-off request
// @Tags Tutors
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body dto.CreateTimeOffRequest true "Time-off payload"
// @Success 201 {object} response.Envelope
// @Router /tutors/{id}/time-off [post]
func (h *TutorScheduleHandler) CreateTimeOff(c *gin.Context) {
	var req dto.CreateTimeOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time-off payload"))
		return
	}

	request, err := h.timeOff.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ReviewTimeOff godoc
// @Summary Approve or deny a time-off request
// @Tags Tutors
// @Accept json
// @Produce json
// @Param requestId path string true "Request ID"
// @Param payload body dto.ReviewTimeOffRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /time-off/{requestId}/review [put]
func (h *TutorScheduleHandler) ReviewTimeOff(c *gin.Context) {
	var req dto.ReviewTimeOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	request, err := h.timeOff.Review(c.Request.Context(), c.Param("requestId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
