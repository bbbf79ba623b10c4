package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-edu/scheduling-api/internal/models"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
	"github.com/brightpath-edu/scheduling-api/pkg/response"
)

type lessonService interface {
	Get(ctx context.Context, id string) (*models.LessonInstance, []string, error)
	List(ctx context.Context, filter models.LessonFilter) ([]models.LessonInstance, *models.Pagination, error)
}

// LessonHandler exposes read access to the lesson calendar.
type LessonHandler struct {
	service lessonService
}

// NewLessonHandler builds a new handler.
func NewLessonHandler(service lessonService) *LessonHandler {
	return &LessonHandler{service: service}
}

// lessonDetail pairs a lesson with its roster for single-lesson responses.
type lessonDetail struct {
	Lesson   *models.LessonInstance `json:"lesson"`
	Students []string               `json:"students"`
}

// Get godoc
// @Summary Get a lesson with its roster
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, students, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessonDetail{Lesson: lesson, Students: students}, nil)
}

// List godoc
// @Summary List lessons
// @Tags Lessons
// @Produce json
// @Param tutorId query string false "Filter by tutor"
// @Param subjectId query string false "Filter by subject"
// @Param status query string false "Filter by status"
// @Param from query string false "Earliest start time (RFC3339)"
// @Param to query string false "Latest start time (RFC3339)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	filter := models.LessonFilter{
		TutorID:   c.Query("tutorId"),
		SubjectID: c.Query("subjectId"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339"))
			return
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339"))
			return
		}
		filter.To = &parsed
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	lessons, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, pagination)
}
