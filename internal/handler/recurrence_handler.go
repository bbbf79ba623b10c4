package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	"github.com/brightpath-edu/scheduling-api/internal/models"
	"github.com/brightpath-edu/scheduling-api/pkg/response"
)

type recurrenceRunner interface {
	RunExtension(ctx context.Context) (*dto.ExtensionRunSummary, error)
	ListDueGroups(ctx context.Context) ([]models.RecurringGroup, error)
}

type extensionObserver interface {
	ObserveExtensionRun(instances, failures int, duration time.Duration)
}

// RecurrenceHandler exposes the recurring-lesson extension job over HTTP.
type RecurrenceHandler struct {
	service recurrenceRunner
	metrics extensionObserver
}

// NewRecurrenceHandler builds a new handler. Metrics may be nil.
func NewRecurrenceHandler(service recurrenceRunner, metrics extensionObserver) *RecurrenceHandler {
	return &RecurrenceHandler{service: service, metrics: metrics}
}

// Run godoc
// @Summary Trigger a recurrence extension run
// @Description Extends every recurring group whose generated window has fallen behind the lookahead threshold. Failed groups keep their cursor and are retried next run.
// @Tags Recurrence
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /recurrence/run [post]
func (h *RecurrenceHandler) Run(c *gin.Context) {
	summary, err := h.service.RunExtension(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveExtensionRun(summary.TotalInstancesGenerated, summary.GroupsFailed, summary.FinishedAt.Sub(summary.StartedAt))
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ListDueGroups godoc
// @Summary List recurring groups due for extension
// @Tags Recurrence
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /recurrence/groups [get]
func (h *RecurrenceHandler) ListDueGroups(c *gin.Context) {
	groups, err := h.service.ListDueGroups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}
