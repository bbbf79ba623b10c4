package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
	"github.com/brightpath-edu/scheduling-api/pkg/response"
)

type availabilityResolver interface {
	Resolve(ctx context.Context, req dto.ResolveAvailabilityRequest) (*dto.AvailabilityGrid, error)
}

type resolutionObserver interface {
	ObserveResolution(view string, degraded bool)
}

// AvailabilityHandler exposes the slot availability resolver.
type AvailabilityHandler struct {
	service availabilityResolver
	metrics resolutionObserver
}

// NewAvailabilityHandler builds a new handler. Metrics may be nil.
func NewAvailabilityHandler(service availabilityResolver, metrics resolutionObserver) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, metrics: metrics}
}

// Resolve godoc
// @Summary Resolve tutor availability grid
// @Description Computes the status of every requested (tutor, slot) pair from weekly templates, approved time off, and booked lessons.
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.ResolveAvailabilityRequest true "Resolution request"
// @Success 200 {object} response.Envelope
// @Router /availability/resolve [post]
func (h *AvailabilityHandler) Resolve(c *gin.Context) {
	var req dto.ResolveAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	grid, err := h.service.Resolve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveResolution(req.ViewType, grid.Degraded)
	}
	response.JSON(c, http.StatusOK, grid, nil)
}
