package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	"github.com/brightpath-edu/scheduling-api/internal/models"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
)

type timeOffRepo interface {
	ListByTutor(ctx context.Context, tutorID string) ([]models.TimeOffRequest, error)
	FindByID(ctx context.Context, id string) (*models.TimeOffRequest, error)
	Create(ctx context.Context, request *models.TimeOffRequest) error
	UpdateStatus(ctx context.Context, id string, status models.TimeOffStatus) error
}

// TimeOffService manages tutor time-off requests and their review flow.
type TimeOffService struct {
	timeOff   timeOffRepo
	tutors    tutorReader
	cache     gridInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeOffService constructs the service.
func NewTimeOffService(timeOff timeOffRepo, tutors tutorReader, cache gridInvalidator, logger *zap.Logger) *TimeOffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeOffService{timeOff: timeOff, tutors: tutors, cache: cache, validator: validator.New(), logger: logger}
}

// List returns a tutor's requests, newest first.
func (s *TimeOffService) List(ctx context.Context, tutorID string) ([]models.TimeOffRequest, error) {
	return s.timeOff.ListByTutor(ctx, tutorID)
}

// Create files a pending request after validating the day range.
func (s *TimeOffService) Create(ctx context.Context, tutorID string, req dto.CreateTimeOffRequest) (*models.TimeOffRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.tutors.FindByID(ctx, tutorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, fmt.Errorf("load tutor: %w", err)
	}

	start := startOfDay(req.StartDate.UTC())
	end := startOfDay(req.EndDate.UTC())
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}

	request := &models.TimeOffRequest{
		TutorID:   tutorID,
		StartDate: start,
		EndDate:   end,
		Status:    models.TimeOffStatusPending,
		Reason:    req.Reason,
	}
	if err := s.timeOff.Create(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// Review transitions a pending request to approved or denied. Approval blocks
// the tutor's availability over the covered days, so the grid cache is
// invalidated.
func (s *TimeOffService) Review(ctx context.Context, id string, req dto.ReviewTimeOffRequest) (*models.TimeOffRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	request, err := s.timeOff.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time off request not found")
		}
		return nil, fmt.Errorf("load time off request: %w", err)
	}
	if request.Status != models.TimeOffStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request already reviewed")
	}

	status := models.TimeOffStatus(req.Status)
	if err := s.timeOff.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	request.Status = status

	if status == models.TimeOffStatusApproved && s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "availability:*"); err != nil {
			s.logger.Sugar().Warnw("availability cache invalidation failed", "error", err)
		}
	}
	return request, nil
}
