package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	"github.com/brightpath-edu/scheduling-api/internal/models"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
)

type availabilityTemplateRepo interface {
	ListByTutor(ctx context.Context, tutorID string) ([]models.AvailabilityTemplate, error)
	Create(ctx context.Context, template *models.AvailabilityTemplate) error
	Delete(ctx context.Context, tutorID, id string) error
}

type tutorReader interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

// AvailabilityTemplateService manages tutors' weekly teaching windows.
type AvailabilityTemplateService struct {
	templates availabilityTemplateRepo
	tutors    tutorReader
	cache     gridInvalidator
	logger    *zap.Logger
}

// NewAvailabilityTemplateService constructs the service.
func NewAvailabilityTemplateService(templates availabilityTemplateRepo, tutors tutorReader, cache gridInvalidator, logger *zap.Logger) *AvailabilityTemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityTemplateService{templates: templates, tutors: tutors, cache: cache, logger: logger}
}

// List returns a tutor's weekly windows.
func (s *AvailabilityTemplateService) List(ctx context.Context, tutorID string) ([]models.AvailabilityTemplate, error) {
	return s.templates.ListByTutor(ctx, tutorID)
}

// Create validates and stores a new weekly window.
func (s *AvailabilityTemplateService) Create(ctx context.Context, tutorID string, req dto.CreateAvailabilityTemplateRequest) (*models.AvailabilityTemplate, error) {
	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, fmt.Errorf("load tutor: %w", err)
	}
	if !tutor.Active {
		return nil, appErrors.ErrTutorInactive
	}

	day := strings.ToLower(strings.TrimSpace(req.DayOfWeek))
	if !knownWeekdays[day] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", req.DayOfWeek))
	}

	startMin, err := parseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	endMin, err := parseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if endMin <= startMin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	template := &models.AvailabilityTemplate{
		TutorID:   tutorID,
		DayOfWeek: day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return template, nil
}

// Delete removes a weekly window.
func (s *AvailabilityTemplateService) Delete(ctx context.Context, tutorID, id string) error {
	if err := s.templates.Delete(ctx, tutorID, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *AvailabilityTemplateService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "availability:*"); err != nil {
		s.logger.Sugar().Warnw("availability cache invalidation failed", "error", err)
	}
}
