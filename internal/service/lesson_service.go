package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/brightpath-edu/scheduling-api/internal/models"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
)

type lessonLister interface {
	FindByID(ctx context.Context, id string) (*models.LessonInstance, error)
	List(ctx context.Context, filter models.LessonFilter) ([]models.LessonInstance, int, error)
	ListRoster(ctx context.Context, lessonID string) ([]string, error)
}

// LessonService exposes read access to the lesson calendar.
type LessonService struct {
	lessons lessonLister
	logger  *zap.Logger
}

// NewLessonService constructs the service.
func NewLessonService(lessons lessonLister, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{lessons: lessons, logger: logger}
}

// Get loads one lesson with its roster.
func (s *LessonService) Get(ctx context.Context, id string) (*models.LessonInstance, []string, error) {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, nil, fmt.Errorf("load lesson: %w", err)
	}
	roster, err := s.lessons.ListRoster(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return lesson, roster, nil
}

// List returns lessons matching the filter with pagination metadata.
func (s *LessonService) List(ctx context.Context, filter models.LessonFilter) ([]models.LessonInstance, *models.Pagination, error) {
	lessons, total, err := s.lessons.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return lessons, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
