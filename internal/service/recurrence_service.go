package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	"github.com/brightpath-edu/scheduling-api/internal/models"
	"github.com/brightpath-edu/scheduling-api/pkg/config"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
)

type recurringGroupRepo interface {
	ListNeedingExtension(ctx context.Context, threshold time.Time) ([]models.RecurringGroup, error)
	FindByID(ctx context.Context, id string) (*models.RecurringGroup, error)
	UpdateProgress(ctx context.Context, exec sqlx.ExtContext, id string, prevCursor time.Time, progress models.RecurringGroupProgress) error
}

type lessonWriter interface {
	FindByID(ctx context.Context, id string) (*models.LessonInstance, error)
	ListRoster(ctx context.Context, lessonID string) ([]string, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, lessons []models.LessonInstance) error
	AttachStudentsWithTx(ctx context.Context, tx *sqlx.Tx, pairs []models.LessonStudent) error
}

type gridInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RecurrenceService extends recurring lesson groups by materializing upcoming
// instances ahead of a rolling horizon.
type RecurrenceService struct {
	db      *sqlx.DB
	groups  recurringGroupRepo
	lessons lessonWriter
	cache   gridInvalidator
	cfg     config.RecurrenceConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecurrenceService constructs the service. The cache may be nil when
// availability caching is disabled.
func NewRecurrenceService(db *sqlx.DB, groups recurringGroupRepo, lessons lessonWriter, cache gridInvalidator, cfg config.RecurrenceConfig, logger *zap.Logger) *RecurrenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = 7
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 90
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	return &RecurrenceService{
		db:      db,
		groups:  groups,
		lessons: lessons,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// intervalStepDays maps a cadence to its step in days. The second return is
// false for unrecognised cadences, which fall back to weekly.
func intervalStepDays(interval models.RecurrenceInterval) (int, bool) {
	switch interval {
	case models.RecurrenceDaily:
		return 1, true
	case models.RecurrenceWeekly:
		return 7, true
	case models.RecurrenceBiweekly:
		return 14, true
	case models.RecurrenceMonthly:
		return 30, true
	default:
		return 7, false
	}
}

// expandGroup computes the next batch of instances for a group without
// touching storage. Generation starts one step past the group's cursor and
// stops at the horizon, the batch cap, or the template's recurrence end date,
// whichever comes first. The returned instances preserve the template's
// wall-clock duration.
func expandGroup(group models.RecurringGroup, template models.LessonInstance, now time.Time, horizonDays, batchSize int) []models.LessonInstance {
	step, _ := intervalStepDays(group.RecurrenceInterval)
	horizon := now.AddDate(0, 0, horizonDays)
	duration := template.Duration()

	var instances []models.LessonInstance
	cursor := group.InstancesGeneratedUntil
	for len(instances) < batchSize {
		next := cursor.AddDate(0, 0, step)
		if next.After(horizon) {
			break
		}
		if template.RecurrenceEndDate != nil && next.After(*template.RecurrenceEndDate) {
			break
		}

		day := startOfDay(next)
		instances = append(instances, models.LessonInstance{
			Title:               template.Title,
			Description:         template.Description,
			SubjectID:           template.SubjectID,
			TutorID:             template.TutorID,
			StartTime:           next,
			EndTime:             next.Add(duration),
			Status:              models.LessonStatusScheduled,
			IsRecurringInstance: true,
			ParentLessonID:      &template.ID,
			InstanceDate:        &day,
			RoomID:              template.RoomID,
			RoomURL:             template.RoomURL,
			SpaceID:             template.SpaceID,
		})
		cursor = next
	}
	return instances
}

// ExtendGroup materializes the next batch of instances for one group inside
// a transaction. The cursor update carries an optimistic guard: if another
// run advanced it first the transaction rolls back and ErrCursorMoved is
// returned with nothing written.
func (s *RecurrenceService) ExtendGroup(ctx context.Context, group models.RecurringGroup) (*dto.GroupExtensionResult, error) {
	template, err := s.lessons.FindByID(ctx, group.TemplateLessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template lesson not found")
		}
		return nil, fmt.Errorf("load template lesson: %w", err)
	}

	now := s.now().UTC()
	if _, known := intervalStepDays(group.RecurrenceInterval); !known {
		s.logger.Sugar().Warnw("unknown recurrence interval, falling back to weekly",
			"group_id", group.ID, "interval", string(group.RecurrenceInterval))
	}

	instances := expandGroup(group, *template, now, s.cfg.HorizonDays, s.cfg.BatchSize)

	result := &dto.GroupExtensionResult{
		GroupID:        group.ID,
		GeneratedUntil: group.InstancesGeneratedUntil,
	}
	if len(instances) == 0 {
		result.CursorAdvanced = false
		return result, nil
	}

	roster, err := s.lessons.ListRoster(ctx, group.TemplateLessonID)
	if err != nil {
		return nil, fmt.Errorf("load template roster: %w", err)
	}

	newCursor := instances[len(instances)-1].StartTime
	nextExtension := now.AddDate(0, 0, s.cfg.HorizonDays)
	progress := models.RecurringGroupProgress{
		InstancesGeneratedUntil: newCursor,
		TotalInstancesGenerated: group.TotalInstancesGenerated + len(instances),
		NextExtensionDate:       nextExtension,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin extension transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.lessons.BulkCreateWithTx(ctx, tx, instances); err != nil {
		return nil, fmt.Errorf("insert instances for group %s: %w", group.ID, err)
	}

	if len(roster) > 0 {
		pairs := make([]models.LessonStudent, 0, len(instances)*len(roster))
		for i := range instances {
			for _, studentID := range roster {
				pairs = append(pairs, models.LessonStudent{LessonID: instances[i].ID, StudentID: studentID})
			}
		}
		if err := s.lessons.AttachStudentsWithTx(ctx, tx, pairs); err != nil {
			return nil, fmt.Errorf("attach roster for group %s: %w", group.ID, err)
		}
	}

	if err := s.groups.UpdateProgress(ctx, tx, group.ID, group.InstancesGeneratedUntil, progress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCursorMoved
		}
		return nil, fmt.Errorf("advance cursor for group %s: %w", group.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit extension for group %s: %w", group.ID, err)
	}

	result.InstancesCreated = len(instances)
	result.CursorAdvanced = true
	result.GeneratedUntil = newCursor
	result.NextExtensionDate = nextExtension
	return result, nil
}

// RunExtension performs one batch pass over all groups whose generated window
// has fallen behind the lookahead threshold. Failures are isolated per group:
// a failed group keeps its cursor and is retried on the next run.
func (s *RecurrenceService) RunExtension(ctx context.Context) (*dto.ExtensionRunSummary, error) {
	started := s.now().UTC()
	threshold := started.AddDate(0, 0, s.cfg.LookaheadDays)

	groups, err := s.groups.ListNeedingExtension(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("list due groups: %w", err)
	}

	summary := &dto.ExtensionRunSummary{StartedAt: started}
	for _, group := range groups {
		result, err := s.ExtendGroup(ctx, group)
		if err != nil {
			summary.GroupsFailed++
			s.logger.Sugar().Errorw("group extension failed",
				"group_id", group.ID, "cursor", group.InstancesGeneratedUntil, "error", err)
			continue
		}
		summary.GroupsProcessed++
		summary.TotalInstancesGenerated += result.InstancesCreated
		summary.Groups = append(summary.Groups, *result)
	}
	summary.FinishedAt = s.now().UTC()

	if summary.TotalInstancesGenerated > 0 && s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "availability:*"); err != nil {
			s.logger.Sugar().Warnw("availability cache invalidation failed", "error", err)
		}
	}

	s.logger.Sugar().Infow("extension run finished",
		"processed", summary.GroupsProcessed,
		"failed", summary.GroupsFailed,
		"instances", summary.TotalInstancesGenerated,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).String())

	return summary, nil
}

// ListDueGroups exposes the groups currently behind the lookahead threshold.
func (s *RecurrenceService) ListDueGroups(ctx context.Context) ([]models.RecurringGroup, error) {
	threshold := s.now().UTC().AddDate(0, 0, s.cfg.LookaheadDays)
	groups, err := s.groups.ListNeedingExtension(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("list due groups: %w", err)
	}
	return groups, nil
}
