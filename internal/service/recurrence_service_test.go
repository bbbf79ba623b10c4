package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brightpath-edu/scheduling-api/internal/models"
	"github.com/brightpath-edu/scheduling-api/pkg/config"
	appErrors "github.com/brightpath-edu/scheduling-api/pkg/errors"
)

type stubGroupRepo struct {
	due          []models.RecurringGroup
	listErr      error
	progressErr  error
	gotProgress  *models.RecurringGroupProgress
	gotPrevCurse time.Time
}

func (s *stubGroupRepo) ListNeedingExtension(ctx context.Context, threshold time.Time) ([]models.RecurringGroup, error) {
	return s.due, s.listErr
}

func (s *stubGroupRepo) FindByID(ctx context.Context, id string) (*models.RecurringGroup, error) {
	for i := range s.due {
		if s.due[i].ID == id {
			return &s.due[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubGroupRepo) UpdateProgress(ctx context.Context, exec sqlx.ExtContext, id string, prevCursor time.Time, progress models.RecurringGroupProgress) error {
	if s.progressErr != nil {
		return s.progressErr
	}
	s.gotPrevCurse = prevCursor
	s.gotProgress = &progress
	return nil
}

type stubLessonRepo struct {
	templates map[string]*models.LessonInstance
	rosters   map[string][]string
	created   []models.LessonInstance
	attached  []models.LessonStudent
	createErr error
}

func (s *stubLessonRepo) FindByID(ctx context.Context, id string) (*models.LessonInstance, error) {
	if tpl, ok := s.templates[id]; ok {
		return tpl, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubLessonRepo) ListRoster(ctx context.Context, lessonID string) ([]string, error) {
	return s.rosters[lessonID], nil
}

func (s *stubLessonRepo) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, lessons []models.LessonInstance) error {
	if s.createErr != nil {
		return s.createErr
	}
	for i := range lessons {
		lessons[i].ID = fmt.Sprintf("inst-%d", len(s.created)+i+1)
	}
	s.created = append(s.created, lessons...)
	return nil
}

func (s *stubLessonRepo) AttachStudentsWithTx(ctx context.Context, tx *sqlx.Tx, pairs []models.LessonStudent) error {
	s.attached = append(s.attached, pairs...)
	return nil
}

type stubInvalidator struct {
	patterns []string
}

func (s *stubInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func recurrenceTestConfig() config.RecurrenceConfig {
	return config.RecurrenceConfig{LookaheadDays: 7, HorizonDays: 90, BatchSize: 20}
}

func newMockTxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func weeklyTemplate() *models.LessonInstance {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &models.LessonInstance{
		ID:        "tpl-1",
		Title:     "Algebra",
		SubjectID: "sub-1",
		TutorID:   "tut-1",
		StartTime: start,
		EndTime:   start.Add(90 * time.Minute),
		Status:    models.LessonStatusScheduled,
	}
}

func TestExpandGroupWeeklyFillsBatch(t *testing.T) {
	template := weeklyTemplate()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	group := models.RecurringGroup{
		ID:                      "grp-1",
		TemplateLessonID:        template.ID,
		RecurrenceInterval:      models.RecurrenceWeekly,
		IsInfinite:              true,
		InstancesGeneratedUntil: template.StartTime,
	}

	// 90-day horizon holds 12 weekly steps, well under the batch cap
	instances := expandGroup(group, *template, now, 90, 20)
	require.Len(t, instances, 12)

	prev := group.InstancesGeneratedUntil
	for i, inst := range instances {
		assert.Equal(t, prev.AddDate(0, 0, 7), inst.StartTime, "instance %d", i)
		assert.Equal(t, 90*time.Minute, inst.Duration(), "instance %d", i)
		assert.True(t, inst.IsRecurringInstance)
		require.NotNil(t, inst.ParentLessonID)
		assert.Equal(t, template.ID, *inst.ParentLessonID)
		assert.Equal(t, models.LessonStatusScheduled, inst.Status)
		prev = inst.StartTime
	}
}

func TestExpandGroupWeeklyFullBatchUnderWideHorizon(t *testing.T) {
	template := weeklyTemplate()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	group := models.RecurringGroup{
		RecurrenceInterval:      models.RecurrenceWeekly,
		InstancesGeneratedUntil: template.StartTime,
	}

	instances := expandGroup(group, *template, now, 200, 20)
	require.Len(t, instances, 20)
	for i := 1; i < len(instances); i++ {
		assert.Equal(t, instances[i-1].StartTime.AddDate(0, 0, 7), instances[i].StartTime)
		assert.Equal(t, 90*time.Minute, instances[i].Duration())
	}
}

func TestExpandGroupBatchCap(t *testing.T) {
	template := weeklyTemplate()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	group := models.RecurringGroup{
		RecurrenceInterval:      models.RecurrenceDaily,
		InstancesGeneratedUntil: template.StartTime,
	}

	// daily cadence over 90 days would yield far more than the cap
	instances := expandGroup(group, *template, now, 90, 20)
	assert.Len(t, instances, 20)
	assert.Equal(t, template.StartTime.AddDate(0, 0, 20), instances[19].StartTime)
}

func TestExpandGroupUnknownIntervalFallsBackToWeekly(t *testing.T) {
	template := weeklyTemplate()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	group := models.RecurringGroup{
		RecurrenceInterval:      models.RecurrenceInterval("fortnightly-ish"),
		InstancesGeneratedUntil: template.StartTime,
	}

	instances := expandGroup(group, *template, now, 90, 20)
	require.NotEmpty(t, instances)
	assert.Equal(t, template.StartTime.AddDate(0, 0, 7), instances[0].StartTime)
}

func TestExpandGroupRespectsRecurrenceEndDate(t *testing.T) {
	template := weeklyTemplate()
	end := template.StartTime.AddDate(0, 0, 21)
	template.RecurrenceEndDate = &end
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	group := models.RecurringGroup{
		RecurrenceInterval:      models.RecurrenceWeekly,
		InstancesGeneratedUntil: template.StartTime,
	}

	instances := expandGroup(group, *template, now, 90, 20)
	assert.Len(t, instances, 3)
}

func TestExpandGroupCursorAtHorizonYieldsNothing(t *testing.T) {
	template := weeklyTemplate()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	group := models.RecurringGroup{
		RecurrenceInterval:      models.RecurrenceWeekly,
		InstancesGeneratedUntil: now.AddDate(0, 0, 89),
	}

	instances := expandGroup(group, *template, now, 90, 20)
	assert.Empty(t, instances)
}

func TestExtendGroupAttachesRosterCrossProduct(t *testing.T) {
	db, mock, cleanup := newMockTxDB(t)
	defer cleanup()

	template := weeklyTemplate()
	lessons := &stubLessonRepo{
		templates: map[string]*models.LessonInstance{template.ID: template},
		rosters:   map[string][]string{template.ID: {"stu-1", "stu-2"}},
	}
	groups := &stubGroupRepo{}
	cache := &stubInvalidator{}

	svc := NewRecurrenceService(db, groups, lessons, cache, recurrenceTestConfig(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }

	mock.ExpectBegin()
	mock.ExpectCommit()

	group := models.RecurringGroup{
		ID:                      "grp-1",
		TemplateLessonID:        template.ID,
		RecurrenceInterval:      models.RecurrenceWeekly,
		IsInfinite:              true,
		InstancesGeneratedUntil: template.StartTime,
		TotalInstancesGenerated: 1,
	}
	result, err := svc.ExtendGroup(context.Background(), group)
	require.NoError(t, err)

	assert.True(t, result.CursorAdvanced)
	assert.Equal(t, 12, result.InstancesCreated)
	assert.Len(t, lessons.created, 12)
	assert.Len(t, lessons.attached, 24, "every instance gets the full roster")

	require.NotNil(t, groups.gotProgress)
	assert.Equal(t, template.StartTime, groups.gotPrevCurse)
	assert.Equal(t, lessons.created[11].StartTime, groups.gotProgress.InstancesGeneratedUntil)
	assert.Equal(t, 13, groups.gotProgress.TotalInstancesGenerated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendGroupCursorMoved(t *testing.T) {
	db, mock, cleanup := newMockTxDB(t)
	defer cleanup()

	template := weeklyTemplate()
	lessons := &stubLessonRepo{
		templates: map[string]*models.LessonInstance{template.ID: template},
	}
	groups := &stubGroupRepo{progressErr: sql.ErrNoRows}

	svc := NewRecurrenceService(db, groups, lessons, nil, recurrenceTestConfig(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }

	mock.ExpectBegin()
	mock.ExpectRollback()

	group := models.RecurringGroup{
		ID:                      "grp-1",
		TemplateLessonID:        template.ID,
		RecurrenceInterval:      models.RecurrenceWeekly,
		InstancesGeneratedUntil: template.StartTime,
	}
	_, err := svc.ExtendGroup(context.Background(), group)
	assert.ErrorIs(t, err, appErrors.ErrCursorMoved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendGroupNothingDue(t *testing.T) {
	db, _, cleanup := newMockTxDB(t)
	defer cleanup()

	template := weeklyTemplate()
	lessons := &stubLessonRepo{
		templates: map[string]*models.LessonInstance{template.ID: template},
	}
	groups := &stubGroupRepo{}

	svc := NewRecurrenceService(db, groups, lessons, nil, recurrenceTestConfig(), zap.NewNop())
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	group := models.RecurringGroup{
		ID:                      "grp-1",
		TemplateLessonID:        template.ID,
		RecurrenceInterval:      models.RecurrenceWeekly,
		InstancesGeneratedUntil: now.AddDate(0, 0, 89),
	}
	result, err := svc.ExtendGroup(context.Background(), group)
	require.NoError(t, err)
	assert.False(t, result.CursorAdvanced)
	assert.Zero(t, result.InstancesCreated)
	assert.Empty(t, lessons.created)
}

func TestRunExtensionIsolatesFailures(t *testing.T) {
	db, mock, cleanup := newMockTxDB(t)
	defer cleanup()

	template := weeklyTemplate()
	lessons := &stubLessonRepo{
		templates: map[string]*models.LessonInstance{template.ID: template},
	}
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	groups := &stubGroupRepo{
		due: []models.RecurringGroup{
			{ID: "grp-bad", TemplateLessonID: "missing", RecurrenceInterval: models.RecurrenceWeekly, InstancesGeneratedUntil: template.StartTime},
			{ID: "grp-good", TemplateLessonID: template.ID, RecurrenceInterval: models.RecurrenceWeekly, InstancesGeneratedUntil: template.StartTime},
		},
	}
	cache := &stubInvalidator{}

	svc := NewRecurrenceService(db, groups, lessons, cache, recurrenceTestConfig(), zap.NewNop())
	svc.now = func() time.Time { return now }

	mock.ExpectBegin()
	mock.ExpectCommit()

	summary, err := svc.RunExtension(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Equal(t, 1, summary.GroupsFailed)
	assert.Equal(t, 12, summary.TotalInstancesGenerated)
	require.Len(t, summary.Groups, 1)
	assert.Equal(t, "grp-good", summary.Groups[0].GroupID)
	assert.Equal(t, []string{"availability:*"}, cache.patterns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunExtensionListFailure(t *testing.T) {
	db, _, cleanup := newMockTxDB(t)
	defer cleanup()

	groups := &stubGroupRepo{listErr: errors.New("db down")}
	svc := NewRecurrenceService(db, groups, &stubLessonRepo{}, nil, recurrenceTestConfig(), zap.NewNop())

	_, err := svc.RunExtension(context.Background())
	assert.Error(t, err)
}
