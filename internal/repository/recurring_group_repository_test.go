package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-edu/scheduling-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRecurringGroupRepositoryListNeedingExtension(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecurringGroupRepository(db)

	threshold := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "template_lesson_id", "recurrence_interval", "is_infinite", "instances_generated_until", "total_instances_generated", "next_extension_date", "created_at", "updated_at"}).
		AddRow("grp-1", "lesson-1", string(models.RecurrenceWeekly), true, threshold.AddDate(0, 0, -3), 12, nil, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM recurring_groups WHERE is_infinite = true AND instances_generated_until < $1 ORDER BY instances_generated_until ASC")).
		WithArgs(threshold).
		WillReturnRows(rows)

	groups, err := repo.ListNeedingExtension(context.Background(), threshold)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "grp-1", groups[0].ID)
	assert.True(t, groups[0].IsInfinite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringGroupRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecurringGroupRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO recurring_groups")).
		WithArgs(sqlmock.AnyArg(), "lesson-1", string(models.RecurrenceWeekly), true, sqlmock.AnyArg(), 0, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	group := &models.RecurringGroup{
		TemplateLessonID:        "lesson-1",
		RecurrenceInterval:      models.RecurrenceWeekly,
		IsInfinite:              true,
		InstancesGeneratedUntil: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), group))
	assert.NotEmpty(t, group.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringGroupRepositoryUpdateProgress(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecurringGroupRepository(db)

	prev := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	next := prev.AddDate(0, 0, 28)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE recurring_groups")).
		WithArgs(next, 16, sqlmock.AnyArg(), sqlmock.AnyArg(), "grp-1", prev).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProgress(context.Background(), nil, "grp-1", prev, models.RecurringGroupProgress{
		InstancesGeneratedUntil: next,
		TotalInstancesGenerated: 16,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringGroupRepositoryUpdateProgressStaleCursor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecurringGroupRepository(db)

	prev := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE recurring_groups")).
		WithArgs(sqlmock.AnyArg(), 16, sqlmock.AnyArg(), sqlmock.AnyArg(), "grp-1", prev).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProgress(context.Background(), nil, "grp-1", prev, models.RecurringGroupProgress{
		InstancesGeneratedUntil: prev.AddDate(0, 0, 28),
		TotalInstancesGenerated: 16,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
