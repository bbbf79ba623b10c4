package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-edu/scheduling-api/internal/models"
)

func TestAvailabilityTemplateRepositoryListByTutors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityTemplateRepository(db)

	rows := sqlmock.NewRows([]string{"id", "tutor_id", "day_of_week", "start_time", "end_time", "created_at", "updated_at"}).
		AddRow("tpl-1", "tut-1", "monday", "09:00", "17:00", time.Now(), time.Now()).
		AddRow("tpl-2", "tut-2", "tuesday", "10:00", "14:00", time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_templates WHERE tutor_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	templates, err := repo.ListByTutors(context.Background(), []string{"tut-1", "tut-2"})
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "monday", templates[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityTemplateRepositoryListByTutorsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityTemplateRepository(db)

	templates, err := repo.ListByTutors(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, templates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityTemplateRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityTemplateRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_templates")).
		WithArgs(sqlmock.AnyArg(), "tut-1", "monday", "09:00", "17:00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	template := &models.AvailabilityTemplate{
		TutorID:   "tut-1",
		DayOfWeek: "monday",
		StartTime: "09:00",
		EndTime:   "17:00",
	}
	require.NoError(t, repo.Create(context.Background(), template))
	assert.NotEmpty(t, template.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityTemplateRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityTemplateRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_templates WHERE id = $1 AND tutor_id = $2")).
		WithArgs("tpl-1", "tut-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), "tut-1", "tpl-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
