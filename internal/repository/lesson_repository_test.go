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

func TestLessonRepositoryListScheduledInRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	rows := sqlmock.NewRows([]string{"id", "title", "tutor_id", "start_time", "end_time", "status", "is_recurring_instance"}).
		AddRow("lsn-1", "Algebra", "tut-1", from.Add(9*time.Hour), from.Add(10*time.Hour), string(models.LessonStatusScheduled), true)

	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons WHERE tutor_id = ANY($1) AND status IN ('scheduled', 'in_progress') AND start_time >= $2 AND start_time <= $3")).
		WithArgs(sqlmock.AnyArg(), from, to).
		WillReturnRows(rows)

	lessons, err := repo.ListScheduledInRange(context.Background(), []string{"tut-1"}, from, to)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "tut-1", lessons[0].TutorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListScheduledInRangeEmptyTutors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	lessons, err := repo.ListScheduledInRange(context.Background(), nil, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, lessons)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListRoster(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1").AddRow("stu-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM lesson_students WHERE lesson_id = $1")).
		WithArgs("lsn-1").
		WillReturnRows(rows)

	roster, err := repo.ListRoster(context.Background(), "lsn-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1", "stu-2"}, roster)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryBulkCreateWithTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lessons")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lessons")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lessons := []models.LessonInstance{
		{Title: "Algebra", SubjectID: "sub-1", TutorID: "tut-1", StartTime: start, EndTime: start.Add(time.Hour), Status: models.LessonStatusScheduled},
		{Title: "Algebra", SubjectID: "sub-1", TutorID: "tut-1", StartTime: start.AddDate(0, 0, 7), EndTime: start.AddDate(0, 0, 7).Add(time.Hour), Status: models.LessonStatusScheduled},
	}
	require.NoError(t, repo.BulkCreateWithTx(context.Background(), tx, lessons))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, lessons[0].ID)
	assert.NotEmpty(t, lessons[1].ID)
	assert.NotEqual(t, lessons[0].ID, lessons[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryAttachStudentsWithTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lesson_students")).
		WithArgs("lsn-1", "stu-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	pairs := []models.LessonStudent{{LessonID: "lsn-1", StudentID: "stu-1"}}
	require.NoError(t, repo.AttachStudentsWithTx(context.Background(), tx, pairs))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "tutor_id", "status"}).
		AddRow("lsn-1", "Algebra", "tut-1", string(models.LessonStatusScheduled))
	mock.ExpectQuery("SELECT .+ FROM lessons WHERE 1=1 AND tutor_id =").
		WithArgs("tut-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE 1=1 AND tutor_id = $1")).
		WithArgs("tut-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	lessons, total, err := repo.List(context.Background(), models.LessonFilter{TutorID: "tut-1"})
	require.NoError(t, err)
	assert.Len(t, lessons, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
