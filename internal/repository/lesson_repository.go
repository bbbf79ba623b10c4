package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/brightpath-edu/scheduling-api/internal/models"
)

// LessonRepository provides persistence for lesson instances and their
// student rosters.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = `id, title, description, subject_id, tutor_id, start_time, end_time, status, is_recurring_instance, parent_lesson_id, instance_date, recurrence_interval, recurrence_end_date, recurrence_day, room_id, room_url, space_id, created_at, updated_at`

// FindByID loads a lesson instance by id.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.LessonInstance, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1`, lessonColumns)
	var lesson models.LessonInstance
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListScheduledInRange returns scheduled or in-progress lessons for the given
// tutors whose start time falls within [from, to].
func (r *LessonRepository) ListScheduledInRange(ctx context.Context, tutorIDs []string, from, to time.Time) ([]models.LessonInstance, error) {
	if len(tutorIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE tutor_id = ANY($1) AND status IN ('scheduled', 'in_progress') AND start_time >= $2 AND start_time <= $3 ORDER BY start_time ASC`, lessonColumns)
	var lessons []models.LessonInstance
	if err := r.db.SelectContext(ctx, &lessons, query, pq.Array(tutorIDs), from, to); err != nil {
		return nil, fmt.Errorf("list scheduled lessons: %w", err)
	}
	return lessons, nil
}

// ListRoster returns the student ids attached to a lesson.
func (r *LessonRepository) ListRoster(ctx context.Context, lessonID string) ([]string, error) {
	const query = `SELECT student_id FROM lesson_students WHERE lesson_id = $1 ORDER BY student_id ASC`
	var studentIDs []string
	if err := r.db.SelectContext(ctx, &studentIDs, query, lessonID); err != nil {
		return nil, fmt.Errorf("list lesson roster: %w", err)
	}
	return studentIDs, nil
}

// BulkCreateWithTx inserts lesson instances using an existing transaction.
func (r *LessonRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, lessons []models.LessonInstance) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	const query = `INSERT INTO lessons (id, title, description, subject_id, tutor_id, start_time, end_time, status, is_recurring_instance, parent_lesson_id, instance_date, recurrence_interval, recurrence_end_date, recurrence_day, room_id, room_url, space_id, created_at, updated_at) VALUES (:id, :title, :description, :subject_id, :tutor_id, :start_time, :end_time, :status, :is_recurring_instance, :parent_lesson_id, :instance_date, :recurrence_interval, :recurrence_end_date, :recurrence_day, :room_id, :room_url, :space_id, :created_at, :updated_at)`

	for i := range lessons {
		payload := lessons[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
			return fmt.Errorf("bulk insert lesson: %w", err)
		}
		lessons[i] = payload
	}
	return nil
}

// AttachStudentsWithTx links students to lessons using an existing
// transaction. Pairs are inserted idempotently.
func (r *LessonRepository) AttachStudentsWithTx(ctx context.Context, tx *sqlx.Tx, pairs []models.LessonStudent) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `INSERT INTO lesson_students (lesson_id, student_id) VALUES (:lesson_id, :student_id) ON CONFLICT (lesson_id, student_id) DO NOTHING`
	for i := range pairs {
		if _, err := sqlx.NamedExecContext(ctx, tx, query, &pairs[i]); err != nil {
			return fmt.Errorf("attach student to lesson: %w", err)
		}
	}
	return nil
}

// List returns lessons with optional filtering and pagination.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.LessonInstance, int, error) {
	base := "FROM lessons WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_time": true,
		"status":     true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_time"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", lessonColumns, base, sortBy, order, size, offset)
	var lessons []models.LessonInstance
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}

	return lessons, total, nil
}
