package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/brightpath-edu/scheduling-api/internal/models"
)

// AvailabilityTemplateRepository manages weekly teaching windows.
type AvailabilityTemplateRepository struct {
	db *sqlx.DB
}

// NewAvailabilityTemplateRepository builds the repository.
func NewAvailabilityTemplateRepository(db *sqlx.DB) *AvailabilityTemplateRepository {
	return &AvailabilityTemplateRepository{db: db}
}

const availabilityTemplateColumns = `id, tutor_id, day_of_week, start_time, end_time, created_at, updated_at`

// ListByTutors returns all weekly windows for the given tutors in one query.
func (r *AvailabilityTemplateRepository) ListByTutors(ctx context.Context, tutorIDs []string) ([]models.AvailabilityTemplate, error) {
	if len(tutorIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM availability_templates WHERE tutor_id = ANY($1) ORDER BY tutor_id ASC, day_of_week ASC, start_time ASC`, availabilityTemplateColumns)
	var templates []models.AvailabilityTemplate
	if err := r.db.SelectContext(ctx, &templates, query, pq.Array(tutorIDs)); err != nil {
		return nil, fmt.Errorf("list availability templates: %w", err)
	}
	return templates, nil
}

// ListByTutor returns weekly windows for a single tutor.
func (r *AvailabilityTemplateRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.AvailabilityTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_templates WHERE tutor_id = $1 ORDER BY day_of_week ASC, start_time ASC`, availabilityTemplateColumns)
	var templates []models.AvailabilityTemplate
	if err := r.db.SelectContext(ctx, &templates, query, tutorID); err != nil {
		return nil, fmt.Errorf("list availability templates by tutor: %w", err)
	}
	return templates, nil
}

// Create stores a new weekly window.
func (r *AvailabilityTemplateRepository) Create(ctx context.Context, template *models.AvailabilityTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now

	const query = `INSERT INTO availability_templates (id, tutor_id, day_of_week, start_time, end_time, created_at, updated_at) VALUES (:id, :tutor_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create availability template: %w", err)
	}
	return nil
}

// Delete removes a weekly window owned by the tutor.
func (r *AvailabilityTemplateRepository) Delete(ctx context.Context, tutorID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability_templates WHERE id = $1 AND tutor_id = $2`, id, tutorID); err != nil {
		return fmt.Errorf("delete availability template: %w", err)
	}
	return nil
}
