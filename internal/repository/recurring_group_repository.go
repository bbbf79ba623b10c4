package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath-edu/scheduling-api/internal/models"
)

// RecurringGroupRepository provides persistence for recurring lesson groups.
type RecurringGroupRepository struct {
	db *sqlx.DB
}

// NewRecurringGroupRepository creates a new recurring group repository.
func NewRecurringGroupRepository(db *sqlx.DB) *RecurringGroupRepository {
	return &RecurringGroupRepository{db: db}
}

const recurringGroupColumns = `id, template_lesson_id, recurrence_interval, is_infinite, instances_generated_until, total_instances_generated, next_extension_date, created_at, updated_at`

// ListNeedingExtension returns infinite groups whose generation cursor is
// behind the threshold, ordered oldest cursor first.
func (r *RecurringGroupRepository) ListNeedingExtension(ctx context.Context, threshold time.Time) ([]models.RecurringGroup, error) {
	query := fmt.Sprintf(`SELECT %s FROM recurring_groups WHERE is_infinite = true AND instances_generated_until < $1 ORDER BY instances_generated_until ASC`, recurringGroupColumns)
	var groups []models.RecurringGroup
	if err := r.db.SelectContext(ctx, &groups, query, threshold); err != nil {
		return nil, fmt.Errorf("list groups needing extension: %w", err)
	}
	return groups, nil
}

// FindByID loads a recurring group by id.
func (r *RecurringGroupRepository) FindByID(ctx context.Context, id string) (*models.RecurringGroup, error) {
	query := fmt.Sprintf(`SELECT %s FROM recurring_groups WHERE id = $1`, recurringGroupColumns)
	var group models.RecurringGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// Create stores a new recurring group.
func (r *RecurringGroupRepository) Create(ctx context.Context, group *models.RecurringGroup) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	const query = `INSERT INTO recurring_groups (id, template_lesson_id, recurrence_interval, is_infinite, instances_generated_until, total_instances_generated, next_extension_date, created_at, updated_at) VALUES (:id, :template_lesson_id, :recurrence_interval, :is_infinite, :instances_generated_until, :total_instances_generated, :next_extension_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create recurring group: %w", err)
	}
	return nil
}

// UpdateProgress advances the generation cursor after a successful batch. The
// WHERE clause guards against a concurrent extension having moved the cursor:
// if no row matches, sql.ErrNoRows is returned and nothing was written.
func (r *RecurringGroupRepository) UpdateProgress(ctx context.Context, exec sqlx.ExtContext, id string, prevCursor time.Time, progress models.RecurringGroupProgress) error {
	target := sqlx.ExtContext(r.db)
	if exec != nil {
		target = exec
	}

	const query = `UPDATE recurring_groups
SET instances_generated_until = $1, total_instances_generated = $2, next_extension_date = $3, updated_at = $4
WHERE id = $5 AND instances_generated_until = $6`

	result, err := target.ExecContext(ctx, query,
		progress.InstancesGeneratedUntil,
		progress.TotalInstancesGenerated,
		progress.NextExtensionDate,
		time.Now().UTC(),
		id,
		prevCursor,
	)
	if err != nil {
		return fmt.Errorf("update recurring group progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recurring group progress rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
