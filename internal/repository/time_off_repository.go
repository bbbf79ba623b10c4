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

// TimeOffRepository manages tutor time-off requests.
type TimeOffRepository struct {
	db *sqlx.DB
}

// NewTimeOffRepository builds the repository.
func NewTimeOffRepository(db *sqlx.DB) *TimeOffRepository {
	return &TimeOffRepository{db: db}
}

const timeOffColumns = `id, tutor_id, start_date, end_date, status, reason, created_at, updated_at`

// ListApprovedInRange returns approved requests for the given tutors whose
// inclusive day range overlaps [from, to].
func (r *TimeOffRepository) ListApprovedInRange(ctx context.Context, tutorIDs []string, from, to time.Time) ([]models.TimeOffRequest, error) {
	if len(tutorIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM time_off_requests WHERE tutor_id = ANY($1) AND status = 'approved' AND start_date <= $2 AND end_date >= $3 ORDER BY start_date ASC`, timeOffColumns)
	var requests []models.TimeOffRequest
	if err := r.db.SelectContext(ctx, &requests, query, pq.Array(tutorIDs), to, from); err != nil {
		return nil, fmt.Errorf("list approved time off: %w", err)
	}
	return requests, nil
}

// ListByTutor returns all requests for a tutor, newest first.
func (r *TimeOffRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.TimeOffRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_off_requests WHERE tutor_id = $1 ORDER BY start_date DESC`, timeOffColumns)
	var requests []models.TimeOffRequest
	if err := r.db.SelectContext(ctx, &requests, query, tutorID); err != nil {
		return nil, fmt.Errorf("list time off by tutor: %w", err)
	}
	return requests, nil
}

// FindByID loads a request by id.
func (r *TimeOffRepository) FindByID(ctx context.Context, id string) (*models.TimeOffRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_off_requests WHERE id = $1`, timeOffColumns)
	var request models.TimeOffRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create stores a new pending request.
func (r *TimeOffRepository) Create(ctx context.Context, request *models.TimeOffRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now

	const query = `INSERT INTO time_off_requests (id, tutor_id, start_date, end_date, status, reason, created_at, updated_at) VALUES (:id, :tutor_id, :start_date, :end_date, :status, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create time off request: %w", err)
	}
	return nil
}

// UpdateStatus transitions a request to a new review state.
func (r *TimeOffRepository) UpdateStatus(ctx context.Context, id string, status models.TimeOffStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE time_off_requests SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update time off status: %w", err)
	}
	return nil
}
