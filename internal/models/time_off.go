package models

import "time"

// TimeOffStatus represents the review state of a time-off request.
type TimeOffStatus string

const (
	TimeOffStatusPending  TimeOffStatus = "pending"
	TimeOffStatusApproved TimeOffStatus = "approved"
	TimeOffStatusDenied   TimeOffStatus = "denied"
)

// TimeOffRequest is an inclusive day range during which a tutor is away.
// Only approved requests block availability.
type TimeOffRequest struct {
	ID        string        `db:"id" json:"id"`
	TutorID   string        `db:"tutor_id" json:"tutor_id"`
	StartDate time.Time     `db:"start_date" json:"start_date"`
	EndDate   time.Time     `db:"end_date" json:"end_date"`
	Status    TimeOffStatus `db:"status" json:"status"`
	Reason    *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
