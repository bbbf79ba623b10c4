package models

import "time"

// AvailabilityTemplate is one weekly teaching window for a tutor. A tutor may
// have several disjoint windows on the same weekday. Times are wall-clock
// HH:MM strings compared within a single day; cross-midnight windows are not
// supported.
type AvailabilityTemplate struct {
	ID        string    `db:"id" json:"id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SlotStatus is the computed availability of one (tutor, slot) cell.
type SlotStatus string

const (
	SlotStatusAvailable   SlotStatus = "available"
	SlotStatusBooked      SlotStatus = "booked"
	SlotStatusUnavailable SlotStatus = "unavailable"
	// SlotStatusUnknown is reserved for callers that want to render backend
	// failures distinctly. The resolver itself fails closed to unavailable
	// and marks the grid degraded instead.
	SlotStatusUnknown SlotStatus = "unknown"
)
