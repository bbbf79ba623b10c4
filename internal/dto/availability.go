package dto

import (
	"time"

	"github.com/brightpath-edu/scheduling-api/internal/models"
)

// Availability view granularities. Day view checks slots against template
// windows at minute resolution; week view collapses each day to one cell.
const (
	ViewTeacherDay  = "teacherDay"
	ViewTeacherWeek = "teacherWeek"
)

// SlotRequest is one requested grid cell: an opaque key the caller uses to
// address the cell, the calendar date it falls on, and a wall-clock HH:MM
// display time (ignored in week view).
type SlotRequest struct {
	Key  string    `json:"key" validate:"required"`
	Date time.Time `json:"date" validate:"required"`
	Time string    `json:"time" validate:"required"`
}

// ResolveAvailabilityRequest asks for a tutors × slots availability grid.
type ResolveAvailabilityRequest struct {
	TutorIDs []string      `json:"tutorIds" validate:"required,min=1,dive,required"`
	Slots    []SlotRequest `json:"slots" validate:"required,min=1,dive"`
	ViewType string        `json:"viewType" validate:"required,oneof=teacherDay teacherWeek"`
}

// AvailabilityGrid is the computed result. Statuses is keyed by tutor id then
// slot key and always contains one entry per requested (tutor, slot) pair.
// Degraded is set when an input fetch failed and the grid was filled closed.
type AvailabilityGrid struct {
	Statuses map[string]map[string]models.SlotStatus `json:"statuses"`
	Degraded bool                                    `json:"degraded"`
	Reason   string                                  `json:"reason,omitempty"`
}
