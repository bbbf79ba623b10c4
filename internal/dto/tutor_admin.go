package dto

import "time"

// CreateAvailabilityTemplateRequest adds one weekly teaching window.
type CreateAvailabilityTemplateRequest struct {
	DayOfWeek string `json:"dayOfWeek" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// CreateTimeOffRequest files a new time-off request for review. Dates are
// inclusive calendar days.
type CreateTimeOffRequest struct {
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
	Reason    *string   `json:"reason,omitempty"`
}

// ReviewTimeOffRequest approves or denies a pending request.
type ReviewTimeOffRequest struct {
	Status string `json:"status" validate:"required,oneof=approved denied"`
}
