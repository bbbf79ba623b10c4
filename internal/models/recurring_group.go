package models

import "time"

// RecurringGroup tracks generation state for an infinite recurring lesson.
// InstancesGeneratedUntil is a forward-only cursor: extension never emits an
// instance at or before it, which is what makes repeated job runs idempotent.
type RecurringGroup struct {
	ID                      string             `db:"id" json:"id"`
	TemplateLessonID        string             `db:"template_lesson_id" json:"template_lesson_id"`
	RecurrenceInterval      RecurrenceInterval `db:"recurrence_interval" json:"recurrence_interval"`
	IsInfinite              bool               `db:"is_infinite" json:"is_infinite"`
	InstancesGeneratedUntil time.Time          `db:"instances_generated_until" json:"instances_generated_until"`
	TotalInstancesGenerated int                `db:"total_instances_generated" json:"total_instances_generated"`
	NextExtensionDate       *time.Time         `db:"next_extension_date" json:"next_extension_date,omitempty"`
	CreatedAt               time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time          `db:"updated_at" json:"updated_at"`
}

// RecurringGroupProgress carries the fields the expander updates after a
// successful batch.
type RecurringGroupProgress struct {
	InstancesGeneratedUntil time.Time
	TotalInstancesGenerated int
	NextExtensionDate       time.Time
}
