package models

import "time"

// LessonStatus represents lifecycle phases for a lesson instance.
type LessonStatus string

const (
	LessonStatusScheduled  LessonStatus = "scheduled"
	LessonStatusInProgress LessonStatus = "in_progress"
	LessonStatusCompleted  LessonStatus = "completed"
	LessonStatusCancelled  LessonStatus = "cancelled"
)

// RecurrenceInterval enumerates supported repeat cadences for recurring lessons.
type RecurrenceInterval string

const (
	RecurrenceDaily    RecurrenceInterval = "daily"
	RecurrenceWeekly   RecurrenceInterval = "weekly"
	RecurrenceBiweekly RecurrenceInterval = "biweekly"
	RecurrenceMonthly  RecurrenceInterval = "monthly"
)

// LessonInstance is a concrete lesson on the calendar. Template lessons carry
// the recurrence fields; generated instances have them nulled out and point
// back at the template through ParentLessonID.
type LessonInstance struct {
	ID                  string              `db:"id" json:"id"`
	Title               string              `db:"title" json:"title"`
	Description         *string             `db:"description" json:"description,omitempty"`
	SubjectID           string              `db:"subject_id" json:"subject_id"`
	TutorID             string              `db:"tutor_id" json:"tutor_id"`
	StartTime           time.Time           `db:"start_time" json:"start_time"`
	EndTime             time.Time           `db:"end_time" json:"end_time"`
	Status              LessonStatus        `db:"status" json:"status"`
	IsRecurringInstance bool                `db:"is_recurring_instance" json:"is_recurring_instance"`
	ParentLessonID      *string             `db:"parent_lesson_id" json:"parent_lesson_id,omitempty"`
	InstanceDate        *time.Time          `db:"instance_date" json:"instance_date,omitempty"`
	RecurrenceInterval  *RecurrenceInterval `db:"recurrence_interval" json:"recurrence_interval,omitempty"`
	RecurrenceEndDate   *time.Time          `db:"recurrence_end_date" json:"recurrence_end_date,omitempty"`
	RecurrenceDay       *string             `db:"recurrence_day" json:"recurrence_day,omitempty"`
	RoomID              *string             `db:"room_id" json:"room_id,omitempty"`
	RoomURL             *string             `db:"room_url" json:"room_url,omitempty"`
	SpaceID             *string             `db:"space_id" json:"space_id,omitempty"`
	CreatedAt           time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time           `db:"updated_at" json:"updated_at"`
}

// Duration returns the wall-clock length of the lesson.
func (l *LessonInstance) Duration() time.Duration {
	return l.EndTime.Sub(l.StartTime)
}

// LessonStudent links a student to a lesson instance.
type LessonStudent struct {
	LessonID  string `db:"lesson_id" json:"lesson_id"`
	StudentID string `db:"student_id" json:"student_id"`
}

// LessonFilter captures filtering options for listing lessons.
type LessonFilter struct {
	TutorID   string
	SubjectID string
	Status    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
