package model

import "time"

// DefaultTitle is used when a task is created without a title.
const DefaultTitle = "never gonna give you up"

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	TimerLength *int       `json:"timer_length"`
	TimerActive bool       `json:"timer_active"`
	TimerStart  *time.Time `json:"timer_start"`
	TimerStop   *time.Time `json:"timer_stop"`
	UserID      *int64     `json:"user_id"`
	GuestID     *string    `json:"guest_id"`
}

// NewTask holds the fields a caller may set when creating a task.
type NewTask struct {
	Title       *string `json:"title"       validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=4096"`
	TimerLength *int    `json:"timer_length" validate:"omitempty,gte=0"`
}

// TitleOrDefault returns the requested title, falling back to DefaultTitle.
func (n NewTask) TitleOrDefault() string {
	if n.Title == nil || *n.Title == "" {
		return DefaultTitle
	}
	return *n.Title
}

// TaskPatch is a partial update. A nil field is left untouched, so an
// explicit false for IsCompleted is applied while an absent one is not.
type TaskPatch struct {
	Title       *string `json:"title"        validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"  validate:"omitempty,max=4096"`
	IsCompleted *bool   `json:"is_completed"`
	TimerLength *int    `json:"timer_length" validate:"omitempty,gte=0"`
}

// Empty reports whether the patch carries no fields.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil && p.TimerLength == nil
}

// ActiveTimer is a running timer as seen by the scheduler at startup.
type ActiveTimer struct {
	TaskID    int64
	TimerStop time.Time
}
