package models

import "time"

// Kind represents the classified category of an item
type Kind string

const (
	KindTask Kind = "task"
	KindIdea Kind = "idea"
	KindNote Kind = "note"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusAccepted TaskStatus = "accepted"
	TaskStatusDone     TaskStatus = "done"
)

// StatusFilter selects tasks by lifecycle state when listing
type StatusFilter string

const (
	StatusFilterAll    StatusFilter = "all"
	StatusFilterActive StatusFilter = "active"
	StatusFilterDone   StatusFilter = "done"
)

// Item is a stored unit of user content: a task, idea, or note.
// Task is nil unless Kind == KindTask.
type Item struct {
	ID        int64       `json:"id"`
	Owner     string      `json:"owner"`
	Kind      Kind        `json:"kind"`
	Title     string      `json:"title,omitempty"`
	Text      string      `json:"text"`
	Tags      []string    `json:"tags,omitempty"`
	Degraded  bool        `json:"degraded,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Task      *TaskFields `json:"task,omitempty"`
}

// TaskFields holds the task-only columns of an item
type TaskFields struct {
	Importance       int        `json:"importance"`
	Urgency          int        `json:"urgency"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Priority         float64    `json:"priority"`
	Status           TaskStatus `json:"status"`
	AnalysisReason   string     `json:"analysis_reason,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// IsActive reports whether a task is still awaiting attention
func (t *TaskFields) IsActive() bool {
	return t.Status == TaskStatusPending || t.Status == TaskStatusAccepted
}

// Matches reports whether a task passes the given status filter
func (t *TaskFields) Matches(filter StatusFilter) bool {
	switch filter {
	case StatusFilterActive:
		return t.IsActive()
	case StatusFilterDone:
		return t.Status == TaskStatusDone
	default:
		return true
	}
}

// ValidKind reports whether k is one of the three recognized kinds
func ValidKind(k Kind) bool {
	switch k {
	case KindTask, KindIdea, KindNote:
		return true
	default:
		return false
	}
}
