package domain

import "time"

type User struct {
	ID         int64
	TelegramID int64
	Username   string
	CreatedAt  time.Time
}

// TaskStatus mirrors the DeepResearch task states.
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskQueued, TaskRunning, TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// ResearchTask - задача DeepResearch, запущенная из бота. ID совпадает с
// deepresearch_id на стороне API.
type ResearchTask struct {
	ID          string
	UserID      int64
	ChatID      int64
	Query       string
	Mode        string
	Status      TaskStatus
	Error       string
	PDFURL      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (t *ResearchTask) Validate() error {
	if t.ID == "" {
		return ErrEmptyTaskID
	}
	if t.Query == "" {
		return ErrEmptyQuery
	}
	return nil
}
