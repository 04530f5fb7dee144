package repository

import (
	"context"
	"time"

	"github.com/kitbuilder587/valyu-go/internal/domain"
)

type UserRepository interface {
	GetOrCreate(ctx context.Context, telegramID int64, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// TaskRepository - задачи DeepResearch, запущенные из бота.
type TaskRepository interface {
	Save(ctx context.Context, task *domain.ResearchTask) error
	// UpdateStatus sets the status and error text. completedAt is stored only
	// for terminal statuses.
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, errMsg, pdfURL string, completedAt *time.Time) error
	Get(ctx context.Context, id string) (*domain.ResearchTask, error)
	ListByChat(ctx context.Context, chatID int64, limit int) ([]domain.ResearchTask, error)
	// ListUnfinished is used on startup to resume tracking.
	ListUnfinished(ctx context.Context) ([]domain.ResearchTask, error)
	Delete(ctx context.Context, id string) error
}
