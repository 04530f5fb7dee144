package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kitbuilder587/valyu-go/internal/domain"
)

var (
	_ UserRepository = (*MockUserRepository)(nil)
	_ TaskRepository = (*MockTaskRepository)(nil)
)

type MockUserRepository struct {
	mu    sync.RWMutex
	users map[int64]*domain.User // key: TelegramID
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[int64]*domain.User),
	}
}

func (m *MockUserRepository) GetOrCreate(ctx context.Context, telegramID int64, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, exists := m.users[telegramID]; exists {
		user.Username = username
		u := *user
		return &u, nil
	}

	user := &domain.User{
		ID:         telegramID,
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  time.Now(),
	}
	m.users[telegramID] = user
	u := *user
	return &u, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if user, exists := m.users[id]; exists {
		u := *user
		return &u, nil
	}
	return nil, domain.ErrUserNotFound
}

// MockTaskRepository - in-memory TaskRepository для тестов.
type MockTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.ResearchTask
	now   func() time.Time
}

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		tasks: make(map[string]*domain.ResearchTask),
		now:   time.Now,
	}
}

func (m *MockTaskRepository) Save(ctx context.Context, task *domain.ResearchTask) error {
	if err := task.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.ID]; exists {
		return domain.ErrDuplicateTask
	}

	now := m.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	t := *task
	m.tasks[task.ID] = &t
	return nil
}

func (m *MockTaskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, errMsg, pdfURL string, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.tasks[id]
	if !exists {
		return domain.ErrTaskNotFound
	}

	t.Status = status
	t.Error = errMsg
	t.PDFURL = pdfURL
	t.UpdatedAt = m.now()
	if status.IsTerminal() {
		t.CompletedAt = completedAt
	} else {
		t.CompletedAt = nil
	}
	return nil
}

func (m *MockTaskRepository) Get(ctx context.Context, id string) (*domain.ResearchTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, exists := m.tasks[id]; exists {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrTaskNotFound
}

func (m *MockTaskRepository) ListByChat(ctx context.Context, chatID int64, limit int) ([]domain.ResearchTask, error) {
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []domain.ResearchTask
	for _, t := range m.tasks {
		if t.ChatID == chatID {
			result = append(result, *t)
		}
	}

	// новые сверху, как в postgres
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockTaskRepository) ListUnfinished(ctx context.Context) ([]domain.ResearchTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []domain.ResearchTask
	for _, t := range m.tasks {
		// как в postgres: только queued и running
		if t.Status == domain.TaskQueued || t.Status == domain.TaskRunning {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[id]; !exists {
		return domain.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}
