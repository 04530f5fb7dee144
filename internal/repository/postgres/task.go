package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kitbuilder587/valyu-go/internal/domain"
)

const taskColumns = `id, user_id, chat_id, query, mode, status, error, pdf_url, created_at, updated_at, completed_at`

type TaskRepo struct {
	db *DB
}

func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Save(ctx context.Context, task *domain.ResearchTask) error {
	if err := task.Validate(); err != nil {
		return err
	}

	query := `
        INSERT INTO research_tasks (id, user_id, chat_id, query, mode, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at
    `

	err := r.db.Pool.QueryRow(ctx, query,
		task.ID,
		task.UserID,
		task.ChatID,
		task.Query,
		task.Mode,
		string(task.Status),
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateTask
		}
		return fmt.Errorf("save task: %w", err)
	}

	return nil
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, errMsg, pdfURL string, completedAt *time.Time) error {
	query := `
        UPDATE research_tasks
        SET status = $2, error = $3, pdf_url = $4, completed_at = $5, updated_at = NOW()
        WHERE id = $1
    `

	if !status.IsTerminal() {
		completedAt = nil
	}

	result, err := r.db.Pool.Exec(ctx, query, id, string(status), errMsg, pdfURL, completedAt)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*domain.ResearchTask, error) {
	query := `SELECT ` + taskColumns + ` FROM research_tasks WHERE id = $1`

	t, err := scanTask(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (r *TaskRepo) ListByChat(ctx context.Context, chatID int64, limit int) ([]domain.ResearchTask, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
        SELECT ` + taskColumns + `
        FROM research_tasks
        WHERE chat_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	rows, err := r.db.Pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collectTasks(rows)
}

func (r *TaskRepo) ListUnfinished(ctx context.Context) ([]domain.ResearchTask, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM research_tasks
        WHERE status IN ('queued', 'running')
        ORDER BY created_at
    `

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list unfinished tasks: %w", err)
	}
	return collectTasks(rows)
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM research_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}

	return nil
}

func scanTask(row pgx.Row) (*domain.ResearchTask, error) {
	var t domain.ResearchTask
	var status string
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.ChatID,
		&t.Query,
		&t.Mode,
		&status,
		&t.Error,
		&t.PDFURL,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	return &t, nil
}

func collectTasks(rows pgx.Rows) ([]domain.ResearchTask, error) {
	defer rows.Close()

	var tasks []domain.ResearchTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}
