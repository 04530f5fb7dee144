package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

// StartResearch creates a DeepResearch task and remembers which chat owns it.
func (s *researchService) StartResearch(ctx context.Context, userID, chatID int64, req valyu.TaskRequest) (*domain.ResearchTask, error) {
	q := domain.QueryRequest{UserID: userID, Text: req.Query, Kind: domain.QueryResearch}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.Sanitize()
	req.Query = q.Text
	if req.Mode == "" {
		req.Mode = valyu.ModeLite
	}

	created, err := s.api.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}

	status := domain.TaskStatus(created.Status)
	if !status.IsValid() {
		status = domain.TaskQueued
	}

	task := &domain.ResearchTask{
		ID:     created.ID,
		UserID: userID,
		ChatID: chatID,
		Query:  req.Query,
		Mode:   string(req.Mode),
		Status: status,
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	s.logger.Info("research task started",
		zap.String("task_id", task.ID),
		zap.Int64("user_id", userID),
		zap.String("mode", task.Mode),
	)
	return task, nil
}

// Track waits for the task to finish and persists every status change.
// onUpdate may be nil.
func (s *researchService) Track(ctx context.Context, taskID string, onUpdate func(*valyu.Task)) (*valyu.Task, error) {
	stored, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	maxWait := s.config.MaxWait
	if maxWait <= 0 {
		maxWait = valyu.DefaultMaxWaitFor(valyu.Mode(stored.Mode))
	}

	if s.metrics != nil {
		s.metrics.TaskStarted()
	}

	last := stored.Status
	task, waitErr := s.api.WaitForTask(ctx, taskID, valyu.WaitOptions{
		PollInterval: s.config.PollInterval,
		MaxWait:      maxWait,
		OnUpdate: func(t *valyu.Task) {
			if st := domain.TaskStatus(t.Status); st != last && st.IsValid() {
				last = st
				s.persist(ctx, taskID, st, "", "")
			}
			if onUpdate != nil {
				onUpdate(t)
			}
		},
	})

	if waitErr == nil {
		s.persist(ctx, taskID, domain.TaskCompleted, "", task.PDFURL)
		s.finished(string(domain.TaskCompleted))
		s.logger.Info("research task completed", zap.String("task_id", taskID))
		return task, nil
	}

	label := s.settle(ctx, taskID, waitErr)
	s.finished(label)
	s.logger.Warn("research task did not complete",
		zap.String("task_id", taskID),
		zap.String("outcome", label),
		zap.Error(waitErr),
	)
	return nil, waitErr
}

// settle records the final state after a failed wait and returns a metrics label.
func (s *researchService) settle(ctx context.Context, taskID string, waitErr error) string {
	if errors.Is(waitErr, context.Canceled) || errors.Is(waitErr, context.DeadlineExceeded) {
		return "aborted"
	}

	// ошибка ожидания не говорит, чем кончилась задача - спрашиваем ещё раз
	current, err := s.api.TaskStatus(ctx, taskID)
	if err != nil {
		s.logger.Warn("final status check failed", zap.String("task_id", taskID), zap.Error(err))
		return "error"
	}

	status := domain.TaskStatus(current.Status)
	if !status.IsValid() {
		// статуса в ответе нет - сохранённый не трогаем
		s.logger.Warn("final status is missing", zap.String("task_id", taskID))
		return "error"
	}
	if !status.IsTerminal() {
		// время ожидания вышло, задача ещё идёт
		s.persist(ctx, taskID, status, waitErr.Error(), "")
		return "timeout"
	}
	s.persist(ctx, taskID, status, waitErr.Error(), current.PDFURL)
	return string(status)
}

func (s *researchService) persist(ctx context.Context, taskID string, status domain.TaskStatus, errMsg, pdfURL string) {
	completedAt := s.now()
	if err := s.tasks.UpdateStatus(ctx, taskID, status, errMsg, pdfURL, &completedAt); err != nil {
		s.logger.Warn("failed to save task status",
			zap.String("task_id", taskID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *researchService) finished(label string) {
	if s.metrics != nil {
		s.metrics.TaskFinished(label)
	}
}

// Status asks the API about a task started from the given chat and syncs the
// stored copy.
func (s *researchService) Status(ctx context.Context, chatID int64, taskID string) (*valyu.Task, error) {
	stored, err := s.owned(ctx, chatID, taskID)
	if err != nil {
		return nil, err
	}

	task, err := s.api.TaskStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// снимок без статуса ничего не говорит о задаче
	if st := domain.TaskStatus(task.Status); st.IsValid() && st != stored.Status {
		s.persist(ctx, taskID, st, task.Error, task.PDFURL)
	}
	return task, nil
}

// Cancel cancels a task started from the given chat.
func (s *researchService) Cancel(ctx context.Context, chatID int64, taskID string) error {
	if _, err := s.owned(ctx, chatID, taskID); err != nil {
		return err
	}

	if _, err := s.api.CancelTask(ctx, taskID); err != nil {
		return err
	}

	s.persist(ctx, taskID, domain.TaskCancelled, "", "")
	s.logger.Info("research task cancelled", zap.String("task_id", taskID), zap.Int64("chat_id", chatID))
	return nil
}

// Delete removes a task started from the given chat, both in the API and
// locally. An unfinished task is cancelled first.
func (s *researchService) Delete(ctx context.Context, chatID int64, taskID string) error {
	stored, err := s.owned(ctx, chatID, taskID)
	if err != nil {
		return err
	}

	if !stored.Status.IsTerminal() {
		if _, err := s.api.CancelTask(ctx, taskID); err != nil {
			return err
		}
	}
	if _, err := s.api.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.logger.Info("research task deleted", zap.String("task_id", taskID), zap.Int64("chat_id", chatID))
	return nil
}

// owned returns the stored task if it was started from chatID.
func (s *researchService) owned(ctx context.Context, chatID int64, taskID string) (*domain.ResearchTask, error) {
	if taskID == "" {
		return nil, domain.ErrEmptyTaskID
	}

	stored, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if stored.ChatID != chatID {
		// чужие задачи не показываем
		return nil, domain.ErrTaskNotFound
	}
	return stored, nil
}

func (s *researchService) Tasks(ctx context.Context, chatID int64, limit int) ([]domain.ResearchTask, error) {
	return s.tasks.ListByChat(ctx, chatID, limit)
}

func (s *researchService) Unfinished(ctx context.Context) ([]domain.ResearchTask, error) {
	return s.tasks.ListUnfinished(ctx)
}
