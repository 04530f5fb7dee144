package valyu

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 15 * time.Minute
	HeavyMaxWait        = 90 * time.Minute
)

// DefaultMaxWaitFor returns the usual completion budget for a research mode.
func DefaultMaxWaitFor(mode Mode) time.Duration {
	if mode == ModeHeavy {
		return HeavyMaxWait
	}
	return DefaultMaxWait
}

type WaitOptions struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	// OnUpdate is called with every non-terminal snapshot.
	OnUpdate func(*Task)
}

// WaitForTask polls the task status at a fixed interval until the task
// completes, fails, is cancelled, or MaxWait elapses. A failing status call
// aborts the wait and its error is returned unchanged. Cancelling ctx stops
// the wait between polls with ctx.Err().
func (c *Client) WaitForTask(ctx context.Context, taskID string, opts WaitOptions) (*Task, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}

	start := c.now()
	polls := 0

	for {
		task, err := c.TaskStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}
		polls++

		switch task.Status {
		case StatusCompleted:
			c.logger.Debug("research task completed",
				zap.String("task_id", taskID),
				zap.Int("polls", polls),
			)
			return task, nil
		case StatusFailed:
			msg := task.Error
			if msg == "" {
				msg = "task failed"
			}
			return nil, apiError(msg)
		case StatusCancelled:
			return nil, apiError("task was cancelled")
		}

		if opts.OnUpdate != nil {
			opts.OnUpdate(task)
		}

		if c.now().Sub(start) > opts.MaxWait {
			return nil, apiError(fmt.Sprintf("maximum wait time of %d seconds exceeded", int64(opts.MaxWait/time.Second)))
		}

		if err := c.sleep(ctx, opts.PollInterval); err != nil {
			return nil, err
		}
	}
}
