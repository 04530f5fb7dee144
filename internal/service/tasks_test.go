package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

func created(id string) func(valyu.TaskRequest) (*valyu.Task, error) {
	return func(req valyu.TaskRequest) (*valyu.Task, error) {
		return &valyu.Task{
			Envelope: valyu.Envelope{Success: true},
			ID:       id,
			Status:   valyu.StatusQueued,
			Query:    req.Query,
			Mode:     req.Mode,
		}, nil
	}
}

func TestResearchService_StartResearch(t *testing.T) {
	var sent valyu.TaskRequest
	api := &fakeAPI{
		createTask: func(req valyu.TaskRequest) (*valyu.Task, error) {
			sent = req
			return created("dr_1")(req)
		},
	}
	svc, repo, _ := newTestService(t, api)

	task, err := svc.StartResearch(context.Background(), 10, 20, valyu.TaskRequest{Query: "  EU battery market  "})
	require.NoError(t, err)

	assert.Equal(t, "EU battery market", sent.Query)
	assert.Equal(t, valyu.ModeLite, sent.Mode)
	assert.Equal(t, "dr_1", task.ID)
	assert.Equal(t, domain.TaskQueued, task.Status)

	stored, err := repo.Get(context.Background(), "dr_1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.UserID)
	assert.Equal(t, int64(20), stored.ChatID)
	assert.Equal(t, "lite", stored.Mode)
}

func TestResearchService_StartResearchErrors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		svc, _, _ := newTestService(t, &fakeAPI{})
		_, err := svc.StartResearch(context.Background(), 1, 1, valyu.TaskRequest{Query: " "})
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	})

	t.Run("api error", func(t *testing.T) {
		api := &fakeAPI{
			createTask: func(valyu.TaskRequest) (*valyu.Task, error) {
				return nil, &valyu.Error{Kind: valyu.ErrInvalidAPIKey, StatusCode: http.StatusUnauthorized}
			},
		}
		svc, repo, _ := newTestService(t, api)

		_, err := svc.StartResearch(context.Background(), 1, 1, valyu.TaskRequest{Query: "q"})
		assert.ErrorIs(t, err, valyu.ErrInvalidAPIKey)

		tasks, _ := repo.ListByChat(context.Background(), 1, 10)
		assert.Empty(t, tasks)
	})

	t.Run("duplicate id", func(t *testing.T) {
		svc, _, _ := newTestService(t, &fakeAPI{createTask: created("dr_same")})
		ctx := context.Background()

		_, err := svc.StartResearch(ctx, 1, 1, valyu.TaskRequest{Query: "q"})
		require.NoError(t, err)
		_, err = svc.StartResearch(ctx, 1, 1, valyu.TaskRequest{Query: "q"})
		assert.ErrorIs(t, err, domain.ErrDuplicateTask)
	})
}

func TestResearchService_TrackCompleted(t *testing.T) {
	api := &fakeAPI{
		createTask: created("dr_ok"),
		wait: func(id string, opts valyu.WaitOptions) (*valyu.Task, error) {
			opts.OnUpdate(&valyu.Task{ID: id, Status: valyu.StatusRunning})
			opts.OnUpdate(&valyu.Task{ID: id, Status: valyu.StatusRunning})
			return &valyu.Task{
				Envelope: valyu.Envelope{Success: true},
				ID:       id,
				Status:   valyu.StatusCompleted,
				PDFURL:   "https://example.com/report.pdf",
			}, nil
		},
	}
	svc, repo, m := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.StartResearch(ctx, 1, 2, valyu.TaskRequest{Query: "q", Mode: valyu.ModeHeavy})
	require.NoError(t, err)

	var updates []valyu.TaskStatus
	task, err := svc.Track(ctx, "dr_ok", func(task *valyu.Task) { updates = append(updates, task.Status) })
	require.NoError(t, err)
	assert.Equal(t, valyu.StatusCompleted, task.Status)
	assert.Equal(t, []valyu.TaskStatus{valyu.StatusRunning, valyu.StatusRunning}, updates)

	assert.Equal(t, valyu.HeavyMaxWait, api.waitOpts.MaxWait, "heavy mode gets the longer budget")
	assert.Equal(t, valyu.DefaultPollInterval, api.waitOpts.PollInterval)

	stored, err := repo.Get(ctx, "dr_ok")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, stored.Status)
	assert.Equal(t, "https://example.com/report.pdf", stored.PDFURL)
	assert.NotNil(t, stored.CompletedAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFinishedTotal.WithLabelValues("completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksInFlight))
}

func TestResearchService_TrackOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		waitErr    error
		final      *valyu.Task
		statusErr  error
		wantStatus domain.TaskStatus
		wantLabel  string
	}{
		{
			name:       "failed",
			waitErr:    &valyu.Error{Kind: valyu.ErrAPI, Detail: "out of credits"},
			final:      &valyu.Task{Status: valyu.StatusFailed, Envelope: valyu.Envelope{Error: "out of credits"}},
			wantStatus: domain.TaskFailed,
			wantLabel:  "failed",
		},
		{
			name:       "cancelled elsewhere",
			waitErr:    &valyu.Error{Kind: valyu.ErrAPI, Detail: "task was cancelled"},
			final:      &valyu.Task{Status: valyu.StatusCancelled},
			wantStatus: domain.TaskCancelled,
			wantLabel:  "cancelled",
		},
		{
			name:       "timeout",
			waitErr:    &valyu.Error{Kind: valyu.ErrAPI, Detail: "maximum wait time of 900 seconds exceeded"},
			final:      &valyu.Task{Status: valyu.StatusRunning},
			wantStatus: domain.TaskRunning,
			wantLabel:  "timeout",
		},
		{
			name:       "status check fails",
			waitErr:    &valyu.Error{Kind: valyu.ErrServiceUnavailable, StatusCode: http.StatusServiceUnavailable},
			statusErr:  &valyu.Error{Kind: valyu.ErrServiceUnavailable, StatusCode: http.StatusServiceUnavailable},
			wantStatus: domain.TaskQueued,
			wantLabel:  "error",
		},
		{
			name:       "final status missing",
			waitErr:    &valyu.Error{Kind: valyu.ErrAPI, Detail: "maximum wait time of 900 seconds exceeded"},
			final:      &valyu.Task{Envelope: valyu.Envelope{Success: true}, ID: "dr_x"},
			wantStatus: domain.TaskQueued,
			wantLabel:  "error",
		},
		{
			name:       "context cancelled",
			waitErr:    context.Canceled,
			wantStatus: domain.TaskQueued,
			wantLabel:  "aborted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				createTask: created("dr_x"),
				wait: func(string, valyu.WaitOptions) (*valyu.Task, error) {
					return nil, tt.waitErr
				},
				taskStatus: func(string) (*valyu.Task, error) {
					if tt.statusErr != nil {
						return nil, tt.statusErr
					}
					return tt.final, nil
				},
			}
			svc, repo, m := newTestService(t, api)
			ctx := context.Background()

			_, err := svc.StartResearch(ctx, 1, 1, valyu.TaskRequest{Query: "q"})
			require.NoError(t, err)

			_, err = svc.Track(ctx, "dr_x", nil)
			assert.ErrorIs(t, err, tt.waitErr)

			stored, err := repo.Get(ctx, "dr_x")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFinishedTotal.WithLabelValues(tt.wantLabel)))
		})
	}
}

func TestResearchService_TrackUnknownTask(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeAPI{})
	_, err := svc.Track(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestResearchService_TrackMaxWaitOverride(t *testing.T) {
	api := &fakeAPI{
		createTask: created("dr_w"),
		wait: func(id string, _ valyu.WaitOptions) (*valyu.Task, error) {
			return &valyu.Task{ID: id, Status: valyu.StatusCompleted}, nil
		},
	}
	svc, _, _ := newTestService(t, api)
	svc.config.MaxWait = 2 * time.Minute
	svc.config.PollInterval = time.Second

	_, err := svc.StartResearch(context.Background(), 1, 1, valyu.TaskRequest{Query: "q", Mode: valyu.ModeHeavy})
	require.NoError(t, err)
	_, err = svc.Track(context.Background(), "dr_w", nil)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, api.waitOpts.MaxWait)
	assert.Equal(t, time.Second, api.waitOpts.PollInterval)
}

func TestResearchService_Status(t *testing.T) {
	api := &fakeAPI{
		createTask: created("dr_s"),
		taskStatus: func(id string) (*valyu.Task, error) {
			return &valyu.Task{ID: id, Status: valyu.StatusRunning}, nil
		},
	}
	svc, repo, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.StartResearch(ctx, 1, 100, valyu.TaskRequest{Query: "q"})
	require.NoError(t, err)

	task, err := svc.Status(ctx, 100, "dr_s")
	require.NoError(t, err)
	assert.Equal(t, valyu.StatusRunning, task.Status)

	stored, _ := repo.Get(ctx, "dr_s")
	assert.Equal(t, domain.TaskRunning, stored.Status, "stored copy follows the API")

	_, err = svc.Status(ctx, 100, "")
	assert.ErrorIs(t, err, domain.ErrEmptyTaskID)

	_, err = svc.Status(ctx, 200, "dr_s")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound, "other chats cannot see the task")

	_, err = svc.Status(ctx, 100, "dr_other")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestResearchService_StatusWithoutStatusField(t *testing.T) {
	api := &fakeAPI{
		createTask: created("t1"),
		taskStatus: func(id string) (*valyu.Task, error) {
			return &valyu.Task{Envelope: valyu.Envelope{Success: true}, ID: id}, nil
		},
	}
	svc, repo, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.StartResearch(ctx, 1, 1, valyu.TaskRequest{Query: "q"})
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, "t1", domain.TaskRunning, "", "", nil))

	task, err := svc.Status(ctx, 1, "t1")
	require.NoError(t, err)
	assert.Empty(t, task.Status)

	stored, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskRunning, stored.Status, "stored status must be kept")

	unfinished, err := svc.Unfinished(ctx)
	require.NoError(t, err)
	require.Len(t, unfinished, 1)
	assert.Equal(t, "t1", unfinished[0].ID)
}

func TestResearchService_Cancel(t *testing.T) {
	api := &fakeAPI{createTask: created("dr_c")}
	svc, repo, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.StartResearch(ctx, 1, 100, valyu.TaskRequest{Query: "q"})
	require.NoError(t, err)

	err = svc.Cancel(ctx, 200, "dr_c")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound, "other chats cannot cancel")
	assert.Empty(t, api.cancelled)

	require.NoError(t, svc.Cancel(ctx, 100, "dr_c"))
	assert.Equal(t, []string{"dr_c"}, api.cancelled)

	stored, _ := repo.Get(ctx, "dr_c")
	assert.Equal(t, domain.TaskCancelled, stored.Status)

	assert.ErrorIs(t, svc.Cancel(ctx, 100, ""), domain.ErrEmptyTaskID)
	assert.ErrorIs(t, svc.Cancel(ctx, 100, "missing"), domain.ErrTaskNotFound)
}

func TestResearchService_CancelAPIError(t *testing.T) {
	apiErr := &valyu.Error{Kind: valyu.ErrAPI, StatusCode: http.StatusBadRequest, Detail: "task already completed"}
	api := &fakeAPI{
		createTask: created("dr_done"),
		cancelTask: func(string) (*valyu.OperationResponse, error) { return nil, apiErr },
	}
	svc, repo, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.StartResearch(ctx, 1, 1, valyu.TaskRequest{Query: "q"})
	require.NoError(t, err)

	err = svc.Cancel(ctx, 1, "dr_done")
	assert.True(t, errors.Is(err, valyu.ErrAPI))

	stored, _ := repo.Get(ctx, "dr_done")
	assert.Equal(t, domain.TaskQueued, stored.Status)
}

func TestResearchService_Delete(t *testing.T) {
	api := &fakeAPI{createTask: created("dr_d")}
	svc, repo, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.StartResearch(ctx, 1, 100, valyu.TaskRequest{Query: "q"})
	require.NoError(t, err)

	err = svc.Delete(ctx, 200, "dr_d")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound, "other chats cannot delete")
	assert.Empty(t, api.deleted)

	require.NoError(t, svc.Delete(ctx, 100, "dr_d"))
	assert.Equal(t, []string{"dr_d"}, api.cancelled, "unfinished task is cancelled first")
	assert.Equal(t, []string{"dr_d"}, api.deleted)

	_, err = repo.Get(ctx, "dr_d")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, 100, ""), domain.ErrEmptyTaskID)
}

func TestResearchService_DeleteFinished(t *testing.T) {
	api := &fakeAPI{createTask: created("dr_f")}
	svc, repo, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.StartResearch(ctx, 1, 1, valyu.TaskRequest{Query: "q"})
	require.NoError(t, err)
	done := time.Now()
	require.NoError(t, repo.UpdateStatus(ctx, "dr_f", domain.TaskCompleted, "", "", &done))

	require.NoError(t, svc.Delete(ctx, 1, "dr_f"))
	assert.Empty(t, api.cancelled)
	assert.Equal(t, []string{"dr_f"}, api.deleted)
}

func TestResearchService_DeleteAPIError(t *testing.T) {
	apiErr := &valyu.Error{Kind: valyu.ErrAPI, StatusCode: http.StatusNotFound, Detail: "task not found"}
	api := &fakeAPI{
		createTask: created("dr_e"),
		deleteTask: func(string) (*valyu.OperationResponse, error) { return nil, apiErr },
	}
	svc, repo, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.StartResearch(ctx, 1, 1, valyu.TaskRequest{Query: "q"})
	require.NoError(t, err)

	err = svc.Delete(ctx, 1, "dr_e")
	assert.ErrorIs(t, err, valyu.ErrAPI)

	_, err = repo.Get(ctx, "dr_e")
	assert.NoError(t, err, "local copy stays when the API refuses")
}

func TestResearchService_TasksAndUnfinished(t *testing.T) {
	ids := []string{"dr_a", "dr_b", "dr_c"}
	n := 0
	api := &fakeAPI{
		createTask: func(req valyu.TaskRequest) (*valyu.Task, error) {
			id := ids[n]
			n++
			return created(id)(req)
		},
	}
	svc, repo, _ := newTestService(t, api)
	ctx := context.Background()

	for _, chat := range []int64{5, 5, 6} {
		_, err := svc.StartResearch(ctx, 1, chat, valyu.TaskRequest{Query: "q"})
		require.NoError(t, err)
	}
	done := time.Now()
	require.NoError(t, repo.UpdateStatus(ctx, "dr_b", domain.TaskCompleted, "", "", &done))

	tasks, err := svc.Tasks(ctx, 5, 10)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	unfinished, err := svc.Unfinished(ctx)
	require.NoError(t, err)
	var got []string
	for _, task := range unfinished {
		got = append(got, task.ID)
	}
	assert.ElementsMatch(t, []string{"dr_a", "dr_c"}, got)
}
