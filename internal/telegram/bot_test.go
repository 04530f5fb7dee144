package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/internal/ratelimit"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

type MockUserService struct {
	GetOrCreateFunc func(ctx context.Context, telegramID int64, username string) (*domain.User, error)
}

func (m *MockUserService) GetOrCreate(ctx context.Context, telegramID int64, username string) (*domain.User, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, telegramID, username)
	}
	return &domain.User{
		ID:         telegramID,
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  time.Now(),
	}, nil
}

type MockResearchService struct {
	mu sync.Mutex

	SearchFunc        func(ctx context.Context, req valyu.SearchRequest) (*valyu.SearchResponse, error)
	AnswerFunc        func(ctx context.Context, req valyu.AnswerRequest) (*valyu.AnswerResponse, error)
	ContentsFunc      func(ctx context.Context, req valyu.ContentsRequest) (*valyu.ContentsResponse, error)
	StartResearchFunc func(ctx context.Context, userID, chatID int64, req valyu.TaskRequest) (*domain.ResearchTask, error)
	TrackFunc         func(ctx context.Context, taskID string) (*valyu.Task, error)
	StatusFunc        func(ctx context.Context, chatID int64, taskID string) (*valyu.Task, error)
	CancelFunc        func(ctx context.Context, chatID int64, taskID string) error
	DeleteFunc        func(ctx context.Context, chatID int64, taskID string) error
	TasksFunc         func(ctx context.Context, chatID int64, limit int) ([]domain.ResearchTask, error)
	UnfinishedFunc    func(ctx context.Context) ([]domain.ResearchTask, error)

	LastSearch   *valyu.SearchRequest
	LastAnswer   *valyu.AnswerRequest
	LastContents *valyu.ContentsRequest
	LastTask     *valyu.TaskRequest
	Tracked      []string
}

func (m *MockResearchService) Search(ctx context.Context, req valyu.SearchRequest) (*valyu.SearchResponse, error) {
	m.LastSearch = &req
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, req)
	}
	return &valyu.SearchResponse{Envelope: valyu.Envelope{Success: true}}, nil
}

func (m *MockResearchService) Answer(ctx context.Context, req valyu.AnswerRequest) (*valyu.AnswerResponse, error) {
	m.LastAnswer = &req
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, req)
	}
	return &valyu.AnswerResponse{Envelope: valyu.Envelope{Success: true}}, nil
}

func (m *MockResearchService) Contents(ctx context.Context, req valyu.ContentsRequest) (*valyu.ContentsResponse, error) {
	m.LastContents = &req
	if m.ContentsFunc != nil {
		return m.ContentsFunc(ctx, req)
	}
	return &valyu.ContentsResponse{Envelope: valyu.Envelope{Success: true}}, nil
}

func (m *MockResearchService) StartResearch(ctx context.Context, userID, chatID int64, req valyu.TaskRequest) (*domain.ResearchTask, error) {
	m.LastTask = &req
	if m.StartResearchFunc != nil {
		return m.StartResearchFunc(ctx, userID, chatID, req)
	}
	return &domain.ResearchTask{ID: "dr_mock", UserID: userID, ChatID: chatID, Query: req.Query, Mode: string(req.Mode), Status: domain.TaskQueued}, nil
}

func (m *MockResearchService) Track(ctx context.Context, taskID string, _ func(*valyu.Task)) (*valyu.Task, error) {
	m.mu.Lock()
	m.Tracked = append(m.Tracked, taskID)
	m.mu.Unlock()
	if m.TrackFunc != nil {
		return m.TrackFunc(ctx, taskID)
	}
	return &valyu.Task{ID: taskID, Status: valyu.StatusCompleted}, nil
}

func (m *MockResearchService) Status(ctx context.Context, chatID int64, taskID string) (*valyu.Task, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, chatID, taskID)
	}
	return &valyu.Task{ID: taskID, Status: valyu.StatusRunning}, nil
}

func (m *MockResearchService) Cancel(ctx context.Context, chatID int64, taskID string) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, chatID, taskID)
	}
	return nil
}

func (m *MockResearchService) Delete(ctx context.Context, chatID int64, taskID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, chatID, taskID)
	}
	return nil
}

func (m *MockResearchService) Tasks(ctx context.Context, chatID int64, limit int) ([]domain.ResearchTask, error) {
	if m.TasksFunc != nil {
		return m.TasksFunc(ctx, chatID, limit)
	}
	return nil, nil
}

func (m *MockResearchService) Unfinished(ctx context.Context) ([]domain.ResearchTask, error) {
	if m.UnfinishedFunc != nil {
		return m.UnfinishedFunc(ctx)
	}
	return nil, nil
}

// recordingSender запоминает отправленные тексты.
type recordingSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	actions  int
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		s.messages = append(s.messages, m)
	case tgbotapi.ChatActionConfig:
		s.actions++
	}
	return tgbotapi.Message{}, nil
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Text
	}
	return out
}

func (s *recordingSender) last() string {
	texts := s.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func createTestBot(researchSvc *MockResearchService) (*Bot, *recordingSender) {
	out := &recordingSender{}
	bot := &Bot{
		sender:          out,
		userService:     &MockUserService{},
		researchService: researchSvc,
		logger:          zap.NewNop(),
		rateLimiter:     ratelimit.New(ratelimit.Config{RequestsPerMinute: 100}),
	}
	bot.handler = NewHandler(bot)
	return bot, out
}

func TestBot_SendHTML(t *testing.T) {
	bot, out := createTestBot(&MockResearchService{})

	if err := bot.Send(42, "<b>hi</b>"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(out.messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(out.messages))
	}
	msg := out.messages[0]
	if msg.ChatID != 42 || msg.ParseMode != "HTML" || !msg.DisableWebPagePreview {
		t.Errorf("unexpected message config: %+v", msg)
	}
}

func TestBot_SendWithoutSender(t *testing.T) {
	bot := &Bot{logger: zap.NewNop()}
	if err := bot.Send(1, "text"); err != nil {
		t.Errorf("Send() error = %v, want nil", err)
	}
	bot.SendTyping(1)
}

func TestBot_SendLongSplits(t *testing.T) {
	bot, out := createTestBot(&MockResearchService{})

	bot.SendLong(1, strings.Repeat("слово ", 1500))

	texts := out.texts()
	if len(texts) < 2 {
		t.Fatalf("SendLong() sent %d parts, want at least 2", len(texts))
	}
	for i, text := range texts {
		if len(text) > maxMessageLen {
			t.Errorf("part %d is %d bytes, over the limit", i, len(text))
		}
	}
}

func TestBot_TrackSendsReport(t *testing.T) {
	svc := &MockResearchService{
		TrackFunc: func(ctx context.Context, taskID string) (*valyu.Task, error) {
			return &valyu.Task{ID: taskID, Status: valyu.StatusCompleted, Output: []byte(`"final report"`)}, nil
		},
	}
	bot, out := createTestBot(svc)

	bot.trackInBackground(context.Background(), 7, "dr_1")
	bot.wg.Wait()

	if !strings.Contains(out.last(), "final report") {
		t.Errorf("last message = %q, want report", out.last())
	}
	if out.messages[0].ChatID != 7 {
		t.Errorf("report sent to chat %d, want 7", out.messages[0].ChatID)
	}
}

func TestBot_TrackFailureNotifies(t *testing.T) {
	svc := &MockResearchService{
		TrackFunc: func(ctx context.Context, taskID string) (*valyu.Task, error) {
			return nil, &valyu.Error{Kind: valyu.ErrAPI, Detail: "out of credits"}
		},
	}
	bot, out := createTestBot(svc)

	bot.track(context.Background(), 7, "dr_1")

	if !strings.Contains(out.last(), "out of credits") {
		t.Errorf("last message = %q, want failure reason", out.last())
	}
}

func TestBot_TrackStoppedSilently(t *testing.T) {
	svc := &MockResearchService{
		TrackFunc: func(ctx context.Context, taskID string) (*valyu.Task, error) {
			return nil, context.Canceled
		},
	}
	bot, out := createTestBot(svc)

	bot.track(context.Background(), 7, "dr_1")

	if len(out.texts()) != 0 {
		t.Errorf("sent %v on shutdown, want nothing", out.texts())
	}
}

func TestBot_ResumeTasks(t *testing.T) {
	svc := &MockResearchService{
		UnfinishedFunc: func(ctx context.Context) ([]domain.ResearchTask, error) {
			return []domain.ResearchTask{
				{ID: "dr_a", ChatID: 1, Status: domain.TaskQueued},
				{ID: "dr_b", ChatID: 2, Status: domain.TaskRunning},
			}, nil
		},
	}
	bot, out := createTestBot(svc)

	bot.resumeTasks(context.Background())
	bot.wg.Wait()

	if len(svc.Tracked) != 2 {
		t.Fatalf("tracked %v, want both unfinished tasks", svc.Tracked)
	}
	if len(out.texts()) != 2 {
		t.Errorf("sent %d reports, want 2", len(out.texts()))
	}
}

func TestBot_ResumeTasksError(t *testing.T) {
	svc := &MockResearchService{
		UnfinishedFunc: func(ctx context.Context) ([]domain.ResearchTask, error) {
			return nil, errors.New("db down")
		},
	}
	bot, _ := createTestBot(svc)

	bot.resumeTasks(context.Background())
	bot.wg.Wait()

	if len(svc.Tracked) != 0 {
		t.Errorf("tracked %v, want nothing", svc.Tracked)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: 2,
	})
	defer limiter.Stop()

	userID := int64(12345)

	if !limiter.Allow(userID) {
		t.Error("First request should be allowed")
	}

	if !limiter.Allow(userID) {
		t.Error("Second request should be allowed")
	}

	if limiter.Allow(userID) {
		t.Error("Third request should be blocked due to rate limit")
	}

	remaining := limiter.RemainingRequests(userID)
	if remaining != 0 {
		t.Errorf("RemainingRequests() = %d, want 0", remaining)
	}
}

func TestBotConfig_DefaultValues(t *testing.T) {
	cfg := BotConfig{
		Token:             "test-token",
		Debug:             false,
		RequestsPerMinute: 0, // Should use default
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	defer limiter.Stop()

	if !limiter.Allow(1) {
		t.Error("Should allow at least 1 request with default config")
	}
}
