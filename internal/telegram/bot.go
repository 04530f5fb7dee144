package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/valyu-go/internal/metrics"
	"github.com/kitbuilder587/valyu-go/internal/ratelimit"
	"github.com/kitbuilder587/valyu-go/internal/service"
)

type BotConfig struct {
	Token             string
	Debug             bool
	RequestsPerMinute int
}

// sender - то, что нужно боту от tgbotapi.BotAPI для отправки сообщений.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api             *tgbotapi.BotAPI
	sender          sender
	userService     service.UserService
	researchService service.ResearchService
	logger          *zap.Logger
	metrics         *metrics.Metrics
	handler         *Handler
	rateLimiter     *ratelimit.Limiter
	wg              sync.WaitGroup
}

func New(cfg BotConfig, userSvc service.UserService, researchSvc service.ResearchService, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	rateLimiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RequestsPerMinute,
	})

	bot := &Bot{
		api:             api,
		sender:          api,
		userService:     userSvc,
		researchService: researchSvc,
		logger:          logger,
		metrics:         m,
		rateLimiter:     rateLimiter,
	}

	bot.handler = NewHandler(bot)

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func (b *Bot) Run(ctx context.Context) error {
	defer b.rateLimiter.Stop()

	b.resumeTasks(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// resumeTasks снова следит за задачами, которые не завершились до рестарта.
func (b *Bot) resumeTasks(ctx context.Context) {
	tasks, err := b.researchService.Unfinished(ctx)
	if err != nil {
		b.logger.Error("failed to load unfinished tasks", zap.Error(err))
		return
	}

	for _, task := range tasks {
		b.logger.Info("resuming research task",
			zap.String("task_id", task.ID),
			zap.Int64("chat_id", task.ChatID),
		)
		b.trackInBackground(ctx, task.ChatID, task.ID)
	}
}

// trackInBackground ждёт завершения задачи и присылает отчёт в чат.
func (b *Bot) trackInBackground(ctx context.Context, chatID int64, taskID string) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.track(ctx, chatID, taskID)
	}()
}

func (b *Bot) track(ctx context.Context, chatID int64, taskID string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in task tracker",
				zap.Any("panic", r),
				zap.String("task_id", taskID),
			)
		}
	}()

	task, err := b.researchService.Track(ctx, taskID, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// бот останавливается, продолжим после рестарта
			return
		}
		b.Send(chatID, fmt.Sprintf("Исследование <code>%s</code> не завершилось. %s", html.EscapeString(taskID), mapErrorToMessage(err)))
		return
	}

	b.SendLong(chatID, FormatReport(task))
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()

	if b.metrics != nil {
		b.metrics.IncRequestsInFlight()
		defer b.metrics.DecRequestsInFlight()
	}

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message != nil && update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			if b.metrics != nil {
				b.metrics.RecordRequest("message", "panic", time.Since(startTime))
			}
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)

	if b.metrics != nil {
		reqType := "command"
		if update.Message != nil && !update.Message.IsCommand() {
			reqType = "query"
		}
		b.metrics.RecordRequest(reqType, "processed", time.Since(startTime))
	}
}

func (b *Bot) Send(chatID int64, text string) error {
	if b.sender == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	_, err := b.sender.Send(msg)
	return err
}

// SendLong режет текст на части по лимиту телеграма.
func (b *Bot) SendLong(chatID int64, text string) {
	for _, part := range SplitMessage(text, maxMessageLen) {
		if err := b.Send(chatID, part); err != nil {
			b.logger.Error("failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
		}
	}
}

func (b *Bot) SendTyping(chatID int64) {
	if b.sender == nil {
		return
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	b.sender.Send(action)
}

func (b *Bot) RecordRateLimitHit() {
	if b.metrics != nil {
		b.metrics.RecordRateLimitHit()
	}
}
