package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

const tasksListLimit = 10

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

// DefaultKind - что делаем с обычным текстом без команды.
var DefaultKind = domain.QueryAnswer

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
	} else {
		h.handleQuery(ctx, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "search", "answer":
		h.handleQuery(ctx, msg)
	case "contents":
		h.handleContents(ctx, msg)
	case "research":
		h.handleResearch(ctx, msg)
	case "status":
		h.handleStatus(ctx, msg)
	case "cancel":
		h.handleCancel(ctx, msg)
	case "delete":
		h.handleDelete(ctx, msg)
	case "tasks":
		h.handleTasks(ctx, msg)
	default:
		h.bot.Send(msg.Chat.ID, "Неизвестная команда. Используйте /help для справки.")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.bot.userService.GetOrCreate(ctx, msg.From.ID, msg.From.UserName); err != nil {
		h.bot.logger.Error("failed to create user", zap.Error(err))
		h.bot.Send(msg.Chat.ID, "Произошла ошибка. Попробуйте позже.")
		return
	}

	h.bot.Send(msg.Chat.ID, "Добро пожаловать! Я ищу информацию через Valyu.\n\nИспользуйте /help для просмотра доступных команд.")
}

func (h *Handler) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	helpText := `<b>Доступные команды:</b>

/start - Регистрация
/help - Показать эту справку

<b>Поиск:</b>
/search запрос - Результаты поиска со ссылками
/answer вопрос - Ответ с источниками
/contents URL [URL...] - Извлечь текст страниц (до 50)

<b>Исследования:</b>
/research [lite|heavy] тема - Запустить глубокое исследование
/status ID - Статус исследования
/cancel ID - Отменить исследование
/delete ID - Удалить исследование
/tasks - Ваши последние исследования

<b>Как использовать:</b>
Просто отправьте вопрос, и я отвечу со ссылками на источники.

<b>Примеры:</b>
• /search solid-state batteries 2025
• /research heavy рынок накопителей энергии в ЕС`

	remaining := h.bot.rateLimiter.RemainingRequests(msg.From.ID)
	helpText += fmt.Sprintf("\n\nОсталось запросов в эту минуту: %d", remaining)

	h.bot.Send(msg.Chat.ID, helpText)
}

// allow проверяет лимит запросов пользователя и сообщает, если он исчерпан.
func (h *Handler) allow(msg *tgbotapi.Message) bool {
	if h.bot.rateLimiter.Allow(msg.From.ID) {
		return true
	}

	resetTime := h.bot.rateLimiter.ResetTime(msg.From.ID)
	h.bot.logger.Warn("rate limit exceeded",
		zap.Int64("user_id", msg.From.ID),
		zap.Time("reset_at", resetTime),
	)
	h.bot.RecordRateLimitHit()
	h.bot.Send(msg.Chat.ID, "Слишком много запросов. Пожалуйста, подождите минуту.")
	return false
}

func (h *Handler) handleQuery(ctx context.Context, msg *tgbotapi.Message) {
	question, kind := ParseQueryCommand(msg.Text, DefaultKind)

	if !h.allow(msg) {
		return
	}

	if _, err := h.bot.userService.GetOrCreate(ctx, msg.From.ID, msg.From.UserName); err != nil {
		h.bot.Send(msg.Chat.ID, "Произошла ошибка. Попробуйте позже.")
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	h.bot.logger.Info("processing query",
		zap.Int64("user_id", msg.From.ID),
		zap.String("kind", string(kind)),
		zap.Int("query_length", len(question)),
	)

	var (
		text string
		err  error
	)
	switch kind {
	case domain.QuerySearch:
		var resp *valyu.SearchResponse
		resp, err = h.bot.researchService.Search(ctx, valyu.SearchRequest{Query: question})
		if err == nil {
			text = FormatSearchResults(resp)
		}
	default:
		var resp *valyu.AnswerResponse
		resp, err = h.bot.researchService.Answer(ctx, valyu.AnswerRequest{Query: question})
		if err == nil {
			text = FormatAnswer(resp)
		}
	}

	if err != nil {
		h.bot.logger.Error("query processing failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.SendLong(msg.Chat.ID, text)
}

func (h *Handler) handleContents(ctx context.Context, msg *tgbotapi.Message) {
	urls := ParseURLs(msg.CommandArguments())
	if len(urls) == 0 {
		h.bot.Send(msg.Chat.ID, "Укажите URL: /contents https://example.com")
		return
	}

	if !h.allow(msg) {
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	resp, err := h.bot.researchService.Contents(ctx, valyu.ContentsRequest{URLs: urls})
	if err != nil {
		h.bot.logger.Error("contents failed", zap.Error(err), zap.Int("urls", len(urls)))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.SendLong(msg.Chat.ID, FormatContents(resp))
}

func (h *Handler) handleResearch(ctx context.Context, msg *tgbotapi.Message) {
	question, mode := ParseResearchArgs(msg.CommandArguments())
	if question == "" {
		h.bot.Send(msg.Chat.ID, "Укажите тему: /research [lite|heavy] тема")
		return
	}

	if !h.allow(msg) {
		return
	}

	user, err := h.bot.userService.GetOrCreate(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.bot.Send(msg.Chat.ID, "Произошла ошибка. Попробуйте позже.")
		return
	}

	task, err := h.bot.researchService.StartResearch(ctx, user.ID, msg.Chat.ID, valyu.TaskRequest{
		Query: question,
		Mode:  mode,
	})
	if err != nil {
		h.bot.logger.Error("failed to start research", zap.Error(err), zap.Int64("user_id", user.ID))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.Send(msg.Chat.ID, FormatTaskCreated(task))
	h.bot.trackInBackground(ctx, msg.Chat.ID, task.ID)
}

func (h *Handler) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		h.bot.Send(msg.Chat.ID, "Укажите ID исследования: /status dr_...")
		return
	}

	if !h.allow(msg) {
		return
	}

	task, err := h.bot.researchService.Status(ctx, msg.Chat.ID, taskID)
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.Send(msg.Chat.ID, FormatTaskStatus(task))
}

func (h *Handler) handleCancel(ctx context.Context, msg *tgbotapi.Message) {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		h.bot.Send(msg.Chat.ID, "Укажите ID исследования: /cancel dr_...")
		return
	}

	if !h.allow(msg) {
		return
	}

	if err := h.bot.researchService.Cancel(ctx, msg.Chat.ID, taskID); err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.Send(msg.Chat.ID, "Исследование отменено.")
}

func (h *Handler) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		h.bot.Send(msg.Chat.ID, "Укажите ID исследования: /delete dr_...")
		return
	}

	if !h.allow(msg) {
		return
	}

	if err := h.bot.researchService.Delete(ctx, msg.Chat.ID, taskID); err != nil {
		h.bot.logger.Warn("failed to delete task", zap.String("task_id", taskID), zap.Error(err))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.Send(msg.Chat.ID, "Исследование удалено.")
}

func (h *Handler) handleTasks(ctx context.Context, msg *tgbotapi.Message) {
	if !h.allow(msg) {
		return
	}

	tasks, err := h.bot.researchService.Tasks(ctx, msg.Chat.ID, tasksListLimit)
	if err != nil {
		h.bot.logger.Error("failed to list tasks", zap.Error(err))
		h.bot.Send(msg.Chat.ID, "Произошла ошибка. Попробуйте позже.")
		return
	}

	if len(tasks) == 0 {
		h.bot.Send(msg.Chat.ID, "У вас нет исследований. Запустите: /research тема")
		return
	}

	h.bot.Send(msg.Chat.ID, FormatTaskList(tasks))
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return "Некорректный URL."
	case errors.Is(err, domain.ErrNoURLs):
		return "Укажите хотя бы один URL."
	case errors.Is(err, domain.ErrTooManyURLs):
		return "Слишком много URL. Максимум 50."
	case errors.Is(err, domain.ErrEmptyQuery):
		return "Пустой запрос. Введите ваш вопрос."
	case errors.Is(err, domain.ErrQueryTooLong):
		return "Запрос слишком длинный. Максимум 1000 символов."
	case errors.Is(err, domain.ErrTaskNotFound):
		return "Исследование не найдено."
	case errors.Is(err, domain.ErrEmptyTaskID):
		return "Укажите ID исследования."
	case errors.Is(err, valyu.ErrRateLimit):
		return "Valyu ограничивает частоту запросов. Попробуйте через минуту."
	case errors.Is(err, valyu.ErrInvalidAPIKey):
		return "Сервис поиска не настроен. Обратитесь к администратору."
	case errors.Is(err, valyu.ErrServiceUnavailable):
		return "Сервис поиска временно недоступен. Попробуйте позже."
	case errors.Is(err, valyu.ErrInvalidRequest):
		return "Некорректный запрос: " + errorDetail(err)
	case errors.Is(err, valyu.ErrTransport):
		return "Не удалось связаться с сервисом поиска. Попробуйте позже."
	case errors.Is(err, valyu.ErrAPI):
		return "Ошибка сервиса: " + errorDetail(err)
	default:
		return "Произошла ошибка. Попробуйте позже."
	}
}

// errorDetail достаёт текст ошибки от API без префикса вида ошибки.
func errorDetail(err error) string {
	var apiErr *valyu.Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return html.EscapeString(apiErr.Detail)
	}
	return html.EscapeString(err.Error())
}
