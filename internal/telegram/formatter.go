package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

const (
	maxMessageLen = 4096 // лимит телеграма
	snippetLen    = 300
	separator     = "\n\n━━━━━━━━━━━━━━━━━━━━━\n"
)

func FormatSearchResults(resp *valyu.SearchResponse) string {
	if len(resp.Results) == 0 {
		return "Ничего не найдено."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Результаты поиска (%d):</b>\n\n", len(resp.Results)))

	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		sb.WriteString(fmt.Sprintf("%d. <b>%s</b>\n", i+1, html.EscapeString(title)))
		if r.URL != "" {
			sb.WriteString(fmt.Sprintf("   <a href=\"%s\">%s</a>", html.EscapeString(r.URL), html.EscapeString(truncateURL(r.URL, 50))))
			if r.Source != "" {
				sb.WriteString(fmt.Sprintf(" [%s]", html.EscapeString(r.Source)))
			}
			sb.WriteString("\n")
		}
		if snippet := firstNonEmpty(r.Description, r.Content); snippet != "" {
			sb.WriteString("   " + html.EscapeString(truncateText(snippet, snippetLen)) + "\n")
		}
		sb.WriteString("\n")
	}

	if resp.TotalDeductionDollars > 0 {
		sb.WriteString(fmt.Sprintf("<i>Стоимость: $%.4f</i>", resp.TotalDeductionDollars))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatAnswer(resp *valyu.AnswerResponse) string {
	var sb strings.Builder

	text := resp.Text()
	if resp.DataType == "structured" {
		sb.WriteString("<pre>" + html.EscapeString(text) + "</pre>")
	} else {
		sb.WriteString(html.EscapeString(text))
	}

	if len(resp.SearchResults) > 0 {
		sb.WriteString(separator)
		sb.WriteString("<b>Источники:</b>\n")

		for i, src := range resp.SearchResults {
			escapedURL := html.EscapeString(src.URL)
			sb.WriteString(fmt.Sprintf("[%d] %s\n   <a href=\"%s\">%s</a>\n",
				i+1,
				html.EscapeString(src.Title),
				escapedURL,
				html.EscapeString(truncateURL(src.URL, 50)),
			))
		}
	}

	if resp.Cost != nil && resp.Cost.TotalDollars > 0 {
		sb.WriteString(fmt.Sprintf("\n<i>Стоимость: $%.4f</i>", resp.Cost.TotalDollars))
	}
	return sb.String()
}

func FormatContents(resp *valyu.ContentsResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Обработано %d из %d</b>", resp.URLsProcessed, resp.URLsRequested))
	if resp.URLsFailed > 0 {
		sb.WriteString(fmt.Sprintf(", не удалось: %d", resp.URLsFailed))
	}
	sb.WriteString("\n\n")

	for _, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		sb.WriteString(fmt.Sprintf("<b>%s</b>\n<a href=\"%s\">%s</a>\n",
			html.EscapeString(title),
			html.EscapeString(r.URL),
			html.EscapeString(truncateURL(r.URL, 50)),
		))
		if text := r.Text(); text != "" {
			sb.WriteString(html.EscapeString(truncateText(text, 1000)) + "\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatTaskCreated(task *domain.ResearchTask) string {
	return fmt.Sprintf("Исследование запущено (%s).\nID: <code>%s</code>\n\nПришлю отчёт, когда он будет готов. Статус: /status %s",
		html.EscapeString(task.Mode),
		html.EscapeString(task.ID),
		html.EscapeString(task.ID),
	)
}

func FormatTaskStatus(task *valyu.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <code>%s</code>: <b>%s</b>\n",
		getStatusIcon(domain.TaskStatus(task.Status)),
		html.EscapeString(task.ID),
		html.EscapeString(string(task.Status)),
	))
	if task.Query != "" {
		sb.WriteString(html.EscapeString(truncateText(task.Query, 200)) + "\n")
	}
	if task.Progress != nil && task.Progress.TotalSteps > 0 {
		sb.WriteString(fmt.Sprintf("Шаг %d из %d\n", task.Progress.CurrentStep, task.Progress.TotalSteps))
	}
	if task.Error != "" {
		sb.WriteString("Ошибка: " + html.EscapeString(task.Error) + "\n")
	}
	if task.PDFURL != "" {
		sb.WriteString(fmt.Sprintf("<a href=\"%s\">PDF</a>\n", html.EscapeString(task.PDFURL)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatTaskList(tasks []domain.ResearchTask) string {
	var sb strings.Builder
	sb.WriteString("<b>Ваши исследования:</b>\n\n")

	for i, t := range tasks {
		sb.WriteString(fmt.Sprintf("%d. %s %s\n   <code>%s</code> [%s]\n\n",
			i+1,
			getStatusIcon(t.Status),
			html.EscapeString(truncateText(t.Query, 80)),
			html.EscapeString(t.ID),
			t.Status,
		))
	}

	sb.WriteString(fmt.Sprintf("Всего: %d", len(tasks)))
	return sb.String()
}

func FormatReport(task *valyu.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Исследование готово</b> <code>%s</code>\n\n", html.EscapeString(task.ID)))
	sb.WriteString(html.EscapeString(task.Report()))

	if len(task.Sources) > 0 {
		sb.WriteString(separator)
		sb.WriteString("<b>Источники:</b>\n")
		for i, src := range task.Sources {
			sb.WriteString(fmt.Sprintf("[%d] %s\n   <a href=\"%s\">%s</a>\n",
				i+1,
				html.EscapeString(firstNonEmpty(src.Title, src.URL)),
				html.EscapeString(src.URL),
				html.EscapeString(truncateURL(src.URL, 50)),
			))
		}
	}

	if task.PDFURL != "" {
		sb.WriteString(fmt.Sprintf("\n<a href=\"%s\">PDF версия</a>", html.EscapeString(task.PDFURL)))
	}
	if task.Usage != nil && task.Usage.TotalCost > 0 {
		sb.WriteString(fmt.Sprintf("\n<i>Стоимость: $%.2f</i>", task.Usage.TotalCost))
	}
	return sb.String()
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// ищем пробел или перевод строки, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// внутри тега - ищем конец
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}

func getStatusIcon(status domain.TaskStatus) string {
	switch status {
	case domain.TaskCompleted:
		return "●"
	case domain.TaskRunning:
		return "◐"
	case domain.TaskFailed, domain.TaskCancelled:
		return "✕"
	default:
		return "○"
	}
}

func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}

// truncateText режет по рунам, чтобы не ломать кириллицу.
func truncateText(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
