package telegram

import (
	"strings"

	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

// /search, /answer, /research -> соответствующий тип запроса
// обычный текст -> defaultKind
func ParseQueryCommand(text string, defaultKind domain.QueryKind) (question string, kind domain.QueryKind) {
	text = strings.TrimSpace(text)

	if text == "" {
		return "", defaultKind
	}

	if !strings.HasPrefix(text, "/") {
		return text, defaultKind
	}

	command, rest := splitCommand(text)

	switch command {
	case "/search":
		return rest, domain.QuerySearch
	case "/answer":
		return rest, domain.QueryAnswer
	case "/research":
		return rest, domain.QueryResearch
	default:
		return text, defaultKind
	}
}

// ParseResearchArgs отделяет режим от вопроса: "heavy рынок батарей".
func ParseResearchArgs(args string) (question string, mode valyu.Mode) {
	args = normalizeSpaces(args)
	first, rest, _ := strings.Cut(args, " ")

	switch strings.ToLower(first) {
	case string(valyu.ModeLite):
		return rest, valyu.ModeLite
	case string(valyu.ModeHeavy):
		return rest, valyu.ModeHeavy
	default:
		return args, valyu.ModeLite
	}
}

// ParseURLs разбирает список URL через пробел, запятую или перевод строки.
func ParseURLs(args string) []string {
	fields := strings.FieldsFunc(args, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func splitCommand(text string) (command, rest string) {
	parts := strings.SplitN(text, " ", 2)
	command = strings.ToLower(parts[0])
	// /search@my_bot в группах
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	if len(parts) > 1 {
		rest = normalizeSpaces(parts[1])
	}
	return command, rest
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
