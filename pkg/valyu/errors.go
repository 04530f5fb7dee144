package valyu

import (
	"errors"
	"fmt"
)

// Kinds of failure. Every error returned by Client matches exactly one of them
// with errors.Is.
var (
	ErrTransport          = errors.New("http request failed")
	ErrInvalidAPIKey      = errors.New("invalid API key provided")
	ErrRateLimit          = errors.New("rate limit exceeded")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInvalidRequest     = errors.New("invalid request parameters")
	ErrAPI                = errors.New("api error")
	ErrParse              = errors.New("failed to parse API response")
)

// Error - ошибка вызова API с деталями. Kind всегда один из Err* выше.
type Error struct {
	Kind       error
	Detail     string
	StatusCode int // 0 если до HTTP статуса не дошли
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether the caller may retry the same request later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrServiceUnavailable)
}

func transportError(err error) error {
	return &Error{Kind: ErrTransport, Err: err}
}

func statusError(kind error, status int, detail string) error {
	return &Error{Kind: kind, StatusCode: status, Detail: detail}
}

func parseError(status int, err error) error {
	return &Error{Kind: ErrParse, StatusCode: status, Err: err}
}

func apiError(detail string) error {
	return &Error{Kind: ErrAPI, Detail: detail}
}
