package domain

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	MaxQueryLength = 1000
	// MaxURLsPerCall - сколько URL принимает один вызов /contents
	MaxURLsPerCall = 10
	// MaxURLsPerRequest - сколько URL мы готовы разбить на пачки
	MaxURLsPerRequest = 50
)

type QueryKind string

const (
	QuerySearch   QueryKind = "search"
	QueryAnswer   QueryKind = "answer"
	QueryResearch QueryKind = "research"
)

type QueryRequest struct {
	UserID int64
	Text   string
	Kind   QueryKind
}

func (q *QueryRequest) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQuery
	}

	if len(q.Text) > MaxQueryLength {
		return ErrQueryTooLong
	}

	return nil
}

func (q *QueryRequest) Sanitize() {
	q.Text = strings.TrimSpace(q.Text)
	if len(q.Text) > MaxQueryLength {
		q.Text = q.Text[:MaxQueryLength]
	}
}

// ValidateURLs checks that every entry is an absolute http(s) URL.
func ValidateURLs(urls []string) error {
	if len(urls) == 0 {
		return ErrNoURLs
	}
	if len(urls) > MaxURLsPerRequest {
		return ErrTooManyURLs
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
	}
	return nil
}
