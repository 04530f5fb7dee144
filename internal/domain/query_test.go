package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   QueryRequest
		wantErr error
	}{
		{"ok", QueryRequest{UserID: 123, Text: "What is Go?", Kind: QuerySearch}, nil},
		{"empty", QueryRequest{UserID: 123, Text: ""}, ErrEmptyQuery},
		{"whitespace", QueryRequest{UserID: 123, Text: "   "}, ErrEmptyQuery},
		{"max len", QueryRequest{UserID: 123, Text: strings.Repeat("a", MaxQueryLength)}, nil},
		{"too long", QueryRequest{UserID: 123, Text: strings.Repeat("a", MaxQueryLength+1)}, ErrQueryTooLong},
		{"newlines", QueryRequest{UserID: 123, Text: "Hello\nWorld", Kind: QueryAnswer}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("QueryRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQueryRequest_Sanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no trim", "Hello World", "Hello World"},
		{"trim both", "   Hello World   ", "Hello World"},
		{"trim tabs", "\t\tHello World\t\t", "Hello World"},
		{"trim newlines", "\n\nHello World\n\n", "Hello World"},
		{"preserve internal", "  Hello   World  ", "Hello   World"},
		{"truncate", strings.Repeat("b", MaxQueryLength+10), strings.Repeat("b", MaxQueryLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QueryRequest{Text: tt.input}
			q.Sanitize()
			if q.Text != tt.expected {
				t.Errorf("Sanitize() = %q, want %q", q.Text, tt.expected)
			}
		})
	}
}

func TestValidateURLs(t *testing.T) {
	many := make([]string, MaxURLsPerRequest+1)
	for i := range many {
		many[i] = fmt.Sprintf("https://example.com/%d", i)
	}

	tests := []struct {
		name    string
		urls    []string
		wantErr error
	}{
		{"ok", []string{"https://example.com", "http://a.org/x?y=1"}, nil},
		{"empty", nil, ErrNoURLs},
		{"no scheme", []string{"example.com"}, ErrInvalidURL},
		{"ftp", []string{"ftp://example.com/file"}, ErrInvalidURL},
		{"garbage", []string{"https://exa mple.com/%zz"}, ErrInvalidURL},
		{"too many", many, ErrTooManyURLs},
		{"exactly max", many[:MaxURLsPerRequest], nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURLs(tt.urls)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateURLs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskStatus(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
		valid    bool
	}{
		{TaskQueued, false, true},
		{TaskRunning, false, true},
		{TaskCompleted, true, true},
		{TaskFailed, true, true},
		{TaskCancelled, true, true},
		{"paused", false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestResearchTask_Validate(t *testing.T) {
	if err := (&ResearchTask{ID: "t1", Query: "q"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (&ResearchTask{Query: "q"}).Validate(); err != ErrEmptyTaskID {
		t.Errorf("Validate() error = %v, want ErrEmptyTaskID", err)
	}
	if err := (&ResearchTask{ID: "t1"}).Validate(); err != ErrEmptyQuery {
		t.Errorf("Validate() error = %v, want ErrEmptyQuery", err)
	}
}
