package domain

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
)

var (
	ErrEmptyQuery   = errors.New("empty query")
	ErrQueryTooLong = errors.New("query too long")
)

var (
	ErrNoURLs      = errors.New("no urls given")
	ErrInvalidURL  = errors.New("invalid url")
	ErrTooManyURLs = errors.New("too many urls")
)

var (
	ErrTaskNotFound  = errors.New("research task not found")
	ErrDuplicateTask = errors.New("research task already exists")
	ErrEmptyTaskID   = errors.New("empty task id")
)

var (
	ErrSchemaMismatch = errors.New("answer does not match schema")
	ErrNotStructured  = errors.New("answer is not structured")
)
