package valyu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// endpoint describes how one API call maps HTTP statuses to errors. The
// mapping differs between endpoints: 400 is InvalidRequest only where the
// flag is set, and search folds it into the generic bucket.
type endpoint struct {
	name     string
	accepted []int

	invalidRequest bool // 400
	credits        bool // 402
	taskNotFound   bool // 404
	allURLsFailed  bool // 422
}

var (
	searchEndpoint = endpoint{
		name:     "search",
		accepted: []int{http.StatusOK, http.StatusPartialContent},
	}
	contentsEndpoint = endpoint{
		name:           "contents",
		accepted:       []int{http.StatusOK, http.StatusPartialContent},
		invalidRequest: true,
		credits:        true,
		allURLsFailed:  true,
	}
	answerEndpoint = endpoint{
		name:           "answer",
		accepted:       []int{http.StatusOK},
		invalidRequest: true,
		credits:        true,
	}
	createTaskEndpoint = endpoint{
		name:           "task_create",
		accepted:       []int{http.StatusOK, http.StatusCreated, http.StatusAccepted},
		invalidRequest: true,
		credits:        true,
	}
	taskStatusEndpoint = endpoint{
		name:         "task_status",
		accepted:     []int{http.StatusOK},
		taskNotFound: true,
	}
	listTasksEndpoint = endpoint{
		name:     "task_list",
		accepted: []int{http.StatusOK},
	}
	updateTaskEndpoint = endpoint{
		name:         "task_update",
		accepted:     []int{http.StatusOK},
		taskNotFound: true,
	}
	cancelTaskEndpoint = endpoint{
		name:         "task_cancel",
		accepted:     []int{http.StatusOK},
		taskNotFound: true,
	}
	deleteTaskEndpoint = endpoint{
		name:         "task_delete",
		accepted:     []int{http.StatusOK},
		taskNotFound: true,
	}
)

func (e endpoint) accepts(status int) bool {
	return slices.Contains(e.accepted, status)
}

func (e endpoint) classify(status int, body []byte) error {
	switch {
	case status == http.StatusBadRequest && e.invalidRequest:
		return statusError(ErrInvalidRequest, status, bodyDetail(body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return statusError(ErrInvalidAPIKey, status, "")
	case status == http.StatusPaymentRequired && e.credits:
		return statusError(ErrAPI, status, "insufficient credits")
	case status == http.StatusNotFound && e.taskNotFound:
		return statusError(ErrAPI, status, "task not found")
	case status == http.StatusUnprocessableEntity && e.allURLsFailed:
		return statusError(ErrAPI, status, "all URLs failed processing")
	case status == http.StatusTooManyRequests:
		return statusError(ErrRateLimit, status, "")
	case status == http.StatusServiceUnavailable:
		return statusError(ErrServiceUnavailable, status, "")
	default:
		detail := fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
		if text := strings.TrimSpace(string(body)); text != "" {
			detail += ": " + text
		}
		return statusError(ErrAPI, status, detail)
	}
}

// bodyDetail prefers the "error" field of a JSON error body over the raw text.
func bodyDetail(body []byte) string {
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return strings.TrimSpace(string(body))
}

// do issues exactly one HTTP call. No retries here: the caller decides, see IsRetryable.
func (c *Client) do(ctx context.Context, ep endpoint, method, path string, in any, out enveloped) (err error) {
	start := time.Now()
	callID := uuid.NewString()
	status := 0
	defer func() {
		c.finish(ep, callID, status, time.Since(start), err)
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return transportError(err)
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: ErrInvalidRequest, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return transportError(fmt.Errorf("create request: %w", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(fmt.Errorf("read response: %w", err))
	}

	if !ep.accepts(status) {
		return ep.classify(status, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return parseError(status, err)
	}

	// 200 ещё не значит успех
	if env := out.envelope(); !env.Success {
		detail := env.Error
		if detail == "" {
			detail = "API request was not successful"
		}
		return statusError(ErrAPI, status, detail)
	}

	return nil
}

func (c *Client) finish(ep endpoint, callID string, status int, d time.Duration, err error) {
	outcome := Outcome(err)
	if c.observer != nil {
		c.observer.ObserveRequest(ep.name, outcome, d)
	}

	fields := []zap.Field{
		zap.String("endpoint", ep.name),
		zap.String("call_id", callID),
		zap.Int("status", status),
		zap.Duration("duration", d),
	}
	if err != nil {
		c.logger.Warn("valyu request failed", append(fields, zap.String("outcome", outcome), zap.Error(err))...)
		return
	}
	c.logger.Debug("valyu request", fields...)
}

// Outcome returns a short label for err, "ok" for nil. Used as a metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidAPIKey):
		return "invalid_api_key"
	case errors.Is(err, ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, ErrAPI):
		return "api_error"
	default:
		return "error"
	}
}
