package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

// fakeAPI - заглушка API, каждый метод можно подменить.
type fakeAPI struct {
	searchCalls   atomic.Int32
	answerCalls   atomic.Int32
	contentsCalls atomic.Int32

	mu           sync.Mutex
	contentsSeen [][]string
	cancelled    []string
	deleted      []string
	waitOpts     valyu.WaitOptions

	search     func(valyu.SearchRequest) (*valyu.SearchResponse, error)
	answer     func(valyu.AnswerRequest) (*valyu.AnswerResponse, error)
	contents   func(valyu.ContentsRequest) (*valyu.ContentsResponse, error)
	createTask func(valyu.TaskRequest) (*valyu.Task, error)
	taskStatus func(string) (*valyu.Task, error)
	cancelTask func(string) (*valyu.OperationResponse, error)
	deleteTask func(string) (*valyu.OperationResponse, error)
	wait       func(string, valyu.WaitOptions) (*valyu.Task, error)
}

func (f *fakeAPI) DeepSearch(_ context.Context, req valyu.SearchRequest) (*valyu.SearchResponse, error) {
	f.searchCalls.Add(1)
	return f.search(req)
}

func (f *fakeAPI) Answer(_ context.Context, req valyu.AnswerRequest) (*valyu.AnswerResponse, error) {
	f.answerCalls.Add(1)
	return f.answer(req)
}

func (f *fakeAPI) Contents(_ context.Context, req valyu.ContentsRequest) (*valyu.ContentsResponse, error) {
	f.contentsCalls.Add(1)
	f.mu.Lock()
	f.contentsSeen = append(f.contentsSeen, req.URLs)
	f.mu.Unlock()
	return f.contents(req)
}

func (f *fakeAPI) CreateTask(_ context.Context, req valyu.TaskRequest) (*valyu.Task, error) {
	return f.createTask(req)
}

func (f *fakeAPI) TaskStatus(_ context.Context, id string) (*valyu.Task, error) {
	return f.taskStatus(id)
}

func (f *fakeAPI) CancelTask(_ context.Context, id string) (*valyu.OperationResponse, error) {
	f.mu.Lock()
	f.cancelled = append(f.cancelled, id)
	f.mu.Unlock()
	if f.cancelTask != nil {
		return f.cancelTask(id)
	}
	return &valyu.OperationResponse{Envelope: valyu.Envelope{Success: true}}, nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, id string) (*valyu.OperationResponse, error) {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	if f.deleteTask != nil {
		return f.deleteTask(id)
	}
	return &valyu.OperationResponse{Envelope: valyu.Envelope{Success: true}}, nil
}

func (f *fakeAPI) WaitForTask(_ context.Context, id string, opts valyu.WaitOptions) (*valyu.Task, error) {
	f.mu.Lock()
	f.waitOpts = opts
	f.mu.Unlock()
	return f.wait(id, opts)
}
