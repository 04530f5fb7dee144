package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/valyu-go/internal/cache"
	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/internal/metrics"
	"github.com/kitbuilder587/valyu-go/internal/repository"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

// API is the part of *valyu.Client the service uses.
type API interface {
	DeepSearch(ctx context.Context, req valyu.SearchRequest) (*valyu.SearchResponse, error)
	Contents(ctx context.Context, req valyu.ContentsRequest) (*valyu.ContentsResponse, error)
	Answer(ctx context.Context, req valyu.AnswerRequest) (*valyu.AnswerResponse, error)
	CreateTask(ctx context.Context, req valyu.TaskRequest) (*valyu.Task, error)
	TaskStatus(ctx context.Context, taskID string) (*valyu.Task, error)
	CancelTask(ctx context.Context, taskID string) (*valyu.OperationResponse, error)
	DeleteTask(ctx context.Context, taskID string) (*valyu.OperationResponse, error)
	WaitForTask(ctx context.Context, taskID string, opts valyu.WaitOptions) (*valyu.Task, error)
}

var _ API = (*valyu.Client)(nil)

type ResearchService interface {
	Search(ctx context.Context, req valyu.SearchRequest) (*valyu.SearchResponse, error)
	Answer(ctx context.Context, req valyu.AnswerRequest) (*valyu.AnswerResponse, error)
	Contents(ctx context.Context, req valyu.ContentsRequest) (*valyu.ContentsResponse, error)

	StartResearch(ctx context.Context, userID, chatID int64, req valyu.TaskRequest) (*domain.ResearchTask, error)
	Track(ctx context.Context, taskID string, onUpdate func(*valyu.Task)) (*valyu.Task, error)
	Status(ctx context.Context, chatID int64, taskID string) (*valyu.Task, error)
	Cancel(ctx context.Context, chatID int64, taskID string) error
	Delete(ctx context.Context, chatID int64, taskID string) error
	Tasks(ctx context.Context, chatID int64, limit int) ([]domain.ResearchTask, error)
	Unfinished(ctx context.Context) ([]domain.ResearchTask, error)
}

type Config struct {
	CacheTTL time.Duration
	// ContentsParallel - сколько пачек URL обрабатываем одновременно
	ContentsParallel int
	PollInterval     time.Duration
	// MaxWait 0 - по режиму задачи
	MaxWait time.Duration
}

type Deps struct {
	API     API
	Tasks   repository.TaskRepository
	Cache   cache.Cache
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  Config
}

type researchService struct {
	api     API
	tasks   repository.TaskRepository
	cache   cache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
	config  Config
	now     func() time.Time
}

func NewResearchService(deps Deps) ResearchService {
	if deps.Config.CacheTTL == 0 {
		deps.Config.CacheTTL = time.Hour
	}
	if deps.Config.ContentsParallel <= 0 {
		deps.Config.ContentsParallel = 3
	}
	if deps.Config.PollInterval <= 0 {
		deps.Config.PollInterval = valyu.DefaultPollInterval
	}
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &researchService{
		api:     deps.API,
		tasks:   deps.Tasks,
		cache:   deps.Cache,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		config:  deps.Config,
		now:     time.Now,
	}
}

func (s *researchService) Search(ctx context.Context, req valyu.SearchRequest) (*valyu.SearchResponse, error) {
	q := domain.QueryRequest{Text: req.Query, Kind: domain.QuerySearch}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.Sanitize()
	req.Query = q.Text

	var resp valyu.SearchResponse
	err := s.cached(ctx, "search", req, &resp, func() (any, error) {
		return s.api.DeepSearch(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("search done",
		zap.Int("query_length", len(req.Query)),
		zap.Int("results", len(resp.Results)),
	)
	return &resp, nil
}

func (s *researchService) Answer(ctx context.Context, req valyu.AnswerRequest) (*valyu.AnswerResponse, error) {
	q := domain.QueryRequest{Text: req.Query, Kind: domain.QueryAnswer}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.Sanitize()
	req.Query = q.Text

	var resp valyu.AnswerResponse
	err := s.cached(ctx, "answer", req, &resp, func() (any, error) {
		return s.api.Answer(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	if len(req.StructuredOutput) > 0 {
		if err := ValidateAnswer(req.StructuredOutput, &resp); err != nil {
			s.logger.Warn("structured answer does not match schema", zap.Error(err))
		}
	}
	return &resp, nil
}

// cached serves out from the cache, or calls fetch and stores its result.
// Cache failures are logged and never fail the request.
func (s *researchService) cached(ctx context.Context, kind string, req any, out any, fetch func() (any, error)) error {
	key, err := cacheKey(kind, req)
	if err != nil {
		return err
	}

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", zap.String("kind", kind), zap.Error(err))
	}
	if ok {
		if err := json.Unmarshal(data, out); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheHit(kind)
			}
			return nil
		}
		// битая запись - просто идём в API
		s.logger.Warn("cached value is broken", zap.String("key", key))
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(kind)
	}

	resp, err := fetch()
	if err != nil {
		return err
	}

	data, err = json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode %s response: %w", kind, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", kind, err)
	}
	if err := s.cache.Set(ctx, key, data, s.config.CacheTTL); err != nil {
		s.logger.Warn("cache set failed", zap.String("kind", kind), zap.Error(err))
	}
	return nil
}

func cacheKey(kind string, req any) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", kind, hash[:12]), nil
}

// Contents extracts any number of URLs, splitting them into calls of at most
// domain.MaxURLsPerCall. Results keep the input order. A batch rejected with
// 422 (all URLs failed) is counted as failed instead of failing the whole call.
func (s *researchService) Contents(ctx context.Context, req valyu.ContentsRequest) (*valyu.ContentsResponse, error) {
	if err := domain.ValidateURLs(req.URLs); err != nil {
		return nil, err
	}

	batches := chunk(req.URLs, domain.MaxURLsPerCall)
	responses := make([]*valyu.ContentsResponse, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.ContentsParallel)

	for i, urls := range batches {
		g.Go(func() error {
			batchReq := req
			batchReq.URLs = urls

			resp, err := s.api.Contents(gctx, batchReq)
			if err != nil {
				if allURLsFailed(err) {
					s.logger.Warn("contents batch failed entirely",
						zap.Int("batch", i),
						zap.Int("urls", len(urls)),
					)
					responses[i] = &valyu.ContentsResponse{
						URLsRequested: len(urls),
						URLsFailed:    len(urls),
					}
					return nil
				}
				return err
			}
			responses[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeContents(responses)
	s.logger.Info("contents done",
		zap.Int("urls", len(req.URLs)),
		zap.Int("batches", len(batches)),
		zap.Int("failed", merged.URLsFailed),
	)
	return merged, nil
}

func allURLsFailed(err error) bool {
	var apiErr *valyu.Error
	return errors.As(err, &apiErr) &&
		errors.Is(err, valyu.ErrAPI) &&
		apiErr.StatusCode == http.StatusUnprocessableEntity
}

func mergeContents(parts []*valyu.ContentsResponse) *valyu.ContentsResponse {
	out := &valyu.ContentsResponse{Envelope: valyu.Envelope{Success: true}}
	for _, p := range parts {
		if p == nil {
			continue
		}
		if out.TxID == "" {
			out.TxID = p.TxID
		}
		out.Results = append(out.Results, p.Results...)
		out.URLsRequested += p.URLsRequested
		out.URLsProcessed += p.URLsProcessed
		out.URLsFailed += p.URLsFailed
		out.TotalCostDollars += p.TotalCostDollars
		out.TotalCharacters += p.TotalCharacters
	}
	return out
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
