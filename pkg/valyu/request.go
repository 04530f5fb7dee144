package valyu

import "encoding/json"

// SearchRequest - запрос к /deepsearch. Пустые опциональные поля не попадают в JSON.
type SearchRequest struct {
	Query              string   `json:"query"`
	MaxNumResults      *int     `json:"max_num_results,omitempty"`
	SearchType         string   `json:"search_type,omitempty"` // all, web, proprietary, news
	FastMode           *bool    `json:"fast_mode,omitempty"`
	MaxPrice           *float64 `json:"max_price,omitempty"`
	RelevanceThreshold *float64 `json:"relevance_threshold,omitempty"`
	IncludedSources    []string `json:"included_sources,omitempty"`
	ExcludedSources    []string `json:"excluded_sources,omitempty"`
	Category           string   `json:"category,omitempty"`
	ResponseLength     string   `json:"response_length,omitempty"`
	CountryCode        string   `json:"country_code,omitempty"`
	IsToolCall         *bool    `json:"is_tool_call,omitempty"`
	StartDate          string   `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate            string   `json:"end_date,omitempty"`
}

func NewSearchRequest(query string) SearchRequest {
	return SearchRequest{Query: query}
}

func (r SearchRequest) WithMaxResults(n int) SearchRequest {
	r.MaxNumResults = &n
	return r
}

func (r SearchRequest) WithSearchType(t string) SearchRequest {
	r.SearchType = t
	return r
}

func (r SearchRequest) WithFastMode(enabled bool) SearchRequest {
	r.FastMode = &enabled
	return r
}

func (r SearchRequest) WithMaxPrice(price float64) SearchRequest {
	r.MaxPrice = &price
	return r
}

func (r SearchRequest) WithRelevanceThreshold(threshold float64) SearchRequest {
	r.RelevanceThreshold = &threshold
	return r
}

func (r SearchRequest) WithIncludedSources(sources ...string) SearchRequest {
	r.IncludedSources = sources
	return r
}

func (r SearchRequest) WithExcludedSources(sources ...string) SearchRequest {
	r.ExcludedSources = sources
	return r
}

func (r SearchRequest) WithCategory(category string) SearchRequest {
	r.Category = category
	return r
}

func (r SearchRequest) WithResponseLength(length string) SearchRequest {
	r.ResponseLength = length
	return r
}

func (r SearchRequest) WithCountryCode(code string) SearchRequest {
	r.CountryCode = code
	return r
}

func (r SearchRequest) WithToolCall(isToolCall bool) SearchRequest {
	r.IsToolCall = &isToolCall
	return r
}

func (r SearchRequest) WithDateRange(start, end string) SearchRequest {
	r.StartDate = start
	r.EndDate = end
	return r
}

// ContentsRequest - извлечение контента из 1-10 URL. Лимит проверяет сервер.
type ContentsRequest struct {
	URLs            []string        `json:"urls"`
	ResponseLength  *ResponseLength `json:"response_length,omitempty"`
	ExtractEffort   string          `json:"extract_effort,omitempty"` // normal, high, auto
	Summary         *Summary        `json:"summary,omitempty"`
	MaxPriceDollars *float64        `json:"max_price_dollars,omitempty"`
}

func NewContentsRequest(urls ...string) ContentsRequest {
	if urls == nil {
		urls = []string{}
	}
	return ContentsRequest{URLs: urls}
}

func (r ContentsRequest) WithResponseLength(preset string) ContentsRequest {
	r.ResponseLength = PresetLength(preset)
	return r
}

func (r ContentsRequest) WithCustomResponseLength(chars int) ContentsRequest {
	r.ResponseLength = CustomLength(chars)
	return r
}

func (r ContentsRequest) WithExtractEffort(effort string) ContentsRequest {
	r.ExtractEffort = effort
	return r
}

func (r ContentsRequest) WithSummary(enabled bool) ContentsRequest {
	r.Summary = SummaryFlag(enabled)
	return r
}

func (r ContentsRequest) WithSummaryInstructions(text string) ContentsRequest {
	r.Summary = SummaryInstructions(text)
	return r
}

func (r ContentsRequest) WithSummarySchema(schema json.RawMessage) ContentsRequest {
	r.Summary = &Summary{schema: schema, kind: summarySchema}
	return r
}

func (r ContentsRequest) WithMaxPriceDollars(price float64) ContentsRequest {
	r.MaxPriceDollars = &price
	return r
}

type AnswerRequest struct {
	Query              string          `json:"query"`
	SystemInstructions string          `json:"system_instructions,omitempty"`
	StructuredOutput   json.RawMessage `json:"structured_output,omitempty"`
	SearchType         string          `json:"search_type,omitempty"`
	FastMode           *bool           `json:"fast_mode,omitempty"`
	DataMaxPrice       *float64        `json:"data_max_price,omitempty"`
	IncludedSources    []string        `json:"included_sources,omitempty"`
	ExcludedSources    []string        `json:"excluded_sources,omitempty"`
	StartDate          string          `json:"start_date,omitempty"`
	EndDate            string          `json:"end_date,omitempty"`
	CountryCode        string          `json:"country_code,omitempty"`
}

func NewAnswerRequest(query string) AnswerRequest {
	return AnswerRequest{Query: query}
}

func (r AnswerRequest) WithSystemInstructions(text string) AnswerRequest {
	r.SystemInstructions = text
	return r
}

// WithStructuredOutput asks the answer to follow the given JSON schema.
func (r AnswerRequest) WithStructuredOutput(schema json.RawMessage) AnswerRequest {
	r.StructuredOutput = schema
	return r
}

func (r AnswerRequest) WithSearchType(t string) AnswerRequest {
	r.SearchType = t
	return r
}

func (r AnswerRequest) WithFastMode(enabled bool) AnswerRequest {
	r.FastMode = &enabled
	return r
}

func (r AnswerRequest) WithDataMaxPrice(price float64) AnswerRequest {
	r.DataMaxPrice = &price
	return r
}

func (r AnswerRequest) WithIncludedSources(sources ...string) AnswerRequest {
	r.IncludedSources = sources
	return r
}

func (r AnswerRequest) WithExcludedSources(sources ...string) AnswerRequest {
	r.ExcludedSources = sources
	return r
}

func (r AnswerRequest) WithDateRange(start, end string) AnswerRequest {
	r.StartDate = start
	r.EndDate = end
	return r
}

func (r AnswerRequest) WithCountryCode(code string) AnswerRequest {
	r.CountryCode = code
	return r
}

type Mode string

const (
	ModeLite  Mode = "lite"
	ModeHeavy Mode = "heavy"
)

// TaskSearchConfig narrows the sources a research task may use.
type TaskSearchConfig struct {
	SearchType      string   `json:"search_type,omitempty"`
	IncludedSources []string `json:"included_sources,omitempty"`
	ExcludedSources []string `json:"excluded_sources,omitempty"`
	StartDate       string   `json:"start_date,omitempty"`
	EndDate         string   `json:"end_date,omitempty"`
	Category        string   `json:"category,omitempty"`
}

// TaskFile is an inline document attached to a research task.
type TaskFile struct {
	Data      string `json:"data"` // data URL or base64
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	Context   string `json:"context,omitempty"`
}

// TaskDeliverable asks the task to produce an extra artifact (csv, xlsx, pptx, docx, pdf).
type TaskDeliverable struct {
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Columns        []string `json:"columns,omitempty"`
	IncludeHeaders *bool    `json:"include_headers,omitempty"`
	SheetName      string   `json:"sheet_name,omitempty"`
	SlideCount     *int     `json:"slides,omitempty"`
	Template       string   `json:"template,omitempty"`
}

// TaskRequest - создание асинхронной research задачи.
type TaskRequest struct {
	Query             string            `json:"query"`
	Mode              Mode              `json:"mode,omitempty"`
	OutputFormats     *OutputFormats    `json:"output_formats,omitempty"`
	Strategy          string            `json:"strategy,omitempty"`
	Search            *TaskSearchConfig `json:"search,omitempty"`
	URLs              []string          `json:"urls,omitempty"`
	Files             []TaskFile        `json:"files,omitempty"`
	Deliverables      []TaskDeliverable `json:"deliverables,omitempty"`
	CodeExecution     *bool             `json:"code_execution,omitempty"`
	PreviousReports   []string          `json:"previous_reports,omitempty"`
	WebhookURL        string            `json:"webhook_url,omitempty"`
	BrandCollectionID string            `json:"brand_collection_id,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

func NewTaskRequest(query string) TaskRequest {
	return TaskRequest{Query: query}
}

func (r TaskRequest) WithMode(mode Mode) TaskRequest {
	r.Mode = mode
	return r
}

func (r TaskRequest) WithOutputFormats(names ...string) TaskRequest {
	r.OutputFormats = FormatNames(names...)
	return r
}

func (r TaskRequest) WithOutputSchema(schema json.RawMessage) TaskRequest {
	r.OutputFormats = &OutputFormats{schema: schema}
	return r
}

func (r TaskRequest) WithStrategy(strategy string) TaskRequest {
	r.Strategy = strategy
	return r
}

func (r TaskRequest) WithSearch(cfg TaskSearchConfig) TaskRequest {
	r.Search = &cfg
	return r
}

func (r TaskRequest) WithURLs(urls ...string) TaskRequest {
	r.URLs = urls
	return r
}

func (r TaskRequest) WithFiles(files ...TaskFile) TaskRequest {
	r.Files = files
	return r
}

func (r TaskRequest) WithDeliverables(d ...TaskDeliverable) TaskRequest {
	r.Deliverables = d
	return r
}

func (r TaskRequest) WithCodeExecution(enabled bool) TaskRequest {
	r.CodeExecution = &enabled
	return r
}

func (r TaskRequest) WithPreviousReports(ids ...string) TaskRequest {
	r.PreviousReports = ids
	return r
}

func (r TaskRequest) WithWebhook(url string) TaskRequest {
	r.WebhookURL = url
	return r
}

func (r TaskRequest) WithMetadata(md map[string]string) TaskRequest {
	r.Metadata = md
	return r
}
