package valyu

import (
	"encoding/json"
)

// Envelope is the part every response body shares.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e *Envelope) envelope() *Envelope { return e }

type enveloped interface {
	envelope() *Envelope
}

type SearchResponse struct {
	Envelope
	TxID                  string           `json:"tx_id,omitempty"`
	Query                 string           `json:"query,omitempty"`
	Results               []SearchResult   `json:"results,omitempty"`
	ResultsBySource       *ResultsBySource `json:"results_by_source,omitempty"`
	TotalDeductionPCM     float64          `json:"total_deduction_pcm,omitempty"`
	TotalDeductionDollars float64          `json:"total_deduction_dollars,omitempty"`
	TotalCharacters       int              `json:"total_characters,omitempty"`
}

type SearchResult struct {
	ID              string          `json:"id,omitempty"`
	Title           string          `json:"title,omitempty"`
	URL             string          `json:"url,omitempty"`
	Content         string          `json:"content,omitempty"`
	Description     string          `json:"description,omitempty"`
	Source          string          `json:"source,omitempty"`
	SourceType      string          `json:"source_type,omitempty"`
	DataType        string          `json:"data_type,omitempty"`
	Length          int             `json:"length,omitempty"`
	Price           float64         `json:"price,omitempty"`
	ImageURL        json.RawMessage `json:"image_url,omitempty"` // строка или map
	PublicationDate string          `json:"publication_date,omitempty"`
	DOI             string          `json:"doi,omitempty"`
	Citation        string          `json:"citation,omitempty"`
	CitationCount   int             `json:"citation_count,omitempty"`
	Authors         []string        `json:"authors,omitempty"`
	RelevanceScore  float64         `json:"relevance_score,omitempty"`
}

type ResultsBySource struct {
	Web         int `json:"web"`
	Proprietary int `json:"proprietary"`
}

type ContentsResponse struct {
	Envelope
	TxID             string          `json:"tx_id,omitempty"`
	Results          []ContentResult `json:"results,omitempty"`
	URLsRequested    int             `json:"urls_requested,omitempty"`
	URLsProcessed    int             `json:"urls_processed,omitempty"`
	URLsFailed       int             `json:"urls_failed,omitempty"`
	TotalCostDollars float64         `json:"total_cost_dollars,omitempty"`
	TotalCharacters  int             `json:"total_characters,omitempty"`
}

type ContentResult struct {
	Title           string          `json:"title,omitempty"`
	URL             string          `json:"url,omitempty"`
	Content         json.RawMessage `json:"content,omitempty"` // строка или объект по summary схеме
	Description     string          `json:"description,omitempty"`
	PublicationDate string          `json:"publication_date,omitempty"`
	Images          []string        `json:"images,omitempty"`
	CostDollars     float64         `json:"cost_dollars,omitempty"`
	Characters      int             `json:"characters,omitempty"`
}

// Text returns Content as a string when it is one, and the raw JSON otherwise.
func (r ContentResult) Text() string {
	return rawText(r.Content)
}

type AnswerResponse struct {
	Envelope
	AITxID         string                `json:"ai_tx_id,omitempty"`
	OriginalQuery  string                `json:"original_query,omitempty"`
	Contents       json.RawMessage       `json:"contents,omitempty"`
	DataType       string                `json:"data_type,omitempty"` // unstructured | structured
	SearchResults  []AnswerSearchResult  `json:"search_results,omitempty"`
	SearchMetadata *AnswerSearchMetadata `json:"search_metadata,omitempty"`
	AIUsage        *AIUsage              `json:"ai_usage,omitempty"`
	Cost           *AnswerCost           `json:"cost,omitempty"`
}

func (r AnswerResponse) Text() string {
	return rawText(r.Contents)
}

type AnswerSearchResult struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Date    string `json:"date,omitempty"`
	Length  int    `json:"length,omitempty"`
}

type AnswerSearchMetadata struct {
	SearchTxID      string `json:"search_tx_id,omitempty"`
	ResultCount     int    `json:"result_count,omitempty"`
	TotalCharacters int    `json:"total_characters,omitempty"`
}

type AIUsage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

type AnswerCost struct {
	TotalDollars  float64 `json:"total_dollars,omitempty"`
	SearchDollars float64 `json:"search_dollars,omitempty"`
	AIDollars     float64 `json:"ai_dollars,omitempty"`
}

type TaskStatus string

const (
	StatusQueued    TaskStatus = "queued"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Task - снимок состояния research задачи. Create и status возвращают одну форму,
// поля вывода заполняются только в running/completed.
type Task struct {
	Envelope
	ID            string          `json:"deepresearch_id,omitempty"`
	Status        TaskStatus      `json:"status,omitempty"`
	Query         string          `json:"query,omitempty"`
	Mode          Mode            `json:"mode,omitempty"`
	Model         string          `json:"model,omitempty"`
	OutputFormats *OutputFormats  `json:"output_formats,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	CompletedAt   string          `json:"completed_at,omitempty"`
	Progress      *TaskProgress   `json:"progress,omitempty"`
	Output        json.RawMessage `json:"output,omitempty"`
	OutputType    string          `json:"output_type,omitempty"`
	PDFURL        string          `json:"pdf_url,omitempty"`
	Sources       []TaskSource    `json:"sources,omitempty"`
	Usage         *TaskUsage      `json:"usage,omitempty"`
	Images        []TaskImage     `json:"images,omitempty"`
	Deliverables  []TaskArtifact  `json:"deliverables,omitempty"`
}

// Report returns the markdown output, or the raw JSON for structured output.
func (t Task) Report() string {
	return rawText(t.Output)
}

type TaskProgress struct {
	CurrentStep int `json:"current_step"`
	TotalSteps  int `json:"total_steps"`
}

type TaskSource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet,omitempty"`
	Source      string `json:"source,omitempty"`
	WordCount   int    `json:"word_count,omitempty"`
	DOI         string `json:"doi,omitempty"`
	Category    string `json:"category,omitempty"`
	SourceType  string `json:"source_type,omitempty"`
	PublishedAt string `json:"publication_date,omitempty"`
}

type TaskUsage struct {
	SearchCost   float64 `json:"search_cost"`
	ContentsCost float64 `json:"contents_cost"`
	AICost       float64 `json:"ai_cost"`
	ComputeCost  float64 `json:"compute_cost"`
	TotalCost    float64 `json:"total_cost"`
}

type TaskImage struct {
	ImageID   string `json:"image_id,omitempty"`
	ImageType string `json:"image_type"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
	ChartType string `json:"chart_type,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type TaskArtifact struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Status      string `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
	Description string `json:"description,omitempty"`
}

type TaskList struct {
	Envelope
	Data []TaskSummary `json:"data,omitempty"`
}

type TaskSummary struct {
	ID        string     `json:"deepresearch_id"`
	Query     string     `json:"query"`
	Status    TaskStatus `json:"status"`
	Mode      Mode       `json:"mode,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
}

// OperationResponse is returned by update, cancel and delete.
type OperationResponse struct {
	Envelope
	Message string `json:"message,omitempty"`
	ID      string `json:"deepresearch_id,omitempty"`
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
