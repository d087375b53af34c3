package rag

// Confidence is a coarse answer-quality level.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Chunk is one retrieved passage with its metadata and relevance score.
// Optional integers are nil when the source has no such notion (e.g. plain
// text files have no pages).
type Chunk struct {
	Text           string  `json:"text"`
	Source         string  `json:"source"`
	SourcePath     string  `json:"source_path"`
	Page           *int    `json:"page"`
	ChunkIndex     *int    `json:"chunk_index"`
	PageChunkIndex *int    `json:"page_chunk_index"`
	Section        string  `json:"section,omitempty"`
	Namespace      string  `json:"namespace,omitempty"`
	HasNamespace   bool    `json:"-"`
	Score          float64 `json:"relevance_score"`

	// Meta keeps the raw stored metadata so filters can address any field.
	Meta map[string]any `json:"-"`
}

// Citation is a user-facing reference to a chunk.
type Citation struct {
	Text           string  `json:"text"`
	Source         string  `json:"source"`
	Page           *int    `json:"page"`
	Section        string  `json:"section,omitempty"`
	ChunkIndex     *int    `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Answer is the composed result for one question.
type Answer struct {
	QueryID    string     `json:"query_id"`
	Answer     string     `json:"answer"`
	Sources    []Citation `json:"sources"`
	Confidence Confidence `json:"confidence"`
}

// AskRequest represents a question against the indexed documents.
type AskRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// TopK is the number of chunks to retrieve. Zero selects the default.
	TopK int `json:"top_k,omitempty"`
	// Filters restricts retrieval by metadata. Values are strings or lists of strings.
	Filters map[string]any `json:"filters,omitempty"`
	// Namespace restricts retrieval to one namespace when chunks carry one.
	Namespace string `json:"namespace,omitempty"`
}

// AskResponse is an Answer plus request-level details.
type AskResponse struct {
	Answer
	// QueryProcessed is the normalized question used for retrieval.
	QueryProcessed string `json:"query_processed"`
	// ResponseTime is the wall time in seconds, rounded to milliseconds.
	ResponseTime float64 `json:"response_time"`
	// ChunksRetrieved is the number of chunks retrieval returned.
	ChunksRetrieved int `json:"chunks_retrieved"`
}

func intPtr(v int) *int {
	return &v
}
