package storage

import "time"

// DocumentRecord tracks one indexed file.
type DocumentRecord struct {
	ID         string // UUID
	Path       string // Absolute or DOCUMENTS_DIR-relative path, unique
	Source     string // File name stored in vector metadata
	Hash       string // SHA256 hex string of file content
	ChunkCount int
	IndexedAt  time.Time
}

// MetricRecord is one answered query.
type MetricRecord struct {
	QueryID         string
	Query           string
	ResponseTime    float64 // seconds
	Confidence      string
	ChunksRetrieved int
	CreatedAt       time.Time
}

// MetricSummary aggregates the retained metric rows.
type MetricSummary struct {
	TotalQueries           int            `json:"total_queries"`
	AverageResponseTime    float64        `json:"average_response_time"`
	ConfidenceDistribution map[string]int `json:"confidence_distribution"`
	RecentQueries          []RecentQuery  `json:"recent_queries"`
}

// RecentQuery is the public view of a MetricRecord.
type RecentQuery struct {
	Timestamp       time.Time `json:"timestamp"`
	Query           string    `json:"query"`
	ResponseTime    float64   `json:"response_time"`
	Confidence      string    `json:"confidence"`
	ChunksRetrieved int       `json:"chunks_retrieved"`
	QueryID         string    `json:"query_id"`
}
