package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_metric_store.go -package=mocks docqa-ai/internal/storage MetricStore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
)

const (
	// MetricRetention is the number of metric rows kept after each Record.
	MetricRetention = 1000
	recentLimit     = 10
)

// MetricStore defines the interface for query metric storage operations.
type MetricStore interface {
	// Record stores one query metric and prunes rows beyond MetricRetention.
	Record(ctx context.Context, m MetricRecord) error
	// Summary aggregates the retained rows. A zero TotalQueries means no data.
	Summary(ctx context.Context) (*MetricSummary, error)
}

// MetricRepo provides methods for query metric operations.
// It implements the MetricStore interface.
type MetricRepo struct {
	db        *sql.DB
	retention int
}

// NewMetricRepo creates a new MetricRepo that keeps the newest MetricRetention rows.
func NewMetricRepo(db *sql.DB) *MetricRepo {
	return &MetricRepo{db: db, retention: MetricRetention}
}

// Record inserts a metric row and prunes the oldest rows beyond the retention limit.
func (r *MetricRepo) Record(ctx context.Context, m MetricRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO query_metrics (query_id, query, response_time, confidence, chunks_retrieved) VALUES (?, ?, ?, ?, ?)",
		m.QueryID, m.Query, m.ResponseTime, m.Confidence, m.ChunksRetrieved,
	)
	if err != nil {
		return fmt.Errorf("failed to insert metric: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"DELETE FROM query_metrics WHERE id NOT IN (SELECT id FROM query_metrics ORDER BY id DESC LIMIT ?)",
		r.retention,
	)
	if err != nil {
		return fmt.Errorf("failed to prune metrics: %w", err)
	}
	return nil
}

// Summary returns totals, mean response time, confidence distribution and
// the most recent queries, newest first.
func (r *MetricRepo) Summary(ctx context.Context) (*MetricSummary, error) {
	summary := &MetricSummary{
		ConfidenceDistribution: map[string]int{},
		RecentQueries:          []RecentQuery{},
	}

	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), AVG(response_time) FROM query_metrics",
	).Scan(&summary.TotalQueries, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric totals: %w", err)
	}
	if summary.TotalQueries == 0 {
		return summary, nil
	}
	summary.AverageResponseTime = math.Round(avg.Float64*1000) / 1000

	rows, err := r.db.QueryContext(ctx,
		"SELECT confidence, COUNT(*) FROM query_metrics GROUP BY confidence",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query confidence distribution: %w", err)
	}
	for rows.Next() {
		var confidence string
		var n int
		if err := rows.Scan(&confidence, &n); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan confidence distribution: %w", err)
		}
		summary.ConfidenceDistribution[confidence] = n
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	_ = rows.Close()

	recent, err := r.recent(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	summary.RecentQueries = recent

	return summary, nil
}

func (r *MetricRepo) recent(ctx context.Context, limit int) ([]RecentQuery, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT query_id, query, response_time, confidence, chunks_retrieved, created_at
		FROM query_metrics ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent metrics: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	recent := []RecentQuery{}
	for rows.Next() {
		var q RecentQuery
		var createdAt string
		if err := rows.Scan(&q.QueryID, &q.Query, &q.ResponseTime, &q.Confidence, &q.ChunksRetrieved, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if q.Timestamp, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}
		recent = append(recent, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return recent, nil
}
