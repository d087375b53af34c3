package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

const (
	// ChunkerVersion is the version identifier for the chunker implementation.
	// Update this when chunking logic changes significantly.
	ChunkerVersion = "v2.0"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// IndexStats summarizes one IndexAll run.
type IndexStats struct {
	// DocsProcessed is the number of documents that were read and chunked.
	DocsProcessed int `json:"docs_processed"`
	// DocsSkipped is the number of documents skipped because their hash was unchanged.
	DocsSkipped int `json:"docs_skipped"`
	// DocsFailed is the number of documents that returned an error.
	DocsFailed int `json:"docs_failed"`
	// DocsWith0Chunks is the number of processed documents that produced no chunks.
	DocsWith0Chunks int `json:"docs_with_0_chunks"`
	// ChunksEmbedded is the number of chunks embedded and stored.
	ChunksEmbedded int `json:"chunks_embedded"`
	// ChunkTokenStats contains statistics about estimated token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// statsCollector accumulates per-document results into IndexStats.
type statsCollector struct {
	stats       IndexStats
	tokenCounts []int
}

func newStatsCollector(indexVersion string) *statsCollector {
	return &statsCollector{
		stats: IndexStats{
			ChunkerVersion: ChunkerVersion,
			IndexVersion:   indexVersion,
		},
	}
}

func (c *statsCollector) add(result *IndexResult) {
	if result.Skipped {
		c.stats.DocsSkipped++
		return
	}
	c.stats.DocsProcessed++
	if len(result.Chunks) == 0 {
		c.stats.DocsWith0Chunks++
	}
	c.stats.ChunksEmbedded += len(result.Chunks)
	for _, chunk := range result.Chunks {
		c.tokenCounts = append(c.tokenCounts, estimateTokens(chunk.Text))
	}
}

func (c *statsCollector) fail() {
	c.stats.DocsFailed++
}

func (c *statsCollector) result() *IndexStats {
	stats := c.stats
	stats.ChunkTokenStats = computeTokenStats(c.tokenCounts)
	return &stats
}

// estimateTokens approximates a token count from the rune count, minimum 1.
func estimateTokens(text string) int {
	tokens := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	if tokens < 1 {
		return 1
	}
	return tokens
}

// indexVersion hashes the parameters that change the shape of the index.
func indexVersion(embeddingModel string, chunkWords, overlapWords int) string {
	input := fmt.Sprintf("%s|%s|chunkWords=%d|overlapWords=%d",
		ChunkerVersion, embeddingModel, chunkWords, overlapWords)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
