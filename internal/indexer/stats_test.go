package indexer

import "testing"

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   ChunkTokenStats
	}{
		{name: "empty", counts: nil, want: ChunkTokenStats{}},
		{name: "single", counts: []int{7}, want: ChunkTokenStats{Min: 7, Max: 7, Mean: 7, P95: 7}},
		{
			name:   "unsorted input",
			counts: []int{30, 10, 20},
			want:   ChunkTokenStats{Min: 10, Max: 30, Mean: 20, P95: 30},
		},
		{
			name:   "mean is rounded",
			counts: []int{1, 2, 2},
			want:   ChunkTokenStats{Min: 1, Max: 2, Mean: 1.67, P95: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeTokenStats(tt.counts); got != tt.want {
				t.Errorf("computeTokenStats(%v) = %+v, want %+v", tt.counts, got, tt.want)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 1},
		{text: "ab", want: 1},
		{text: "abcdefgh", want: 2},
		{text: "ñññññññññññññññ", want: 4},
	}

	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestIndexVersion(t *testing.T) {
	a := indexVersion("model-a", 150, 30)
	if len(a) != 16 {
		t.Errorf("indexVersion() length = %d, want 16", len(a))
	}
	if a == indexVersion("model-b", 150, 30) {
		t.Error("indexVersion() should change with the embedding model")
	}
	if a != indexVersion("model-a", 150, 30) {
		t.Error("indexVersion() should be deterministic")
	}
}

func TestStatsCollector(t *testing.T) {
	c := newStatsCollector("v")
	c.add(&IndexResult{Skipped: true})
	c.add(&IndexResult{})
	c.add(&IndexResult{Chunks: []Chunk{{Text: "abcd"}, {Text: "abcdefgh"}}})
	c.fail()

	stats := c.result()
	if stats.DocsSkipped != 1 || stats.DocsProcessed != 2 || stats.DocsWith0Chunks != 1 ||
		stats.ChunksEmbedded != 2 || stats.DocsFailed != 1 {
		t.Errorf("result() = %+v", stats)
	}
	if stats.ChunkTokenStats.Min != 1 || stats.ChunkTokenStats.Max != 2 {
		t.Errorf("token stats = %+v", stats.ChunkTokenStats)
	}
}
