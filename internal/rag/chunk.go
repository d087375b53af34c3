package rag

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"docqa-ai/internal/vectorstore"
)

// Metadata field names shared with the indexer.
const (
	MetaText           = "text"
	MetaSource         = "source"
	MetaSourcePath     = "source_path"
	MetaPage           = "page"
	MetaChunkIndex     = "chunk_index"
	MetaPageChunkIndex = "page_chunk_index"
	MetaSection        = "section"
	MetaNamespace      = "namespace"
)

// chunkFromResult converts a raw search hit into a Chunk, applying defaults
// for absent fields.
func chunkFromResult(res vectorstore.SearchResult) Chunk {
	meta := res.Meta
	if meta == nil {
		meta = map[string]any{}
	}

	c := Chunk{
		Text:           stringify(meta[MetaText]),
		Source:         stringify(meta[MetaSource]),
		SourcePath:     stringify(meta[MetaSourcePath]),
		Page:           intFromAny(meta[MetaPage]),
		ChunkIndex:     intFromAny(meta[MetaChunkIndex]),
		PageChunkIndex: intFromAny(meta[MetaPageChunkIndex]),
		Section:        stringify(meta[MetaSection]),
		Score:          res.Score,
		Meta:           meta,
	}
	if c.SourcePath == "" {
		c.SourcePath = c.Source
	}
	if ns, ok := meta[MetaNamespace]; ok && ns != nil {
		c.Namespace = stringify(ns)
		c.HasNamespace = true
	}
	return c
}

// intFromAny reads an integer from decoded metadata. JSON yields float64,
// Qdrant yields int64.
func intFromAny(v any) *int {
	switch n := v.(type) {
	case int:
		return intPtr(n)
	case int32:
		return intPtr(int(n))
	case int64:
		return intPtr(int(n))
	case float64:
		if n != math.Trunc(n) {
			return nil
		}
		return intPtr(int(n))
	case float32:
		return intFromAny(float64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil
		}
		return intPtr(int(i))
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		return intPtr(i)
	default:
		return nil
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// field returns a chunk field by metadata name as a string.
func (c Chunk) field(name string) string {
	switch name {
	case MetaText:
		return c.Text
	case MetaSource:
		return c.Source
	case MetaSourcePath:
		return c.SourcePath
	case MetaSection:
		return c.Section
	case MetaNamespace:
		return c.Namespace
	case MetaPage:
		return optString(c.Page)
	case MetaChunkIndex:
		return optString(c.ChunkIndex)
	case MetaPageChunkIndex:
		return optString(c.PageChunkIndex)
	default:
		return stringify(c.Meta[name])
	}
}

func optString(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func valueOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
