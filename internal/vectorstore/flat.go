package vectorstore

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"docqa-ai/internal/contextutil"
)

const (
	// IndexFile holds the raw vectors.
	IndexFile = "faiss_index.bin"
	// MetaFile holds the per-vector metadata, positionally aligned with IndexFile.
	MetaFile = "metadata.json"

	indexMagic = "DQFI"

	// fallbackScore is assigned to the first stored chunk when a search over a
	// non-empty index produces nothing.
	fallbackScore = 0.1
)

var errFilesOutOfSync = errors.New("vector store files out of sync")

// FlatStore is a brute-force L2 index persisted as two files in a directory.
// Every Search checks the files' modification stamps and reloads both when
// either changed, so writes from another process become visible on the next
// query. Readers always see one consistent snapshot.
type FlatStore struct {
	dir string
	dim int

	mu   sync.Mutex // serializes reloads and writes
	snap atomic.Pointer[flatSnapshot]
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

func (f fileStamp) same(other fileStamp) bool {
	return f.size == other.size && f.modTime.Equal(other.modTime)
}

type flatRecord struct {
	ID   string         `json:"id"`
	Meta map[string]any `json:"meta"`
}

type flatSnapshot struct {
	vecs      [][]float32
	records   []flatRecord
	indexStat fileStamp
	metaStat  fileStamp
}

// NewFlatStore opens (or prepares) a flat index in dir for vectors of size dim.
func NewFlatStore(dir string, dim int) (*FlatStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be greater than 0")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	s := &FlatStore{dir: dir, dim: dim}
	s.snap.Store(&flatSnapshot{})
	if _, err := s.snapshot(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FlatStore) indexPath() string { return filepath.Join(s.dir, IndexFile) }
func (s *FlatStore) metaPath() string  { return filepath.Join(s.dir, MetaFile) }

// snapshot returns the current snapshot, reloading it from disk when either
// file changed since it was loaded.
func (s *FlatStore) snapshot() (*flatSnapshot, error) {
	cur := s.snap.Load()
	idxStat, metaStat, ok := s.stampFiles()
	if !ok || (idxStat.same(cur.indexStat) && metaStat.same(cur.metaStat)) {
		return cur, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur = s.snap.Load()
	idxStat, metaStat, ok = s.stampFiles()
	if !ok || (idxStat.same(cur.indexStat) && metaStat.same(cur.metaStat)) {
		return cur, nil
	}

	next, err := s.load(idxStat, metaStat)
	if errors.Is(err, errFilesOutOfSync) {
		// A writer is between the two renames; keep serving the previous pair.
		return cur, nil
	}
	if err != nil {
		return nil, err
	}
	s.snap.Store(next)
	return next, nil
}

// stampFiles reports the modification stamps of both files; ok is false
// unless both exist.
func (s *FlatStore) stampFiles() (fileStamp, fileStamp, bool) {
	idx, err := os.Stat(s.indexPath())
	if err != nil {
		return fileStamp{}, fileStamp{}, false
	}
	meta, err := os.Stat(s.metaPath())
	if err != nil {
		return fileStamp{}, fileStamp{}, false
	}
	return fileStamp{idx.ModTime(), idx.Size()}, fileStamp{meta.ModTime(), meta.Size()}, true
}

func (s *FlatStore) load(idxStat, metaStat fileStamp) (*flatSnapshot, error) {
	vecs, err := readVectors(s.indexPath(), s.dim)
	if err != nil {
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}

	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load vector metadata: %w", err)
	}
	var records []flatRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode vector metadata: %w", err)
	}
	if len(records) != len(vecs) {
		return nil, fmt.Errorf("%w: %d vectors, %d metadata records", errFilesOutOfSync, len(vecs), len(records))
	}

	return &flatSnapshot{
		vecs:      vecs,
		records:   records,
		indexStat: idxStat,
		metaStat:  metaStat,
	}, nil
}

// Add appends points and persists both files.
func (s *FlatStore) Add(ctx context.Context, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}
	for i, p := range points {
		if len(p.Vec) != s.dim {
			return fmt.Errorf("point %d has dimension %d, expected %d", i, len(p.Vec), s.dim)
		}
	}

	if _, err := s.snapshot(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	vecs := make([][]float32, 0, len(cur.vecs)+len(points))
	vecs = append(vecs, cur.vecs...)
	records := make([]flatRecord, 0, len(cur.records)+len(points))
	records = append(records, cur.records...)
	for _, p := range points {
		vecs = append(vecs, p.Vec)
		records = append(records, flatRecord{ID: p.ID, Meta: p.Meta})
	}

	if err := s.persist(vecs, records); err != nil {
		logger.ErrorContext(ctx, "failed to persist vector index", "dir", s.dir, "error", err)
		return err
	}

	logger.InfoContext(ctx, "added points", "count", len(points), "total", len(vecs))
	return nil
}

// DeleteBySource removes all points whose "source" metadata equals source.
func (s *FlatStore) DeleteBySource(ctx context.Context, source string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := s.snapshot(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	vecs := make([][]float32, 0, len(cur.vecs))
	records := make([]flatRecord, 0, len(cur.records))
	for i, rec := range cur.records {
		if src, _ := rec.Meta["source"].(string); src == source {
			continue
		}
		vecs = append(vecs, cur.vecs[i])
		records = append(records, rec)
	}

	removed := len(cur.records) - len(records)
	if removed == 0 {
		return nil
	}
	if err := s.persist(vecs, records); err != nil {
		return err
	}

	logger.InfoContext(ctx, "deleted points", "source", source, "count", removed)
	return nil
}

// persist writes both files and publishes the new snapshot. Caller holds s.mu.
func (s *FlatStore) persist(vecs [][]float32, records []flatRecord) error {
	if err := writeFileAtomic(s.indexPath(), func(w io.Writer) error {
		return writeVectors(w, s.dim, vecs)
	}); err != nil {
		return fmt.Errorf("failed to write vector index: %w", err)
	}
	if err := writeFileAtomic(s.metaPath(), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(records)
	}); err != nil {
		return fmt.Errorf("failed to write vector metadata: %w", err)
	}

	idxStat, metaStat, _ := s.stampFiles()
	s.snap.Store(&flatSnapshot{
		vecs:      vecs,
		records:   records,
		indexStat: idxStat,
		metaStat:  metaStat,
	})
	return nil
}

// Search returns the k nearest points by squared L2 distance.
func (s *FlatStore) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	snap, err := s.snapshot()
	if err != nil {
		logger.ErrorContext(ctx, "failed to refresh vector index", "error", err)
		return nil, err
	}
	if len(snap.vecs) == 0 {
		return []SearchResult{}, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("query has dimension %d, expected %d", len(query), s.dim)
	}

	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, len(snap.vecs))
	for i, v := range snap.vecs {
		hits[i] = hit{pos: i, dist: squaredL2(query, v)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]SearchResult, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		rec := snap.records[h.pos]
		key := dedupKey(rec.Meta)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, SearchResult{
			PointID: rec.ID,
			Score:   distanceToScore(h.dist),
			Meta:    copyMeta(rec.Meta),
		})
	}

	if len(results) == 0 && len(snap.records) > 0 {
		first := snap.records[0]
		results = append(results, SearchResult{PointID: first.ID, Score: fallbackScore, Meta: copyMeta(first.Meta)})
	}

	logger.DebugContext(ctx, "search completed", "k", k, "results", len(results), "indexed", len(snap.vecs))
	return results, nil
}

// Count returns the number of indexed points.
func (s *FlatStore) Count(ctx context.Context) (int, error) {
	snap, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	return len(snap.vecs), nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// dedupKey identifies a chunk by source, page and chunk index.
func dedupKey(meta map[string]any) string {
	return fmt.Sprintf("%v_%v_%v", meta["source"], meta["page"], meta["chunk_index"])
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func writeVectors(w io.Writer, dim int, vecs [][]float32) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(indexMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(dim)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(vecs))); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, v := range vecs {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func readVectors(path string, dim int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	r := bufio.NewReader(f)
	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(magic) != indexMagic {
		return nil, errors.New("not a vector index file")
	}

	var fileDim uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &fileDim); err != nil {
		return nil, fmt.Errorf("failed to read dimension: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read count: %w", err)
	}
	if int(fileDim) != dim {
		return nil, fmt.Errorf("index dimension %d does not match configured %d", fileDim, dim)
	}

	vecs := make([][]float32, count)
	buf := make([]byte, 4*dim)
	for i := range vecs {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		vecs[i] = v
	}
	return vecs, nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it over path.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
