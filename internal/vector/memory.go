package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/banglarag/pkg/utils"
)

// MemoryIndex is an exact in-memory vector index using brute-force inner product search.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	positions  map[string]int // first position of each id
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
		positions:  make(map[string]int),
	}, nil
}

// Add appends vectors with the given IDs.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.append(id, vec)
	}
	return nil
}

func (m *MemoryIndex) append(id string, vec []float32) {
	if _, ok := m.positions[id]; !ok {
		m.positions[id] = len(m.ids)
	}
	m.ids = append(m.ids, id)
	m.vectors = append(m.vectors, vec)
}

// Search returns the top-k vectors by inner product (assumes normalized vectors = cosine similarity).
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(m.ids))
	for i, vec := range m.vectors {
		scores[i] = scored{pos: i, score: utils.Dot(query, vec)}
	}
	// stable so equal scores keep insertion order
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]*VectorResult, k)
	for i := 0; i < k; i++ {
		p := scores[i].pos
		vec := make([]float32, m.dimensions)
		copy(vec, m.vectors[p])
		result[i] = &VectorResult{ID: m.ids[p], Score: scores[i].score, Vector: vec}
	}
	return result, nil
}

// Get returns a copy of the first vector stored under id.
func (m *MemoryIndex) Get(id string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[id]
	if !ok {
		return nil, false
	}
	vec := make([]float32, m.dimensions)
	copy(vec, m.vectors[p])
	return vec, true
}

// IDs returns the ids in insertion order.
func (m *MemoryIndex) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.ids...)
}

// Merge appends all vectors of other, keeping other's order.
func (m *MemoryIndex) Merge(other VectorIndex) error {
	if other == nil {
		return nil
	}
	if other.Dimensions() != m.dimensions {
		return fmt.Errorf("cannot merge index of dimension %d into %d", other.Dimensions(), m.dimensions)
	}
	if o, ok := other.(*MemoryIndex); ok {
		if o == m {
			return errors.New("cannot merge an index into itself")
		}
		o.mu.RLock()
		defer o.mu.RUnlock()
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, id := range o.ids {
			vec := make([]float32, m.dimensions)
			copy(vec, o.vectors[i])
			m.append(id, vec)
		}
		return nil
	}
	ids := other.IDs()
	vecs := make([][]float32, 0, len(ids))
	for _, id := range ids {
		v, ok := other.Get(id)
		if !ok {
			return fmt.Errorf("vector %s vanished during merge", id)
		}
		vecs = append(vecs, v)
	}
	return m.Add(context.Background(), ids, vecs)
}

// File layout: magic, version, dimension, count, then per vector the id length, the
// id bytes and dimension little-endian float32s.
var fileMagic = [4]byte{'B', 'R', 'V', 'X'}

const fileVersion uint32 = 1

// ErrBadIndexFile is returned when a file does not hold a saved index.
var ErrBadIndexFile = errors.New("not a vector index file")

// Save writes the index to path through a temporary file in the same directory.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return errors.New("empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := m.encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (m *MemoryIndex) encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	header := []any{fileMagic, fileVersion, uint32(m.dimensions), uint32(len(m.ids))}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, id := range m.ids {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := bw.WriteString(id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := bw.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return nil
}

// LoadMemoryIndex reads an index written by Save. The dimension comes from the file.
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	r := bufio.NewReader(file)

	var (
		magic   [4]byte
		version uint32
		dim, n  uint32
	)
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil || magic != fileMagic {
		return nil, fmt.Errorf("%w: %s", ErrBadIndexFile, path)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadIndexFile, version)
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	m, err := NewMemoryIndex(int(dim))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadIndexFile, err)
	}
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("read id len: %w", err)
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		m.append(string(id), bytesToFloat32Slice(buf))
	}
	return m, nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, 4*len(s))
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
