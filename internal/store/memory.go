package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// MemoryStore keeps vectors in process and queries them exactly.
// Suitable for tests, demos, and catalogs of a few thousand products.
type MemoryStore struct {
	path  string
	dims  int
	items []Item
	pos   map[string]int
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store. Dimensionality is fixed by the first upsert.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pos: make(map[string]int)}
}

// OpenMemoryStore creates a memory store backed by a file: contents are loaded from path now
// and written back on Close.
func OpenMemoryStore(path string) (*MemoryStore, error) {
	m := NewMemoryStore()
	m.path = path
	if err := m.Load(path); err != nil {
		return nil, err
	}
	return m, nil
}

// Type returns the store type identifier.
func (m *MemoryStore) Type() string {
	return string(TypeMemory)
}

// Upsert inserts items or replaces existing ones with the same ID in place.
func (m *MemoryStore) Upsert(ctx context.Context, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dims, err := checkDims(m.dims, items)
	if err != nil {
		return err
	}
	m.dims = dims
	for _, it := range items {
		cp := cloneItem(it)
		if i, ok := m.pos[it.ID]; ok {
			m.items[i] = cp
			continue
		}
		m.pos[it.ID] = len(m.items)
		m.items = append(m.items, cp)
	}
	return nil
}

// Query returns the k most similar items by cosine similarity.
func (m *MemoryStore) Query(ctx context.Context, vec []float32, k int) ([]*QueryMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return exactQuery(m.items, vec, k)
}

// Size returns the number of stored items.
func (m *MemoryStore) Size(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

// Close saves the contents when the store was opened from a file.
func (m *MemoryStore) Close() error {
	return m.Save(m.path)
}

// Save persists the store to path, creating the directory if needed. Format: dims (4), n (4),
// then per item: idLen (4), id, vector (dims*4), metaLen (4), metadata JSON.
func (m *MemoryStore) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return wrapFailure("create store dir", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return wrapFailure("create store file", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(m.dims)); err != nil {
		return wrapFailure("write dimensions", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.items))); err != nil {
		return wrapFailure("write count", err)
	}
	for _, it := range m.items {
		if err := writeChunk(f, []byte(it.ID)); err != nil {
			return wrapFailure("write id", err)
		}
		if _, err := f.Write(float32SliceToBytes(it.Vector)); err != nil {
			return wrapFailure("write vector", err)
		}
		meta, err := json.Marshal(it.Metadata)
		if err != nil {
			return wrapFailure("encode metadata", err)
		}
		if err := writeChunk(f, meta); err != nil {
			return wrapFailure("write metadata", err)
		}
	}
	return nil
}

// Load replaces the store contents with the file at path.
// A missing file is not an error and leaves the store unchanged.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapFailure("open store file", err)
	}
	defer f.Close()

	var dims, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dims); err != nil {
		return wrapFailure("read dimensions", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return wrapFailure("read count", err)
	}
	items := make([]Item, 0, n)
	pos := make(map[string]int, n)
	buf := make([]byte, int(dims)*4)
	for i := uint32(0); i < n; i++ {
		id, err := readChunk(f)
		if err != nil {
			return wrapFailure("read id", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return wrapFailure("read vector", err)
		}
		meta, err := readChunk(f)
		if err != nil {
			return wrapFailure("read metadata", err)
		}
		it := Item{ID: string(id), Vector: bytesToFloat32Slice(buf)}
		if err := json.Unmarshal(meta, &it.Metadata); err != nil {
			return wrapFailure("decode metadata", err)
		}
		pos[it.ID] = len(items)
		items = append(items, it)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dims = int(dims)
	m.items = items
	m.pos = pos
	return nil
}

func writeChunk(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readChunk(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("short read: %w", err)
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
