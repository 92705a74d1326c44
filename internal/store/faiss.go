//go:build faiss && cgo
// +build faiss,cgo

package store

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"

	"github.com/hyperjump/vibematch/internal/vector"
	"github.com/hyperjump/vibematch/pkg/utils"
)

// FAISSStore indexes L2-normalised vectors in a FAISS IndexFlatIP, so inner product equals
// cosine similarity. Re-upserting an id tombstones its old row; the row stays in FAISS.
type FAISSStore struct {
	index     *C.FaissIndex
	dims      int
	labels    map[string]int64 // id -> live FAISS label
	entries   map[int64]faissEntry
	nextLabel int64
	mu        sync.RWMutex
}

type faissEntry struct {
	ID       string
	Metadata map[string]string
}

// NewFAISSStore creates a FAISS-backed store of the given dimensionality.
func NewFAISSStore(dims int) (*FAISSStore, error) {
	if dims <= 0 {
		return nil, failure("faiss dimensions must be positive")
	}
	var flat *C.FaissIndexFlatIP
	if ret := C.faiss_IndexFlatIP_new_with(&flat, C.idx_t(dims)); ret != 0 {
		return nil, failure("create FAISS index: %s", faissLastError())
	}
	return &FAISSStore{
		index:   (*C.FaissIndex)(unsafe.Pointer(flat)),
		dims:    dims,
		labels:  make(map[string]int64),
		entries: make(map[int64]faissEntry),
	}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Type returns the store type identifier.
func (f *FAISSStore) Type() string {
	return string(TypeFAISS)
}

// Upsert adds items to the index.
func (f *FAISSStore) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	if _, err := checkDims(f.dims, items); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	flat := make([]float32, len(items)*f.dims)
	for i, it := range items {
		row := flat[i*f.dims : (i+1)*f.dims]
		copy(row, it.Vector)
		utils.NormalizeL2(row)
	}
	if ret := C.faiss_Index_add(f.index, C.idx_t(len(items)), (*C.float)(unsafe.Pointer(&flat[0]))); ret != 0 {
		return failure("add vectors: %s", faissLastError())
	}
	for _, it := range items {
		if old, ok := f.labels[it.ID]; ok {
			delete(f.entries, old)
		}
		f.labels[it.ID] = f.nextLabel
		f.entries[f.nextLabel] = faissEntry{ID: it.ID, Metadata: cloneItem(it).Metadata}
		f.nextLabel++
	}
	return nil
}

// Query returns up to k live items by cosine similarity.
func (f *FAISSStore) Query(ctx context.Context, vec []float32, k int) ([]*QueryMatch, error) {
	if len(vec) != f.dims {
		return nil, fmt.Errorf("%w: %w: query has %d dimensions, index has %d",
			ErrStoreFailure, vector.ErrDimensionMismatch, len(vec), f.dims)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	live := len(f.labels)
	if k > live {
		k = live
	}
	if k <= 0 {
		return []*QueryMatch{}, nil
	}
	// Tombstoned rows can occupy top slots, so over-fetch up to the full index.
	fetch := int(C.faiss_Index_ntotal(f.index))

	q := make([]float32, len(vec))
	copy(q, vec)
	utils.NormalizeL2(q)

	distances := make([]float32, fetch)
	labels := make([]int64, fetch)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&q[0])),
		C.idx_t(fetch),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, failure("search: %s", faissLastError())
	}

	type hit struct {
		label int64
		score float64
	}
	hits := make([]hit, 0, live)
	for i, label := range labels {
		if label < 0 {
			continue
		}
		if _, ok := f.entries[label]; ok {
			hits = append(hits, hit{label: label, score: float64(distances[i])})
		}
	}
	// Equal scores fall back to insertion order.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].label < hits[j].label
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]*QueryMatch, len(hits))
	for i, h := range hits {
		e := f.entries[h.label]
		out[i] = &QueryMatch{ID: e.ID, Score: h.score, Metadata: e.Metadata}
	}
	return out, nil
}

// Size returns the number of live ids.
func (f *FAISSStore) Size(ctx context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.labels), nil
}

type faissMapping struct {
	Labels    map[string]int64
	Entries   map[int64]faissEntry
	NextLabel int64
}

// Save writes the FAISS index to path+".faiss" and the id mapping to path+".idmap".
func (f *FAISSStore) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return wrapFailure("create index dir", err)
	}

	cPath := C.CString(path + ".faiss")
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return failure("save FAISS index: %s", faissLastError())
	}

	mapFile, err := os.Create(path + ".idmap")
	if err != nil {
		return wrapFailure("create id map file", err)
	}
	defer mapFile.Close()
	mapping := faissMapping{Labels: f.labels, Entries: f.entries, NextLabel: f.nextLabel}
	return wrapFailure("encode id map", gob.NewEncoder(mapFile).Encode(mapping))
}

// Load replaces the index with the files written by Save. Missing files are not an error.
func (f *FAISSStore) Load(path string) error {
	if path == "" {
		return nil
	}
	faissPath := path + ".faiss"
	if _, err := os.Stat(faissPath); os.IsNotExist(err) {
		return nil
	}

	mapFile, err := os.Open(path + ".idmap")
	if err != nil {
		return wrapFailure("open id map file", err)
	}
	defer mapFile.Close()
	var mapping faissMapping
	if err := gob.NewDecoder(mapFile).Decode(&mapping); err != nil {
		return wrapFailure("decode id map", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cPath := C.CString(faissPath)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return failure("load FAISS index: %s", faissLastError())
	}
	if d := int(C.faiss_Index_d(loaded)); d != f.dims {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("%w: %w: file has %d dimensions, store has %d",
			ErrStoreFailure, vector.ErrDimensionMismatch, d, f.dims)
	}
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	f.labels = mapping.Labels
	f.entries = mapping.Entries
	f.nextLabel = mapping.NextLabel
	return nil
}

// Close frees the FAISS index.
func (f *FAISSStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}
