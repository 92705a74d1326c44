//go:build !faiss || !cgo
// +build !faiss !cgo

package store

import "context"

// FAISSStore is a stub used when the binary is built without -tags=faiss.
type FAISSStore struct{}

var errNoFAISS = failure("FAISS not available: build with -tags=faiss and install the FAISS library")

// NewFAISSStore always fails without FAISS support.
func NewFAISSStore(dims int) (*FAISSStore, error) {
	return nil, errNoFAISS
}

func (f *FAISSStore) Type() string { return string(TypeFAISS) }

func (f *FAISSStore) Upsert(ctx context.Context, items []Item) error { return errNoFAISS }

func (f *FAISSStore) Query(ctx context.Context, vec []float32, k int) ([]*QueryMatch, error) {
	return nil, errNoFAISS
}

func (f *FAISSStore) Size(ctx context.Context) (int, error) { return 0, nil }

func (f *FAISSStore) Save(path string) error { return errNoFAISS }

func (f *FAISSStore) Load(path string) error { return errNoFAISS }

func (f *FAISSStore) Close() error { return nil }
