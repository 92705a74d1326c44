package store

import (
	"context"
	"fmt"
)

// Type identifies a store backend.
type Type string

const (
	// TypeNone disables the external store; matching uses local ranking only.
	TypeNone Type = "none"
	// TypeMemory keeps vectors in process, optionally persisted to a single file.
	TypeMemory Type = "memory"
	// TypeSQLite persists vectors in a SQLite database.
	TypeSQLite Type = "sqlite"
	// TypeRedis keeps vectors in Redis hashes.
	TypeRedis Type = "redis"
	// TypeFAISS uses a FAISS flat inner-product index. Requires -tags=faiss.
	TypeFAISS Type = "faiss"
)

// Options selects and configures a backend.
type Options struct {
	Type      string
	Path      string
	RedisAddr string
	RedisDB   int
	KeyPrefix string
	// Dimensions is required by backends that size their index up front (faiss).
	Dimensions int
}

// New opens the backend named by opts.Type. "" and "none" return a nil Store and no error.
// An unknown type is a configuration error.
func New(ctx context.Context, opts Options) (Store, error) {
	switch Type(opts.Type) {
	case "", TypeNone:
		return nil, nil
	case TypeMemory:
		m, err := OpenMemoryStore(opts.Path)
		if err != nil {
			return nil, err
		}
		return m, nil
	case TypeSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		s, err := NewSQLiteStore(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypeRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis store requires an address")
		}
		r, err := NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	case TypeFAISS:
		return openFAISS(opts)
	default:
		return nil, fmt.Errorf("unknown store type: %s (supported: none, memory, sqlite, redis, faiss)", opts.Type)
	}
}

func openFAISS(opts Options) (Store, error) {
	f, err := NewFAISSStore(opts.Dimensions)
	if err != nil {
		return nil, err
	}
	if err := f.Load(opts.Path); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &savingStore{Store: f, save: func() error { return f.Save(opts.Path) }}, nil
}

// savingStore persists its backend on Close.
type savingStore struct {
	Store
	save func() error
}

func (s *savingStore) Close() error {
	saveErr := s.save()
	if err := s.Store.Close(); err != nil {
		return err
	}
	return saveErr
}

// IsFAISSAvailable reports whether FAISS support is compiled in (-tags=faiss).
func IsFAISSAvailable() bool {
	f, err := NewFAISSStore(1)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
