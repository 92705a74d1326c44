package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists vectors in a SQLite table and queries them exactly.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, wrapFailure("create database directory", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, wrapFailure("open database", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, wrapFailure("enable WAL", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, wrapFailure("initialize schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vectors (
		id TEXT PRIMARY KEY,
		dims INTEGER NOT NULL,
		vector BLOB NOT NULL,
		metadata TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Type returns the store type identifier.
func (s *SQLiteStore) Type() string {
	return string(TypeSQLite)
}

func (s *SQLiteStore) dims(ctx context.Context) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx, `SELECT dims FROM vectors LIMIT 1`).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return dims, err
}

// Upsert inserts or replaces items in a single transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.dims(ctx)
	if err != nil {
		return wrapFailure("read dimensions", err)
	}
	if _, err := checkDims(current, items); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapFailure("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vectors (id, dims, vector, metadata, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET dims = excluded.dims, vector = excluded.vector,
		 metadata = excluded.metadata, updated_at = excluded.updated_at`)
	if err != nil {
		return wrapFailure("prepare upsert", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, it := range items {
		meta, err := json.Marshal(it.Metadata)
		if err != nil {
			return wrapFailure("encode metadata", err)
		}
		if _, err := stmt.ExecContext(ctx, it.ID, len(it.Vector), float32SliceToBytes(it.Vector), string(meta), now); err != nil {
			return wrapFailure("upsert "+it.ID, err)
		}
	}
	return wrapFailure("commit", tx.Commit())
}

// Query loads every vector in insertion order and ranks them exactly.
func (s *SQLiteStore) Query(ctx context.Context, vec []float32, k int) ([]*QueryMatch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vector, metadata FROM vectors ORDER BY rowid`)
	if err != nil {
		return nil, wrapFailure("select vectors", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it   Item
			blob []byte
			meta sql.NullString
		)
		if err := rows.Scan(&it.ID, &blob, &meta); err != nil {
			return nil, wrapFailure("scan vector", err)
		}
		it.Vector = bytesToFloat32Slice(blob)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &it.Metadata); err != nil {
				return nil, wrapFailure("decode metadata", err)
			}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapFailure("iterate vectors", err)
	}
	return exactQuery(items, vec, k)
}

// Size returns the number of stored vectors.
func (s *SQLiteStore) Size(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, wrapFailure("count vectors", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
