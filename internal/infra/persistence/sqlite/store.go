// Package sqlite persists the roster document as a JSON snapshot in an
// embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"orgroster/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.DocumentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "orgroster.db"

const documentBucket = "organizations"

// Store keeps the whole document in a single row of the state table and
// rewrites that row on every save.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	path   string
	strict bool
}

// NewStore opens (creating if needed) the database at path and ensures the
// state table exists.
func NewStore(path string, strict bool) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, path: path, strict: strict}, nil
}

// Load reads the stored snapshot. An empty table or an undecodable payload
// yields the empty document and a *domain.PersistenceError.
func (s *Store) Load(ctx context.Context) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, documentBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EmptyDocument(), s.fail("load", fmt.Errorf("no %s snapshot: %w", documentBucket, os.ErrNotExist))
	}
	if err != nil {
		return domain.EmptyDocument(), s.fail("load", fmt.Errorf("select state: %w", err))
	}
	var doc domain.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.EmptyDocument(), s.fail("load", fmt.Errorf("decode %s: %w", documentBucket, err))
	}
	doc.Normalize()
	return doc, nil
}

// Save replaces the snapshot inside a transaction.
func (s *Store) Save(ctx context.Context, doc domain.Document) (retErr error) {
	if s.strict {
		if err := doc.Validate(); err != nil {
			return err
		}
	}
	if doc.Organizations == nil {
		doc.Organizations = []domain.Organization{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return s.fail("save", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("save", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, documentBucket, data); err != nil {
		return s.fail("save", fmt.Errorf("upsert %s: %w", documentBucket, err))
	}
	if err := tx.Commit(); err != nil {
		return s.fail("save", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func (s *Store) fail(op string, err error) error {
	return &domain.PersistenceError{Op: op, Path: s.path, Err: err}
}
