// Package postgres persists the roster document as a JSONB snapshot in a
// Postgres state table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"orgroster/pkg/domain"

	"github.com/cenkalti/backoff"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.DocumentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// DefaultDSN is used when ORGROSTER_POSTGRES_DSN is unset.
	DefaultDSN     = "postgres://localhost/orgroster?sslmode=disable"
	documentBucket = "organizations"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Option configures a Store.
type Option func(*options)

type options struct {
	strict         bool
	maxRetries     uint64
	initialBackoff time.Duration
	notify         backoff.Notify
}

// WithStrict enables document validation before every save.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithConnectRetry bounds how often the initial ping is retried and how long
// the first wait lasts. Waits grow exponentially.
func WithConnectRetry(maxRetries uint64, initial time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.initialBackoff = initial
	}
}

// WithRetryNotify registers a callback invoked after each failed ping.
func WithRetryNotify(fn func(err error, wait time.Duration)) Option {
	return func(o *options) { o.notify = fn }
}

// Store keeps the document in one JSONB row keyed by bucket.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	strict bool
}

// NewStore opens the database named by dsn (DefaultDSN when empty), waits for
// it to answer a ping and ensures the state table exists.
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg := options{maxRetries: 5, initialBackoff: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := ping(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, strict: cfg.strict}, nil
}

func ping(ctx context.Context, db *sql.DB, cfg options) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.initialBackoff
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, cfg.maxRetries), ctx)
	return backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, policy, cfg.notify)
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// Load reads the snapshot row. A missing row or bad payload yields the empty
// document and a *domain.PersistenceError.
func (s *Store) Load(ctx context.Context) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state WHERE bucket = $1`, documentBucket)
	if err != nil {
		return domain.EmptyDocument(), fail("load", fmt.Errorf("select state: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var payload []byte
	found := false
	for rows.Next() {
		var bucket string
		var data []byte
		if err := rows.Scan(&bucket, &data); err != nil {
			return domain.EmptyDocument(), fail("load", fmt.Errorf("scan state: %w", err))
		}
		if bucket != documentBucket {
			continue
		}
		payload, found = data, true
	}
	if err := rows.Err(); err != nil {
		return domain.EmptyDocument(), fail("load", fmt.Errorf("iterate state: %w", err))
	}
	if !found || len(payload) == 0 {
		return domain.EmptyDocument(), fail("load", fmt.Errorf("no %s snapshot: %w", documentBucket, os.ErrNotExist))
	}
	var doc domain.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.EmptyDocument(), fail("load", fmt.Errorf("decode %s: %w", documentBucket, err))
	}
	doc.Normalize()
	return doc, nil
}

// Save upserts the snapshot row inside a transaction.
func (s *Store) Save(ctx context.Context, doc domain.Document) error {
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
		return fail("save", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("save", fmt.Errorf("begin tx: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, documentBucket, data); err != nil {
		return fail("save", fmt.Errorf("upsert %s: %w", documentBucket, err))
	}
	if err := tx.Commit(); err != nil {
		return fail("save", fmt.Errorf("commit: %w", err))
	}
	committed = true
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func fail(op string, err error) error {
	return &domain.PersistenceError{Op: op, Path: "postgres:" + documentBucket, Err: err}
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
