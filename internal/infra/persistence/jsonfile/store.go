// Package jsonfile persists the roster document as a single indented JSON
// file, the format the organization views have always read and written.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"orgroster/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// DefaultPath is used when no path is configured.
const DefaultPath = "data/organizations_data.json"

// Store reads and overwrites one JSON document at a fixed path.
type Store struct {
	path   string
	strict bool
	mu     sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithStrict makes Save reject documents that fail domain.Document.Validate.
func WithStrict(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

// New returns a store for the document at path (DefaultPath when empty). The
// file is not touched until Load or Save.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the configured document path.
func (s *Store) Path() string { return s.path }

// Load reads the document. A missing or undecodable file yields the empty
// document and a *domain.PersistenceError.
func (s *Store) Load(ctx context.Context) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmptyDocument(), s.fail("load", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.EmptyDocument(), s.fail("load", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return domain.EmptyDocument(), s.fail("load", err)
	}
	return doc, nil
}

// Save overwrites the document. The new content is written to a temporary
// file in the same directory and renamed into place.
func (s *Store) Save(ctx context.Context, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return s.fail("save", err)
	}
	if s.strict {
		if err := doc.Validate(); err != nil {
			return err
		}
	}
	data, err := Encode(doc)
	if err != nil {
		return s.fail("save", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.path, data); err != nil {
		return s.fail("save", err)
	}
	return nil
}

// Close is a no-op; the file is opened per call.
func (s *Store) Close() error { return nil }

// Exists reports whether the document file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return !errors.Is(err, fs.ErrNotExist)
}

func (s *Store) fail(op string, err error) error {
	return &domain.PersistenceError{Op: op, Path: s.path, Err: err}
}

// Encode renders the document with four-space indentation and a trailing newline.
func Encode(doc domain.Document) ([]byte, error) {
	if doc.Organizations == nil {
		doc.Organizations = []domain.Organization{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses either the unified {"organizations": [...]} form or the
// legacy split form and returns a normalized document.
func Decode(data []byte) (domain.Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	if _, unified := probe["organizations"]; !unified && isLegacy(probe) {
		doc, err := decodeLegacy(probe)
		if err != nil {
			return domain.Document{}, err
		}
		doc.Normalize()
		return doc, nil
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dirs: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".orgroster-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
