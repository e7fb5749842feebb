// Package memory provides an in-memory implementation of the roster document
// store used for tests and ephemeral sessions.
package memory

import (
	"context"
	"errors"
	"sync"

	"orgroster/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.DocumentStore = (*Store)(nil)

// Store keeps a private copy of the document. Load and Save clone so callers
// never alias stored state.
type Store struct {
	mu      sync.RWMutex
	doc     domain.Document
	present bool
	saves   int
	failErr error
}

// NewStore returns an empty store. Load on an empty store behaves like a
// missing file: it returns the empty document and a persistence error.
func NewStore() *Store { return &Store{} }

// NewStoreWith returns a store seeded with doc.
func NewStoreWith(doc domain.Document) *Store {
	s := &Store{}
	s.ImportState(doc)
	return s
}

// Load returns a normalized copy of the stored document.
func (s *Store) Load(ctx context.Context) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmptyDocument(), &domain.PersistenceError{Op: "load", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.present {
		return domain.EmptyDocument(), &domain.PersistenceError{Op: "load", Err: errEmpty}
	}
	doc := s.doc.Clone()
	doc.Normalize()
	return doc, nil
}

// Save replaces the stored document with a copy of doc.
func (s *Store) Save(ctx context.Context, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return &domain.PersistenceError{Op: "save", Err: s.failErr}
	}
	s.doc = doc.Clone()
	s.present = true
	s.saves++
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ExportState returns a copy of the stored document.
func (s *Store) ExportState() domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// ImportState replaces the stored document without counting as a save.
func (s *Store) ImportState(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	s.doc.Normalize()
	s.present = true
}

// Saves reports how many successful Save calls the store has seen.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// FailSaves makes every following Save return err wrapped in a
// *domain.PersistenceError. Pass nil to restore normal behaviour.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

var errEmpty = errors.New("no document stored")
