package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrNotFound        = errors.New("not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrPersistence     = errors.New("persistence failure")
	ErrValidation      = errors.New("validation failed")
)

// NotFoundError reports an edit or removal whose target is absent. It is
// recoverable: callers continue with the unchanged record.
type NotFoundError struct {
	Entity EntityType
	Key    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// Is matches ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IndexOutOfRangeError reports a row index outside the addressed list.
type IndexOutOfRangeError struct {
	Entity EntityType
	Index  int
	Len    int
}

func (e IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0,%d)", e.Entity, e.Index, e.Len)
}

// Is matches ErrIndexOutOfRange.
func (e IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }

// PersistenceError reports a document that could not be read, decoded or written.
type PersistenceError struct {
	Op   string // load|save
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s document: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s document %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// ValidationError reports a structural problem found by Validate.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }
