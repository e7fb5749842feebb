// Package core defines the blob storage contract behind organization logos
// and officer photos.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a blob storage backend.
type Driver string

const (
	// DriverFilesystem keeps images under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 keeps images in an S3 or MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps images in process memory.
	DriverMemory Driver = "memory"
)

// PutOptions describes the object being written.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// URLOptions configures URL generation. Expiry only applies to presigned URLs
// and defaults to 15 minutes.
type URLOptions struct {
	Expiry time.Duration
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is the minimal S3-like surface the image layer needs.
type Store interface {
	// Put writes a new object and fails with ErrExists when key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the object and its content. Missing keys yield ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only. Missing keys yield ErrNotFound.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// URL returns a location a viewer can load the object from.
	URL(ctx context.Context, key string, opts URLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned when a backend lacks an optional capability.
	ErrUnsupported = errors.New("blob: unsupported operation")
	// ErrNotFound is matched by errors.Is for missing keys.
	ErrNotFound = errors.New("blob: not found")
	// ErrExists is matched by errors.Is when Put targets a taken key.
	ErrExists = errors.New("blob: already exists")
)

// DefaultURLExpiry bounds presigned URLs when URLOptions.Expiry is unset.
const DefaultURLExpiry = 15 * time.Minute

// CloneMetadata copies a metadata map, keeping nil as nil.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
