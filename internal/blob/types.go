// Package blob is the single entry point to image storage. Callers depend on
// blob.Store and never import the infra backends directly.
package blob

import (
	"orgroster/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// URLOptions configures URL generation.
	URLOptions = core.URLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
	// ErrNotFound marks missing keys.
	ErrNotFound = core.ErrNotFound
	// ErrExists marks create-only conflicts.
	ErrExists = core.ErrExists
)
