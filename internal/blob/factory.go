package blob

import (
	"context"
	"fmt"
)

// Config selects and configures a backend. The config package fills it from
// ORGROSTER_BLOB_* variables and the YAML file.
type Config struct {
	Driver    Driver
	FSRoot    string
	FSBaseURL string
	S3        S3Config
}

// Open builds the Store named by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot, cfg.FSBaseURL)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
