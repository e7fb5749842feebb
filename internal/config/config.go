// Package config resolves orgroster settings from defaults, an optional YAML
// file and ORGROSTER_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"orgroster/internal/blob"
)

// Config is the full runtime configuration.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Blob     Blob     `yaml:"blob"`
	Log      Log      `yaml:"log"`
	Identity Identity `yaml:"identity"`
}

// Storage selects the roster document backend.
type Storage struct {
	Driver      string `yaml:"driver"`
	DataPath    string `yaml:"data_path"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Strict      bool   `yaml:"strict"`
}

// Blob selects where logos and photos are read from and imported to.
type Blob struct {
	Driver    string        `yaml:"driver"`
	FSRoot    string        `yaml:"fs_root"`
	FSBaseURL string        `yaml:"fs_base_url"`
	S3        blob.S3Config `yaml:"s3"`
}

// Log configures the zerolog output.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Identity names the person operating the session.
type Identity struct {
	Name  string   `yaml:"name"`
	Roles []string `yaml:"roles"`
}

// Default returns the built-in settings: the JSON file store at
// data/organizations_data.json, images resolved from the working directory,
// info-level console logging.
func Default() Config {
	return Config{
		Storage: Storage{Driver: "json", DataPath: "data/organizations_data.json", SQLitePath: "orgroster.db"},
		Blob:    Blob{Driver: string(blob.DriverFilesystem), FSRoot: "."},
		Log:     Log{Level: "info", Format: "console"},
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from the defaults, the YAML file at path (skipped when
// path is empty) and the variables visible through lookup:
//
//	ORGROSTER_STORAGE_DRIVER: memory|json|sqlite|postgres (default json)
//	ORGROSTER_DATA_PATH: JSON document path
//	ORGROSTER_SQLITE_PATH: sqlite database path
//	ORGROSTER_POSTGRES_DSN: postgres DSN
//	ORGROSTER_STRICT: validate documents before saving (bool)
//	ORGROSTER_BLOB_DRIVER: fs|s3|memory (default fs)
//	ORGROSTER_BLOB_FS_ROOT, ORGROSTER_BLOB_FS_BASE_URL
//	ORGROSTER_BLOB_S3_BUCKET, _REGION, _PREFIX, _ENDPOINT, _PATH_STYLE,
//	_ACCESS_KEY_ID, _SECRET_ACCESS_KEY
//	ORGROSTER_LOG_LEVEL: debug|info|warn|error
//	ORGROSTER_LOG_FORMAT: console|json
//	ORGROSTER_IDENTITY: operator name
//	ORGROSTER_ROLES: comma separated roles, e.g. admin
func Load(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}

	str("ORGROSTER_STORAGE_DRIVER", &c.Storage.Driver)
	str("ORGROSTER_DATA_PATH", &c.Storage.DataPath)
	str("ORGROSTER_SQLITE_PATH", &c.Storage.SQLitePath)
	str("ORGROSTER_POSTGRES_DSN", &c.Storage.PostgresDSN)
	boolean("ORGROSTER_STRICT", &c.Storage.Strict)

	str("ORGROSTER_BLOB_DRIVER", &c.Blob.Driver)
	str("ORGROSTER_BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("ORGROSTER_BLOB_FS_BASE_URL", &c.Blob.FSBaseURL)
	str("ORGROSTER_BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("ORGROSTER_BLOB_S3_REGION", &c.Blob.S3.Region)
	str("ORGROSTER_BLOB_S3_PREFIX", &c.Blob.S3.Prefix)
	str("ORGROSTER_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	str("ORGROSTER_BLOB_S3_ACCESS_KEY_ID", &c.Blob.S3.AccessKeyID)
	str("ORGROSTER_BLOB_S3_SECRET_ACCESS_KEY", &c.Blob.S3.SecretAccessKey)
	boolean("ORGROSTER_BLOB_S3_PATH_STYLE", &c.Blob.S3.PathStyle)

	str("ORGROSTER_LOG_LEVEL", &c.Log.Level)
	str("ORGROSTER_LOG_FORMAT", &c.Log.Format)

	str("ORGROSTER_IDENTITY", &c.Identity.Name)
	if v, ok := lookup("ORGROSTER_ROLES"); ok && strings.TrimSpace(v) != "" {
		c.Identity.Roles = splitList(v)
	}
	return errors.Join(errs...)
}

// BlobConfig converts the blob section for blob.Open.
func (b Blob) BlobConfig() blob.Config {
	return blob.Config{
		Driver:    blob.Driver(b.Driver),
		FSRoot:    b.FSRoot,
		FSBaseURL: b.FSBaseURL,
		S3:        b.S3,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
