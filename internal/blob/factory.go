package blob

import (
	"context"
	"fmt"
	"strings"

	fsstore "krakenexport/internal/infra/blob/fs"
	memstore "krakenexport/internal/infra/blob/memory"
	s3store "krakenexport/internal/infra/blob/s3"
)

// S3Config carries the bucket coordinates for DriverS3.
type S3Config = s3store.Config

// Config selects and parameterizes an output store.
type Config struct {
	Driver Driver
	// Dir is the output directory for DriverFilesystem (default ".").
	Dir string
	S3  S3Config
}

// Open selects a Store implementation from cfg. An empty driver means
// the local filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(string(cfg.Driver))))
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewFilesystem returns a directory-backed store.
func NewFilesystem(dir string) (Store, error) {
	return fsstore.New(dir)
}

// NewMemory returns an in-memory store.
func NewMemory() Store {
	return memstore.New()
}

// NewS3 returns a bucket-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return s3store.New(ctx, cfg)
}

// NewMockS3ForTests returns an S3 store wired to an in-process fake transport.
func NewMockS3ForTests() Store {
	return s3store.NewMockForTests()
}
