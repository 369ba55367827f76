// Package cache persists household builds between runs so that repeated runs
// over the same compositions skip enumeration and generator assembly.
//
// Entries live in a blob Store. Three drivers are available: fs for local
// directories, memory for tests and s3 for S3-compatible object stores.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	// DriverFilesystem stores blobs under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverMemory keeps blobs in process memory.
	DriverMemory Driver = "memory"
	// DriverS3 stores blobs in an S3 or MinIO bucket.
	DriverS3 Driver = "s3"
)

// ErrNotFound is returned by Get and Head for a missing key.
var ErrNotFound = errors.New("blob not found")

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a minimal S3-like key/value blob store. Put replaces any
// existing blob under the same key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}

// Config selects and configures a Store driver.
type Config struct {
	Driver Driver
	Dir    string // fs root

	// s3 settings; credentials come from the default AWS chain.
	Bucket    string
	Region    string
	Endpoint  string // optional, e.g. a MinIO URL
	PathStyle bool
}

// Open constructs the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return NewFSStore(cfg.Dir)
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverS3:
		return NewS3Store(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown cache driver %q; valid: fs, memory, s3", cfg.Driver)
}
