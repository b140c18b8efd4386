// Package blob defines the object storage contract used to archive yard
// reports. Implementations live under internal/infra/blob.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a minimal S3-like object store. Put never overwrites.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// Presigner is implemented by stores that can hand out time-limited download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

var (
	// ErrNotFound is returned for keys that do not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrExists is returned by Put when the key is taken.
	ErrExists = errors.New("blob already exists")
)

// CloneMetadata copies user metadata so callers cannot alias stored maps.
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
