// Package sink stores generated output files. A Store is a flat key space
// backed by a local directory, an S3-compatible bucket, or process memory.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Driver identifies a Store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("sink: object not found")

// PutOptions are optional parameters of Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored object.
type Info struct {
	Key         string `json:"key"`
	Size        int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
	ETag        string `json:"etag,omitempty"`
}

// Store writes output objects. Put replaces an existing object with the
// same key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	List(ctx context.Context, prefix string) ([]Info, error)

	// Location is a human-readable address of key, for logs.
	Location(key string) string
	Driver() Driver
}

// Open returns the store for an output location:
//   - s3://bucket[/prefix] opens an S3 store (see S3ConfigFromEnv)
//   - memory:// opens an empty in-memory store
//   - anything else is a local directory, created if missing
func Open(ctx context.Context, location string) (Store, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid s3 location %q: %w", location, err)
		}
		cfg := S3ConfigFromEnv()
		cfg.Bucket = u.Host
		cfg.Prefix = strings.Trim(u.Path, "/")
		return NewS3(ctx, cfg)
	case strings.HasPrefix(location, "memory://"):
		return NewMemory(), nil
	default:
		return NewFilesystem(location)
	}
}

// sanitizeKey rejects keys that would escape the store root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid key %q contains '..'", key)
		}
	}
	return key, nil
}
