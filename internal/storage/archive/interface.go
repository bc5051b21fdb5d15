// Package archive persists reconciled earnings snapshots to local disk or
// an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
)

// Storage is a flat key/blob store addressed by slash-separated paths
type Storage interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	// List returns every path under prefix in ascending order
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Type string // "localfs" or "s3"
	Path string
	S3   S3Config
}

// Open returns the backend named by cfg.Type
func Open(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	}
	return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
}
