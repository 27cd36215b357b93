package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified *time.Time
}

// StreamOptions tunes a multipart streaming upload.
type StreamOptions struct {
	ContentType string
	// PartSize is clamped to the 5 MiB S3 minimum.
	PartSize int64
	// Size is the expected total, or 0 when unknown. Only used for progress.
	Size             int64
	ProgressCallback func(done, total int64)
}

// Service wraps the object store bucket used by the API.
type Service interface {
	Upload(ctx context.Context, filePath, key string, maxSizeMB int64) error
	UploadStream(ctx context.Context, r io.Reader, key string, opts StreamOptions) error
	Download(ctx context.Context, key, filePath string) error
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	Status(ctx context.Context) error
	Bucket() string
}
