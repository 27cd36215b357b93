package storage

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrFileTooLarge   = errors.New("file exceeds the upload size limit")
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("object key is required")
)

// StreamUploadError reports a failed multipart upload. The upload has been
// aborted by the time it is returned.
type StreamUploadError struct {
	Key string
	Err error
}

func (e *StreamUploadError) Error() string {
	return fmt.Sprintf("streaming upload failed for key: %s: %v", e.Key, e.Err)
}

func (e *StreamUploadError) Unwrap() error { return e.Err }

type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload file to s3 %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

type DownloadError struct {
	Key string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download file from s3 %s: %v", e.Key, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

type DeleteError struct {
	Key string
	Err error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete file from s3 %s: %v", e.Key, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// isNotFound recognises the different ways S3 compatible stores report a
// missing key.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
