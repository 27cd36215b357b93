package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"api-boilerplate/internal/config"
)

const (
	// MinPartSize is the smallest part S3 accepts for all but the last part.
	MinPartSize = 5 * 1024 * 1024
	mebibyte    = 1024 * 1024
)

// API is the slice of the S3 client the service calls.
type API interface {
	manager.UploadAPIClient
	manager.DownloadAPIClient
	s3.ListObjectsV2APIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// NewClient builds an S3 client for the configured MinIO endpoint.
func NewClient(ctx context.Context, cfg config.Minio) (*s3.Client, error) {
	awsCfg, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(cfg.Region),
		awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := cfg.Endpoint()
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}

// S3Service stores objects in a single bucket of Amazon S3 (or compatible APIs).
type S3Service struct {
	api        API
	presigner  Presigner
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
}

func NewS3Service(client *s3.Client, bucket string) *S3Service {
	return NewS3ServiceWithAPI(client, s3.NewPresignClient(client), bucket)
}

func NewS3ServiceWithAPI(api API, presigner Presigner, bucket string) *S3Service {
	return &S3Service{
		api:        api,
		presigner:  presigner,
		uploader:   manager.NewUploader(api),
		downloader: manager.NewDownloader(api),
		bucket:     bucket,
	}
}

func (s *S3Service) Bucket() string {
	return s.bucket
}

// Upload sends a local file, refusing files above maxSizeMB.
func (s *S3Service) Upload(ctx context.Context, filePath, key string, maxSizeMB int64) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}

	fi, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("stat local file: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("local path must be a file")
	}
	if maxSizeMB > 0 && fi.Size() > maxSizeMB*mebibyte {
		return fmt.Errorf("%w: %s is %d bytes, limit %d MB", ErrFileTooLarge, key, fi.Size(), maxSizeMB)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %s: %w", filePath, err)
	}
	defer f.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return &UploadError{Key: key, Err: err}
	}
	return nil
}

// UploadStream copies r into key with a multipart upload, one part per
// PartSize chunk. Any failure after the upload was created aborts it so no
// orphaned parts stay behind.
func (s *S3Service) UploadStream(ctx context.Context, r io.Reader, key string, opts StreamOptions) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if r == nil {
		return &StreamUploadError{Key: key, Err: errors.New("unsupported reader: nil")}
	}

	partSize := opts.PartSize
	if partSize < MinPartSize {
		partSize = MinPartSize
	}

	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	created, err := s.api.CreateMultipartUpload(ctx, input)
	if err != nil {
		return &StreamUploadError{Key: key, Err: fmt.Errorf("create multipart upload: %w", err)}
	}
	uploadID := created.UploadId

	fail := func(cause error) error {
		// the request context may already be cancelled; cleanup must still run
		abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		_, abortErr := s.api.AbortMultipartUpload(abortCtx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(key),
			UploadId: uploadID,
		})
		if abortErr != nil {
			cause = errors.Join(cause, fmt.Errorf("abort multipart upload: %w", abortErr))
		}
		return &StreamUploadError{Key: key, Err: cause}
	}

	progress := newProgressReporter(opts.Size, opts.ProgressCallback)
	if progress != nil {
		progress.report(0)
	}

	var parts []types.CompletedPart
	buf := make([]byte, partSize)
	partNumber := int32(1)
	for {
		n, readErr := io.ReadFull(r, buf)
		last := readErr == io.EOF || readErr == io.ErrUnexpectedEOF
		if readErr != nil && !last {
			return fail(fmt.Errorf("read part %d: %w", partNumber, readErr))
		}

		// an empty stream still needs one (empty) part to complete
		if n > 0 || partNumber == 1 {
			out, err := s.api.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:        aws.String(s.bucket),
				Key:           aws.String(key),
				UploadId:      uploadID,
				PartNumber:    aws.Int32(partNumber),
				Body:          bytes.NewReader(buf[:n]),
				ContentLength: aws.Int64(int64(n)),
			})
			if err != nil {
				return fail(fmt.Errorf("upload part %d: %w", partNumber, err))
			}
			parts = append(parts, types.CompletedPart{
				ETag:       out.ETag,
				PartNumber: aws.Int32(partNumber),
			})
			if progress != nil {
				progress.add(int64(n))
			}
			partNumber++
		}

		if last {
			break
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
	}

	_, err = s.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		UploadId:        uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return fail(fmt.Errorf("complete multipart upload: %w", err))
	}

	if progress != nil {
		progress.flush()
	}
	return nil
}

// Download writes key to filePath. A partially written file is removed on failure.
func (s *S3Service) Download(ctx context.Context, key, filePath string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}

	_, err = s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(filePath)
		if isNotFound(err) {
			return &DownloadError{Key: key, Err: fmt.Errorf("%w: %w", ErrObjectNotFound, err)}
		}
		return &DownloadError{Key: key, Err: err}
	}
	if closeErr != nil {
		return fmt.Errorf("close file %s: %w", filePath, closeErr)
	}
	return nil
}

// Open streams an object. The caller closes the body.
func (s *S3Service) Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ObjectInfo{}, ErrInvalidKey
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ObjectInfo{}, &DownloadError{Key: key, Err: fmt.Errorf("%w: %w", ErrObjectNotFound, err)}
		}
		return nil, ObjectInfo{}, &DownloadError{Key: key, Err: err}
	}

	return out.Body, ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: out.LastModified,
	}, nil
}

func (s *S3Service) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if strings.TrimSpace(prefix) != "" {
		input.Prefix = aws.String(prefix)
	}

	for {
		output, err := s.api.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range output.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified,
			})
		}

		if !aws.ToBool(output.IsTruncated) || output.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}

	return objects, nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &DeleteError{Key: key, Err: err}
	}
	return nil
}

// DeletePrefix removes every object under prefix, one batch per listed page.
func (s *S3Service) DeletePrefix(ctx context.Context, prefix string) error {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return fmt.Errorf("prefix is required")
	}

	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(trimmed),
	}

	for {
		output, err := s.api.ListObjectsV2(ctx, listInput)
		if err != nil {
			return fmt.Errorf("list objects for delete: %w", err)
		}

		if len(output.Contents) > 0 {
			identifiers := make([]types.ObjectIdentifier, 0, len(output.Contents))
			for _, obj := range output.Contents {
				identifiers = append(identifiers, types.ObjectIdentifier{Key: obj.Key})
			}
			_, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{
					Objects: identifiers,
					Quiet:   aws.Bool(true),
				},
			})
			if err != nil {
				return &DeleteError{Key: trimmed, Err: err}
			}
		}

		if !aws.ToBool(output.IsTruncated) || output.NextContinuationToken == nil {
			break
		}
		listInput.ContinuationToken = output.NextContinuationToken
	}

	return nil
}

func (s *S3Service) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey
	}
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return req.URL, nil
}

// Status reports whether the bucket is reachable with the configured credentials.
func (s *S3Service) Status(ctx context.Context) error {
	if _, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

var _ Service = (*S3Service)(nil)

type progressReporter struct {
	total    int64
	done     int64
	cb       func(done, total int64)
	mu       sync.Mutex
	lastFire time.Time
}

func newProgressReporter(total int64, cb func(done, total int64)) *progressReporter {
	if cb == nil {
		return nil
	}
	return &progressReporter{
		total: total,
		cb:    cb,
	}
}

func (p *progressReporter) add(n int64) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done += n
	now := time.Now()
	if now.Sub(p.lastFire) >= 200*time.Millisecond || p.done == p.total {
		p.lastFire = now
		p.cb(p.done, p.total)
	}
}

func (p *progressReporter) report(done int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = done
	p.lastFire = time.Now()
	p.cb(p.done, p.total)
}

func (p *progressReporter) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb(p.done, p.total)
}
