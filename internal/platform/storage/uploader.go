package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

const defaultUploadTimeout = 2 * time.Minute

var (
	errNoBucket       = errors.New("storage: bucket name is required")
	errNoClient       = errors.New("storage: client is required")
	errNoContent      = errors.New("storage: content reader is required")
	errObjectTooLarge = errors.New("storage: object exceeds the configured size limit")
)

// Uploader streams customer media into the configured bucket and hands back
// publicly addressable URLs.
type Uploader struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
	timeout       time.Duration
}

// UploaderOption customises uploader behaviour.
type UploaderOption func(*Uploader)

// WithUploadTimeout bounds a single object write.
func WithUploadTimeout(timeout time.Duration) UploaderOption {
	return func(u *Uploader) {
		if timeout > 0 {
			u.timeout = timeout
		}
	}
}

// NewUploader constructs an Uploader bound to one bucket.
func NewUploader(client *gcs.Client, bucket, publicBaseURL string, opts ...UploaderOption) (*Uploader, error) {
	if client == nil {
		return nil, errNoClient
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errNoBucket
	}
	uploader := &Uploader{
		client:        client,
		bucket:        strings.TrimSpace(bucket),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		timeout:       defaultUploadTimeout,
	}
	if uploader.publicBaseURL == "" {
		uploader.publicBaseURL = "https://storage.googleapis.com"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(uploader)
		}
	}
	return uploader, nil
}

// PutObjectParams describe one media object write.
type PutObjectParams struct {
	ObjectPath  string
	ContentType string
	// MaxBytes rejects bodies larger than the limit; zero disables the check.
	MaxBytes int64
	Content  io.Reader
}

// PutObjectResult reports where the object landed and how big it was.
type PutObjectResult struct {
	URL      string
	PublicID string
	Format   string
	Bytes    int64
}

// PutObject writes the content under the given object path. The write is
// aborted when the reader yields more than MaxBytes.
func (u *Uploader) PutObject(ctx context.Context, params PutObjectParams) (PutObjectResult, error) {
	if u == nil || u.client == nil {
		return PutObjectResult{}, errNoClient
	}
	if ctx == nil {
		return PutObjectResult{}, errors.New("storage: context is required")
	}
	object := strings.TrimSpace(params.ObjectPath)
	if object == "" {
		return PutObjectResult{}, errors.New("storage: object path is required")
	}
	if params.Content == nil {
		return PutObjectResult{}, errNoContent
	}

	writeCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(writeCtx)
	writer.ContentType = strings.TrimSpace(params.ContentType)

	reader := params.Content
	if params.MaxBytes > 0 {
		// One extra byte so an oversized body is detectable.
		reader = io.LimitReader(reader, params.MaxBytes+1)
	}

	written, err := io.Copy(writer, reader)
	if err != nil {
		_ = writer.Close()
		return PutObjectResult{}, fmt.Errorf("storage: write object %s: %w", object, err)
	}
	if params.MaxBytes > 0 && written > params.MaxBytes {
		_ = writer.Close()
		return PutObjectResult{}, errObjectTooLarge
	}
	if err := writer.Close(); err != nil {
		return PutObjectResult{}, fmt.Errorf("storage: finalize object %s: %w", object, err)
	}

	return PutObjectResult{
		URL:      u.objectURL(object),
		PublicID: object,
		Format:   objectFormat(object, writer.ContentType),
		Bytes:    written,
	}, nil
}

// IsObjectTooLarge reports whether err was caused by the size limit.
func IsObjectTooLarge(err error) bool {
	return errors.Is(err, errObjectTooLarge)
}

func (u *Uploader) objectURL(object string) string {
	escaped := make([]string, 0, 4)
	for _, segment := range strings.Split(object, "/") {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return fmt.Sprintf("%s/%s/%s", u.publicBaseURL, u.bucket, strings.Join(escaped, "/"))
}

func objectFormat(object, contentType string) string {
	if ext := strings.TrimPrefix(path.Ext(object), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return ""
}
