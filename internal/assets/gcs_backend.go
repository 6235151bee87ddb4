package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSBackend keeps assets in a Cloud Storage bucket.
type GCSBackend struct {
	client *gcs.Client
	bucket string
	prefix string
}

func NewGCSBackend(client *gcs.Client, bucket, prefix string) (*GCSBackend, error) {
	if client == nil {
		return nil, errors.New("gcs backend: client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("gcs backend: bucket is required")
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &GCSBackend{client: client, bucket: bucket, prefix: prefix}, nil
}

func (b *GCSBackend) object(name string) *gcs.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.prefix + name)
}

// Create writes with a does-not-exist precondition, so a name is never
// overwritten.
func (b *GCSBackend) Create(ctx context.Context, name, contentType string, data []byte) error {
	w := b.object(name).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s%s: %w", b.bucket, b.prefix, name, err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return ErrExists
		}
		return fmt.Errorf("close gs://%s/%s%s: %w", b.bucket, b.prefix, name, err)
	}
	return nil
}

func (b *GCSBackend) Delete(ctx context.Context, name string) error {
	err := b.object(name).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete gs://%s/%s%s: %w", b.bucket, b.prefix, name, err)
	}
	return nil
}
