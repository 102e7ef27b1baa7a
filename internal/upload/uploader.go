// Package upload stores calendar background images in a blob bucket and
// hands back the public URL.
package upload

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// Uploader stores a blob and returns its public URL.
type Uploader interface {
	Store(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// GCSUploader writes blobs to a Google Cloud Storage bucket.
type GCSUploader struct {
	bucket string
	client *storage.Client
}

func NewGCSUploader(ctx context.Context, bucket string) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{bucket: bucket, client: client}, nil
}

func (u *GCSUploader) Store(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload %q: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %q: %w", name, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, name), nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}
