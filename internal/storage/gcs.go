package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSStorage struct {
	client *storage.Client
	bucket string
}

func NewGCSStorage(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) Bucket() string {
	return s.bucket
}

func (s *GCSStorage) Exists(ctx context.Context, blob string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(blob).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat gs://%s/%s: %w", s.bucket, blob, err)
	}
	return true, nil
}

func (s *GCSStorage) Upload(ctx context.Context, r io.Reader, blob, contentType string) (string, error) {
	// Cancelling the writer's context aborts the upload instead of
	// committing what was already streamed.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(blob).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return "", uploadError(blob, err)
	}
	if err := w.Close(); err != nil {
		return "", uploadError(blob, err)
	}

	return objectPath("gs", s.bucket, blob), nil
}

// SignedURL issues a V4 signed URL. Credentials are taken from the client's
// environment, so this needs a service account key or IAM signBlob access.
func (s *GCSStorage) SignedURL(_ context.Context, blob, method string, ttl time.Duration) (string, error) {
	m, err := ValidateMethod(method)
	if err != nil {
		return "", err
	}

	url, err := s.client.Bucket(s.bucket).SignedURL(blob, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      m,
		Expires:     time.Now().Add(ttlOrDefault(ttl)),
		ContentType: UploadContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for gs://%s/%s: %w", s.bucket, blob, err)
	}
	return url, nil
}
