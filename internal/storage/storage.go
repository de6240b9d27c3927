package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURLTTL     = 15 * time.Minute
	UploadContentType = "application/octet-stream"
)

var (
	ErrUploadFailed      = errors.New("upload failed")
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")
)

// ObjectStore is a bucket of named blobs.
type ObjectStore interface {
	Exists(ctx context.Context, blob string) (bool, error)
	Upload(ctx context.Context, r io.Reader, blob, contentType string) (string, error)
	Bucket() string
}

// URLSigner issues time-limited URLs that let a client act on a blob directly.
type URLSigner interface {
	SignedURL(ctx context.Context, blob, method string, ttl time.Duration) (string, error)
}

// ValidateMethod normalises method and rejects anything other than GET, POST, PUT or DELETE.
func ValidateMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
}

func objectPath(scheme, bucket, blob string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(bucket, "/"), blob)
}

func uploadError(blob string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUploadFailed, blob, err)
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultURLTTL
	}
	return ttl
}
