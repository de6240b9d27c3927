package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Storage talks to AWS S3 or any S3-compatible store such as MinIO.
type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
	}, nil
}

func (s *S3Storage) Bucket() string {
	return s.bucket
}

func (s *S3Storage) Exists(ctx context.Context, blob string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blob),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat s3://%s/%s: %w", s.bucket, blob, err)
}

func (s *S3Storage) Upload(ctx context.Context, r io.Reader, blob, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blob),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", uploadError(blob, err)
	}
	return objectPath("s3", s.bucket, blob), nil
}

// SignedURL presigns GET, PUT and DELETE. S3 has no presigned-URL form of
// POST (it uses a policy document instead), so POST is rejected.
func (s *S3Storage) SignedURL(ctx context.Context, blob, method string, ttl time.Duration) (string, error) {
	m, err := ValidateMethod(method)
	if err != nil {
		return "", err
	}

	expires := s3.WithPresignExpires(ttlOrDefault(ttl))
	bucket, key := aws.String(s.bucket), aws.String(blob)

	var url string
	switch m {
	case http.MethodGet:
		req, perr := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: bucket, Key: key}, expires)
		if perr != nil {
			return "", fmt.Errorf("failed to presign GET: %w", perr)
		}
		url = req.URL
	case http.MethodPut:
		req, perr := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:      bucket,
			Key:         key,
			ContentType: aws.String(UploadContentType),
		}, expires)
		if perr != nil {
			return "", fmt.Errorf("failed to presign PUT: %w", perr)
		}
		url = req.URL
	case http.MethodDelete:
		req, perr := s.presign.PresignDeleteObject(ctx, &s3.DeleteObjectInput{Bucket: bucket, Key: key}, expires)
		if perr != nil {
			return "", fmt.Errorf("failed to presign DELETE: %w", perr)
		}
		url = req.URL
	default:
		return "", fmt.Errorf("%w: %s is not presignable on S3", ErrUnsupportedMethod, m)
	}

	return url, nil
}
