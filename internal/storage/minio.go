package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrInvalidObject is returned for an empty key or body
var ErrInvalidObject = errors.New("invalid object")

// Options configures the S3-compatible endpoint
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string // Skips the bucket location lookup when set
}

// MinioStore keeps note PDFs and cover images in one bucket
type MinioStore struct {
	client *minio.Client
	bucket string
	public string // Base URL for public object links

	ensureOnce sync.Once
	ensureErr  error
}

// NewMinioStore creates a client for the configured endpoint
func NewMinioStore(opts Options) (*MinioStore, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}
	bucket := strings.TrimSpace(opts.Bucket)
	return &MinioStore{
		client: client,
		bucket: bucket,
		public: scheme + "://" + opts.Endpoint + "/" + bucket,
	}, nil
}

// EnsureBucket creates the bucket on first use
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	if s.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}
	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = err
			return
		}
		if exists {
			return
		}
		s.ensureErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	})
	if s.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", s.bucket, s.ensureErr)
	}
	return nil
}

// Put uploads an object, overwriting any object with the same key
func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" || body == nil || size == 0 {
		return ErrInvalidObject
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Delete removes an object. Empty keys are ignored.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL
func (s *MinioStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrInvalidObject
	}
	params := url.Values{}
	params.Set("response-content-disposition", `attachment; filename="`+key[strings.LastIndex(key, "/")+1:]+`"`)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return presigned.String(), nil
}

// PublicURL is the unsigned URL of an object, valid when the bucket allows anonymous reads
func (s *MinioStore) PublicURL(key string) string {
	return s.public + "/" + key
}
