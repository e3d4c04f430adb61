// Package minio stores blobs in an S3-compatible bucket through minio-go.
// S3 PUTs are atomic per object: a GET returns the previous object until
// the new one is completely uploaded.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Config holds connection settings.
type Config struct {
	// Endpoint is host:port or a URL; an https scheme turns on TLS.
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// Store is an S3-backed blob store.
type Store struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a client. It performs no I/O; call EnsureBucket before use.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: minio endpoint is required", domain.ErrInvalidInput)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: minio bucket is required", domain.ErrInvalidInput)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: minio credentials are required", domain.ErrInvalidInput)
	}

	endpoint, useSSL := parseEndpoint(cfg.Endpoint, cfg.UseSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create minio client: %w", domain.ErrStorageFailure, err)
	}

	return &Store{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// parseEndpoint accepts "host:port" or "scheme://host:port".
func parseEndpoint(raw string, useSSL bool) (string, bool) {
	if !strings.Contains(raw, "://") {
		return raw, useSSL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, useSSL
	}
	return u.Host, useSSL || u.Scheme == "https"
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classify(err, "bucket exists")
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		// Another process may have created it in between.
		if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return classify(err, "make bucket")
	}
	return nil
}

// Put uploads data as one object.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty blob key", domain.ErrInvalidInput)
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return classify(err, "put "+key)
	}
	return nil
}

// Get downloads the whole object.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty blob key", domain.ErrInvalidInput)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err, "get "+key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(err, "get "+key)
	}
	return data, nil
}

// Exists reports whether the object is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("%w: empty blob key", domain.ErrInvalidInput)
	}
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		err = classify(err, "stat "+key)
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the object. S3 treats missing keys as success.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty blob key", domain.ErrInvalidInput)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify(err, "delete "+key)
	}
	return nil
}

// List returns the keys under prefix. S3 lists in lexicographic order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, classify(obj.Err, "list "+prefix)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Ping checks the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classify(err, "ping")
	}
	if !exists {
		return fmt.Errorf("%w: bucket %s does not exist", domain.ErrStorageFailure, s.bucket)
	}
	return nil
}

// Close is a no-op; the client holds no persistent connections to release.
func (s *Store) Close() error {
	return nil
}

// classify maps minio errors onto domain errors. Missing objects become
// ErrNotFound; unreachable endpoints are transient storage failures.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case "NoSuchBucket", "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, op, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") || strings.Contains(msg, "deadline") {
		return fmt.Errorf("%w: %s: %w: %w", domain.ErrStorageFailure, op, domain.ErrTransientExternal, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, op, err)
}
