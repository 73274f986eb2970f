package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the connection settings for a MinIO or S3 endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// MinIO implements Store on top of minio-go.
type MinIO struct {
	client *minio.Client
	region string
	logger *slog.Logger
}

// NewMinIO creates a client. It does not contact the server.
func NewMinIO(cfg Config, logger *slog.Logger) (*MinIO, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("object store endpoint is required")
	}
	if strings.Contains(endpoint, "://") {
		return nil, fmt.Errorf("object store endpoint %q must be host[:port] without a scheme", endpoint)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &MinIO{client: client, region: cfg.Region, logger: logger.With("component", "objectstore")}, nil
}

// EnsureBucket creates bucket when it does not exist yet.
func (m *MinIO) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	m.logger.Info("created bucket", "bucket", bucket)
	return nil
}

func (m *MinIO) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	info, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", bucket, key, translate(err))
	}
	m.logger.Debug("stored object", "bucket", bucket, "key", key, "size", info.Size)
	return nil
}

// Get stats the object first so a missing key surfaces as ErrNotFound here
// rather than on the first Read.
func (m *MinIO) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if _, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("failed to stat %s/%s: %w", bucket, key, translate(err))
	}
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", bucket, key, translate(err))
	}
	return obj, nil
}

func (m *MinIO) Remove(ctx context.Context, bucket, key string) error {
	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", bucket, key, translate(err))
	}
	return nil
}

func (m *MinIO) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	out := []ObjectInfo{}
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true, WithMetadata: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, translate(obj.Err))
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MinIO) PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", bucket, key, translate(err))
	}
	return u.String(), nil
}

// translate maps S3 "missing" responses to ErrNotFound.
func translate(err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey", resp.Code == "NoSuchBucket", resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Message)
	}
	return err
}
