package minio

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/feichai0017/pdf2md/config"
	"github.com/feichai0017/pdf2md/pkg/logger"
	"github.com/feichai0017/pdf2md/pkg/storage/object"
)

type MinioStorage struct {
	client     *minio.Client
	bucketName string
	prefix     string
	logger     logger.Logger
}

// sized is implemented by bytes.Reader and strings.Reader; a known length
// avoids a multipart upload.
type sized interface {
	Len() int
}

func (m *MinioStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	fullKey := path.Join(m.prefix, key)

	size := int64(-1)
	if r, ok := reader.(sized); ok {
		size = int64(r.Len())
	}

	opts := minio.PutObjectOptions{ContentType: object.ContentType(key)}
	if _, err := m.client.PutObject(ctx, m.bucketName, fullKey, reader, size, opts); err != nil {
		m.logger.Error("Failed to store file to MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", fullKey),
			logger.Error(err),
		)
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", m.client.EndpointURL(), m.bucketName, fullKey), nil
}

func newClient(c *cfg.MinioConfig) (*minio.Client, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return client, nil
}

// NewMinioStorageWithConfig connects with c and does not touch the bucket.
func NewMinioStorageWithConfig(c *cfg.MinioConfig, log logger.Logger) (*MinioStorage, error) {
	client, err := newClient(c)
	if err != nil {
		return nil, err
	}

	return &MinioStorage{
		client:     client,
		bucketName: c.BucketName,
		prefix:     c.Prefix,
		logger:     log,
	}, nil
}

// NewMinioStorage connects with the environment configuration and creates
// the bucket when it does not exist.
func NewMinioStorage(ctx context.Context, log logger.Logger) (*MinioStorage, error) {
	minioConfig := cfg.GetMinioConfig()
	if minioConfig.Endpoint == "" || minioConfig.BucketName == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET_NAME are required")
	}

	m, err := NewMinioStorageWithConfig(minioConfig, log)
	if err != nil {
		return nil, err
	}

	exists, err := m.client.BucketExists(ctx, minioConfig.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, minioConfig.BucketName, minio.MakeBucketOptions{
			Region: minioConfig.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("Created MinIO bucket", logger.String("bucket", minioConfig.BucketName))
	}

	return m, nil
}

func GetClient(ctx context.Context, log logger.Logger) (*MinioStorage, error) {
	return NewMinioStorage(ctx, log)
}
