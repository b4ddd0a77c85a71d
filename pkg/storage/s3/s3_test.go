package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/pdf2md/pkg/logger"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	data, _ := io.ReadAll(params.Body)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Storage_Store(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3StorageWithClient(fake, "artifacts", "pdf2md", logger.NewTestLogger())

	loc, err := store.Store(context.Background(), strings.NewReader("# Title"), "report.md")
	require.NoError(t, err)

	assert.Equal(t, "s3://artifacts/pdf2md/report.md", loc)
	assert.Equal(t, "artifacts", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "pdf2md/report.md", aws.ToString(fake.input.Key))
	assert.Equal(t, "text/markdown; charset=utf-8", aws.ToString(fake.input.ContentType))
	assert.Equal(t, "# Title", fake.body)
}

func TestS3Storage_StoreError(t *testing.T) {
	log := logger.NewTestLogger()
	store := NewS3StorageWithClient(&fakeS3{err: errors.New("access denied")}, "artifacts", "", log)

	_, err := store.Store(context.Background(), strings.NewReader("x"), "report.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, []string{"Failed to store file to S3"}, log.Messages("ERROR"))
}
