package upload

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

	"announcement_syncer/internal/logging"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		b, _ := io.ReadAll(params.Body)
		f.body = string(b)
	}
	return &s3.PutObjectOutput{}, f.err
}

func newTestUploader(client putObjectAPI, cfg Config) *S3 {
	u := newS3(client, cfg, logging.Discard())
	u.newKey = func() string { return "0b8f6f0e-1111-2222-3333-444444444444" }
	return u
}

func TestUpload_PutsObjectUnderPrefix(t *testing.T) {
	putter := &fakePutter{}
	u := newTestUploader(putter, Config{Region: "ap-northeast-2", Bucket: "uploads", KeyPrefix: "file"})

	fileURL, err := u.Upload(context.Background(), "공고.pdf", "application/pdf", 5, strings.NewReader("hello"))

	require.NoError(t, err)
	assert.Equal(t, "https://uploads.s3.ap-northeast-2.amazonaws.com/file/0b8f6f0e-1111-2222-3333-444444444444", fileURL)
	assert.Equal(t, "uploads", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "file/0b8f6f0e-1111-2222-3333-444444444444", aws.ToString(putter.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(putter.input.ContentType))
	assert.Equal(t, int64(5), aws.ToInt64(putter.input.ContentLength))
	assert.Equal(t, "hello", putter.body)
}

func TestUpload_CDNBaseURL(t *testing.T) {
	u := newTestUploader(&fakePutter{}, Config{
		Region:     "ap-northeast-2",
		Bucket:     "uploads",
		KeyPrefix:  "file",
		CDNBaseURL: "https://cdn.example.test/",
	})

	fileURL, err := u.Upload(context.Background(), "a.png", "", 0, strings.NewReader("x"))

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.test/file/0b8f6f0e-1111-2222-3333-444444444444", fileURL)
}

func TestUpload_CustomEndpoint(t *testing.T) {
	putter := &fakePutter{}
	u := newTestUploader(putter, Config{
		Region:    "us-east-1",
		Bucket:    "local",
		KeyPrefix: "file",
		Endpoint:  "http://127.0.0.1:4566",
	})

	fileURL, err := u.Upload(context.Background(), "a.png", "", 0, strings.NewReader("x"))

	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:4566/local/file/0b8f6f0e-1111-2222-3333-444444444444", fileURL)
	assert.Nil(t, putter.input.ContentType)
	assert.Nil(t, putter.input.ContentLength)
}

func TestUpload_Error(t *testing.T) {
	u := newTestUploader(&fakePutter{err: errors.New("access denied")}, Config{Bucket: "uploads", KeyPrefix: "file"})

	_, err := u.Upload(context.Background(), "a.png", "", 0, strings.NewReader("x"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "put object file/")
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3_StaticCredentials(t *testing.T) {
	u, err := NewS3(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "local",
		Endpoint:        "http://127.0.0.1:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		KeyPrefix:       "file",
	}, logging.Discard())

	require.NoError(t, err)
	assert.NotNil(t, u.client)
	assert.Len(t, u.newKey(), 36)
}
