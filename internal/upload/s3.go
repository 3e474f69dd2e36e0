// Package upload stores user files in S3-compatible object storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	CDNBaseURL      string
	KeyPrefix       string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3 struct {
	client putObjectAPI
	cfg    Config
	logger *slog.Logger
	newKey func() string
}

// NewS3 builds the client from the default AWS chain, with static keys and
// a custom endpoint (LocalStack, MinIO) when configured.
func NewS3(ctx context.Context, cfg Config, logger *slog.Logger) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3(client, cfg, logger), nil
}

func newS3(client putObjectAPI, cfg Config, logger *slog.Logger) *S3 {
	return &S3{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "upload"),
		newKey: uuid.NewString,
	}
}

// Upload stores body under "<prefix>/<uuid>" and returns its public URL.
func (u *S3) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error) {
	key := u.cfg.KeyPrefix + "/" + u.newKey()

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	u.logger.Info("file uploaded", "key", key, "filename", filename, "size", size)
	return u.objectURL(key), nil
}

func (u *S3) objectURL(key string) string {
	if u.cfg.CDNBaseURL != "" {
		return strings.TrimRight(u.cfg.CDNBaseURL, "/") + "/" + key
	}
	if u.cfg.Endpoint != "" {
		return strings.TrimRight(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket + "/" + key
	}
	return (&url.URL{
		Scheme: "https",
		Host:   fmt.Sprintf("%s.s3.%s.amazonaws.com", u.cfg.Bucket, u.cfg.Region),
		Path:   "/" + key,
	}).String()
}
