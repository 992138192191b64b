package writer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "krakenflow/config"
)

// Uploader stores one object.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, metadata map[string]string) error
}

type s3Uploader struct {
	client *s3.Client
	bucket string
}

// NewS3Uploader builds an S3 client from the storage config. Static
// credentials take precedence over the default chain.
func NewS3Uploader(ctx context.Context, cfg appconfig.S3Config) (Uploader, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &s3Uploader{client: client, bucket: cfg.Bucket}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}
