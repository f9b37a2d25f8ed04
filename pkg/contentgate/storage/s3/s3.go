// Package s3 provides an S3-compatible blob store that serves content files
// through presigned URLs.
package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mediakit/contentgate/pkg/contentgate"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PresignDuration int    // Duration in seconds for presigned URLs (default: 3600)
}

// Backend is an S3-compatible implementation of the contentgate.BlobStore
// interface
type Backend struct {
	presignClient   *s3.PresignClient
	bucket          string
	presignDuration time.Duration
}

// New creates a new S3-compatible storage backend
func New(config Config) (contentgate.BlobStore, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	if config.PresignDuration == 0 {
		config.PresignDuration = 3600 // 1 hour default
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		// Use default credential chain
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	// Custom endpoint for S3-compatible services (MinIO, etc.)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)

	return &Backend{
		presignClient:   s3.NewPresignClient(client),
		bucket:          config.Bucket,
		presignDuration: time.Duration(config.PresignDuration) * time.Second,
	}, nil
}

// GetDownloadURL returns a presigned URL for downloading a stored file
func (b *Backend) GetDownloadURL(ctx context.Context, fileRef, downloadFilename string) (string, error) {
	if fileRef == "" {
		return "", errors.New("file reference is required")
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(fileRef),
	}
	if downloadFilename != "" {
		disposition := fmt.Sprintf("attachment; filename=\"%s\"", downloadFilename)
		input.ResponseContentDisposition = aws.String(disposition)
	}

	result, err := b.presignClient.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = b.presignDuration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return result.URL, nil
}

// GetUploadURL returns a presigned URL for uploading a file
func (b *Backend) GetUploadURL(ctx context.Context, fileRef string) (string, error) {
	if fileRef == "" {
		return "", errors.New("file reference is required")
	}

	result, err := b.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(fileRef),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = b.presignDuration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}
	return result.URL, nil
}
