package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config carries the settings for the S3 avatar backend.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Store keeps avatar blobs in an S3-compatible bucket (MinIO works too,
// hence path-style addressing and the custom endpoint).
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds the client and verifies the bucket is reachable.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket not set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("storage: head bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Save uploads the blob under avatars/<uuid><ext> and returns the same
// public URL shape the local backend uses, so account records are portable
// between backends.
func (s *S3Store) Save(ctx context.Context, r io.Reader, ext string) (string, error) {
	name := uuid.New().String() + sanitizeExt(ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String("avatars/" + name),
		Body:   r,
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}

	return URLPrefix + name, nil
}

// Delete removes the object for url. Unknown URLs and already-deleted
// objects are ignored.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	name, ok := keyFromURL(url)
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String("avatars/" + name),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
