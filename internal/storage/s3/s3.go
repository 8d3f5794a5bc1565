// Package s3 implements image storage backed by an S3-compatible bucket,
// such as AWS S3 or MinIO.
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Titansingh/ProfessionalBackend/internal/storage"
)

// Config holds the settings for the S3 storage backend.
type Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// Endpoint overrides the AWS endpoint for S3-compatible servers
	// (e.g. http://minio:9000). Empty means real AWS.
	Endpoint string

	// PublicBaseURL is the base under which stored objects are reachable,
	// e.g. https://cdn.example.com. When empty, URLs are derived from the
	// endpoint and bucket.
	PublicBaseURL string
}

// Storage implements storage.Storage on top of an S3 bucket.
type Storage struct {
	client  *awss3.Client
	bucket  string
	baseURL string
}

// New builds an S3 client from static credentials and returns the storage.
func New(ctx context.Context, cfg Config) (*Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
	}, nil
}

// Put uploads the object and returns its public URL.
func (s *Storage) Put(ctx context.Context, obj *storage.Object) (string, error) {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          obj.Body,
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(obj.Size),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", obj.Key, err)
	}

	return s.objectURL(obj.Key), nil
}

// Delete removes the object from the bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL for a key without touching the bucket.
func (s *Storage) URL(_ context.Context, key string) (string, error) {
	return s.objectURL(key), nil
}

func (s *Storage) objectURL(key string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}
