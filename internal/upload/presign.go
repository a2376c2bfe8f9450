// Package upload issues presigned S3 POST policies so clients can upload meal
// images straight to the bucket.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/config"
)

const DefaultContentType = "image/jpeg"

var ErrInvalidKey = errors.New("invalid object key")

// PresignedPost is a browser-style form upload: POST Fields plus the file to URL.
type PresignedPost struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

type Presigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (*PresignedPost, error)
}

// S3Presigner signs POST policies against an S3-compatible endpoint.
type S3Presigner struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

var _ Presigner = (*S3Presigner)(nil)

func NewS3Presigner(cfg config.StorageConfig) (*S3Presigner, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Presigner{client: client, bucket: bucket, expiry: expiry}, nil
}

// PresignUpload returns a POST policy that only accepts key with the given content type.
func (p *S3Presigner) PresignUpload(ctx context.Context, key, contentType string) (*PresignedPost, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if contentType = strings.TrimSpace(contentType); contentType == "" {
		contentType = DefaultContentType
	}

	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(p.bucket); err != nil {
		return nil, fmt.Errorf("set policy bucket: %w", err)
	}
	if err := policy.SetKey(key); err != nil {
		return nil, fmt.Errorf("set policy key: %w", err)
	}
	if err := policy.SetContentType(contentType); err != nil {
		return nil, fmt.Errorf("set policy content type: %w", err)
	}
	if err := policy.SetExpires(time.Now().UTC().Add(p.expiry)); err != nil {
		return nil, fmt.Errorf("set policy expiry: %w", err)
	}

	u, fields, err := p.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("presign post policy: %w", err)
	}
	return &PresignedPost{URL: u.String(), Fields: fields}, nil
}
