package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"live-trivia-service/internal/domain"
)

// PassthroughResolver accepts absolute http(s) URLs as they are.
type PassthroughResolver struct{}

func (PassthroughResolver) Resolve(_ context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if isHTTP(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("media reference %q is not a URL: %w", ref, domain.ErrInvalidInput)
}

// Config describes an S3-compatible object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	URLExpiry time.Duration
}

// ObjectResolver presigns object keys in an S3-compatible bucket. References
// may be "s3://bucket/key" or a bare key in the default bucket; absolute
// http(s) URLs pass through.
type ObjectResolver struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewObjectResolver(cfg Config) (*ObjectResolver, error) {
	// A fixed region keeps presigning local instead of probing the bucket location.
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 10 * time.Minute
	}
	return &ObjectResolver{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (r *ObjectResolver) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if isHTTP(ref) {
		return ref, nil
	}
	bucket, key, err := splitRef(ref, r.bucket)
	if err != nil {
		return "", err
	}
	u, err := r.client.PresignedGetObject(ctx, bucket, key, r.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

func splitRef(ref, defaultBucket string) (string, string, error) {
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return "", "", fmt.Errorf("media reference %q: %w", ref, domain.ErrInvalidInput)
		}
		return bucket, key, nil
	}
	key := strings.TrimPrefix(ref, "/")
	if key == "" || defaultBucket == "" {
		return "", "", fmt.Errorf("media reference %q: %w", ref, domain.ErrInvalidInput)
	}
	return defaultBucket, key, nil
}

func isHTTP(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
