package storage

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures a MinioPresigner.
type MinioOptions struct {
	Endpoint        Endpoint
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// MinioPresigner signs URLs with minio-go. Because the region is always
// supplied up front, signing never needs a round trip to the bucket.
type MinioPresigner struct {
	client *minio.Client
	bucket string
}

// NewMinioPresigner creates a MinioPresigner using path-style addressing,
// which R2 and MinIO both accept.
func NewMinioPresigner(opts MinioOptions) (*MinioPresigner, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket must not be empty")
	}

	client, err := minio.New(opts.Endpoint.Host, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:       opts.Endpoint.Secure,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create S3 client: %w", err)
	}

	return &MinioPresigner{client: client, bucket: opts.Bucket}, nil
}

// PresignPut signs a PUT carrying the content headers and metadata in req.
func (p *MinioPresigner) PresignPut(ctx context.Context, req *PutRequest) (string, error) {
	if err := checkExpiry(req.Expires); err != nil {
		return "", err
	}

	u, err := p.client.PresignHeader(ctx, http.MethodPut, p.bucket, req.Key, req.Expires, nil, putHeaders(req))
	if err != nil {
		return "", fmt.Errorf("storage: presign PUT %q: %w", req.Key, err)
	}
	return u.String(), nil
}

// PresignGet signs a GET of key.
func (p *MinioPresigner) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := checkExpiry(expires); err != nil {
		return "", err
	}

	u, err := p.client.PresignedGetObject(ctx, p.bucket, key, expires, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign GET %q: %w", key, err)
	}
	return u.String(), nil
}

// EnsureBucket checks if the bucket exists, and creates it if it does not.
func (p *MinioPresigner) EnsureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", p.bucket, err)
		}
	}
	return nil
}

// putHeaders builds the headers a client must send with the signed PUT.
func putHeaders(req *PutRequest) http.Header {
	h := make(http.Header, len(req.Metadata)+2)
	if req.ContentType != "" {
		h.Set("Content-Type", req.ContentType)
	}
	if req.ContentLength > 0 {
		h.Set("Content-Length", strconv.FormatInt(req.ContentLength, 10))
	}
	for k, v := range req.Metadata {
		h.Set(MetaPrefix+k, v)
	}
	return h
}
