package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWSOptions configures an AWSPresigner.
type AWSOptions struct {
	// Endpoint overrides the regional AWS endpoint when Host is set. Leave
	// it zero to talk to AWS S3 itself.
	Endpoint        Endpoint
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// AWSPresigner signs URLs with the AWS SDK's presign client.
type AWSPresigner struct {
	client *s3.PresignClient
	bucket string
}

// NewAWSPresigner creates an AWSPresigner signing with static credentials.
func NewAWSPresigner(opts AWSOptions) (*AWSPresigner, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket must not be empty")
	}

	o := s3.Options{
		Region:      opts.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")),
	}
	if opts.Endpoint.Host != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint.URL())
		o.UsePathStyle = true
	}

	return &AWSPresigner{
		client: s3.NewPresignClient(s3.New(o)),
		bucket: opts.Bucket,
	}, nil
}

// PresignPut signs a PUT carrying the content headers and metadata in req.
func (p *AWSPresigner) PresignPut(ctx context.Context, req *PutRequest) (string, error) {
	if err := checkExpiry(req.Expires); err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(p.bucket),
		Key:      aws.String(req.Key),
		Metadata: req.Metadata,
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}
	if req.ContentLength > 0 {
		input.ContentLength = aws.Int64(req.ContentLength)
	}

	out, err := p.client.PresignPutObject(ctx, input, s3.WithPresignExpires(req.Expires))
	if err != nil {
		return "", fmt.Errorf("storage: presign PUT %q: %w", req.Key, err)
	}
	return out.URL, nil
}

// PresignGet signs a GET of key.
func (p *AWSPresigner) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := checkExpiry(expires); err != nil {
		return "", err
	}

	out, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("storage: presign GET %q: %w", key, err)
	}
	return out.URL, nil
}
