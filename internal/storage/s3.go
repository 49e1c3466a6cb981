package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Options configures the S3-compatible artifact store. Endpoint is
// optional and points at MinIO or another compatible service; when empty
// the SDK resolves the regional AWS endpoint.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Store stores artifacts in a single bucket. Path-style addressing is
// forced so bucket names never have to be DNS-resolvable, which keeps
// MinIO setups working out of the box.
type S3Store struct {
	svc    *s3.S3
	bucket string
}

var _ ArtifactStore = (*S3Store)(nil)

func NewS3Store(opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	cfg := aws.NewConfig().
		WithRegion(opts.Region).
		WithS3ForcePathStyle(true)
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint)
	}
	if opts.AccessKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, ""))
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 store: create session: %w", err)
	}
	return &S3Store{svc: s3.New(sess), bucket: opts.Bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.svc.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("s3 store: put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) PresignedGetURL(key string, ttl time.Duration) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	urlStr, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("s3 store: presign %s: %w", key, err)
	}
	return urlStr, nil
}
