package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Service stores blobs in an S3 compatible bucket (Cloudflare R2 in
// production) and exposes them under a public base URL.
type S3Service struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string // empty for AWS
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

func NewS3Service(ctx context.Context, o S3Options) (*S3Service, error) {
	if o.Bucket == "" {
		return nil, fmt.Errorf("R2_BUCKET is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return &S3Service{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    o.Bucket,
		publicURL: strings.TrimRight(o.PublicURL, "/"),
	}, nil
}

// Upload stores body under prefix + uuid + original extension and returns the key.
func (s *S3Service) Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error) {
	key := NewBlobKey(prefix, filepath.Ext(originalFilename))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// PresignedPutURL lets a browser upload directly to key until expiry.
func (s *S3Service) PresignedPutURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(po *s3.PresignOptions) {
		po.Expires = expiry
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Service) PublicURL(key string) string {
	return s.publicURL + "/" + key
}

func (s *S3Service) KeyFromURL(rawURL string) string {
	return KeyFromURL(s.publicURL, rawURL)
}

// KeyFromURL derives the object key from a URL served under publicBase. URLs
// on any other host or path prefix yield "", so they never name one of our
// objects.
func KeyFromURL(publicBase, rawURL string) string {
	base := strings.TrimRight(strings.TrimSpace(publicBase), "/")
	rawURL = strings.TrimSpace(rawURL)
	if base == "" || !strings.HasPrefix(rawURL, base+"/") {
		return ""
	}
	rest := rawURL[len(base)+1:]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	key, err := url.PathUnescape(strings.TrimLeft(rest, "/"))
	if err != nil {
		return ""
	}
	return key
}

// NewBlobKey returns prefix/uuid.ext. ext may be empty or start with a dot.
func NewBlobKey(prefix, ext string) string {
	prefix = strings.Trim(prefix, "/")
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	key := uuid.NewString() + strings.ToLower(ext)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
