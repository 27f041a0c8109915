// Package objectstore issues signed upload URLs for report photos. Clients
// PUT the file directly to the bucket; the API never proxies the bytes.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotConfigured is returned by New when no bucket is set.
var ErrNotConfigured = errors.New("object store not configured")

// Signer issues signed upload URLs.
type Signer interface {
	SignUpload(ctx context.Context, key, contentType string) (*SignedUpload, error)
}

// SignedUpload is a one-shot upload grant for a single object key.
type SignedUpload struct {
	Bucket    string    `json:"bucket"`
	Path      string    `json:"path"`
	SignedURL string    `json:"signedUrl"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"-"`
}

// Options configures an S3-compatible bucket. Endpoint is optional and
// selects path-style addressing, which MinIO and most self-hosted stores
// need.
type Options struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	URLTTL        time.Duration
}

type presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Signer presigns PUT requests against an S3-compatible bucket.
type S3Signer struct {
	opts      Options
	presigner presigner
	now       func() time.Time
}

// New builds an S3Signer. Static credentials are used when AccessKey is
// set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, opts Options) (*S3Signer, error) {
	if opts.Bucket == "" {
		return nil, ErrNotConfigured
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = 15 * time.Minute
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Signer{
		opts:      opts,
		presigner: s3.NewPresignClient(client),
		now:       time.Now,
	}, nil
}

// SignUpload presigns a PUT of key with the given content type.
func (s *S3Signer) SignUpload(ctx context.Context, key, contentType string) (*SignedUpload, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.opts.URLTTL))
	if err != nil {
		return nil, fmt.Errorf("presign upload %s: %w", key, err)
	}

	return &SignedUpload{
		Bucket:    s.opts.Bucket,
		Path:      key,
		SignedURL: req.URL,
		PublicURL: s.PublicURL(key),
		ExpiresAt: s.now().Add(s.opts.URLTTL),
	}, nil
}

// PublicURL is where key can be read once uploaded.
func (s *S3Signer) PublicURL(key string) string {
	escaped := escapeKey(key)
	switch {
	case s.opts.PublicBaseURL != "":
		return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + escaped
	case s.opts.Endpoint != "":
		return strings.TrimRight(s.opts.Endpoint, "/") + "/" + url.PathEscape(s.opts.Bucket) + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, escaped)
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
