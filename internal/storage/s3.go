// Package storage uploads rendered reels to an S3-compatible bucket so the
// publishing platform can fetch them over a public URL.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/blacktop/reelpost/internal/logutil"
)

// Config describes the bucket. Leaving Bucket or the key pair empty
// disables uploads.
type Config struct {
	Endpoint      string
	PublicBaseURL string
	Region        string
	Bucket        string
	AccessKeyID   string
	SecretKey     string
	UsePathStyle  bool
	PublicRead    bool
	KeyPrefix     string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage uploads videos to S3-compatible storage.
type S3Storage struct {
	client   objectPutter
	cfg      Config
	disabled bool
}

// NewS3Storage builds the client. A missing bucket or credentials yields a
// disabled storage rather than an error: the pipeline still renders locally.
func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.AccessKeyID = strings.TrimSpace(cfg.AccessKeyID)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")

	storage := &S3Storage{cfg: cfg}
	if cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" {
		logutil.Debugf("REELPOST_S3_BUCKET or credentials not set; uploads disabled")
		storage.disabled = true
		return storage, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	storage.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return storage, nil
}

// Enabled reports whether uploads will happen.
func (s *S3Storage) Enabled() bool { return !s.disabled }

// UploadVideo stores the mp4 at filePath under name and returns its public
// URL, or "" when storage is disabled.
func (s *S3Storage) UploadVideo(ctx context.Context, filePath, name string) (string, error) {
	if s.disabled {
		return "", nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat video: %w", err)
	}

	key := s.key(name)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("video/mp4"),
	}
	if s.cfg.PublicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	start := time.Now()
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	logutil.Debugf("uploaded s3://%s/%s (%d bytes) in %s", s.cfg.Bucket, key, info.Size(), time.Since(start).Round(time.Millisecond))

	return s.PublicURL(key), nil
}

func (s *S3Storage) key(name string) string {
	prefix := strings.Trim(s.cfg.KeyPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// PublicURL returns the URL a third party can fetch key from.
func (s *S3Storage) PublicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	switch {
	case s.cfg.PublicBaseURL != "":
		return s.cfg.PublicBaseURL + "/" + escaped
	case s.cfg.Endpoint != "" && s.cfg.UsePathStyle:
		return s.cfg.Endpoint + "/" + s.cfg.Bucket + "/" + escaped
	case s.cfg.Endpoint != "":
		u, err := url.Parse(s.cfg.Endpoint)
		if err == nil && u.Host != "" {
			return u.Scheme + "://" + s.cfg.Bucket + "." + u.Host + "/" + escaped
		}
		return s.cfg.Endpoint + "/" + s.cfg.Bucket + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, escaped)
	}
}
