// Package s3 mirrors artifacts into an S3 (or S3-compatible) bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/poiesic/docindex/artifact"
	"github.com/poiesic/docindex/core"
)

const uploadTimeout = 2 * time.Minute

// ErrMissingBucket is returned when no bucket is configured.
var ErrMissingBucket = errors.New("artifact bucket is required")

// Uploader is the subset of manager.Uploader used by Store.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Store is an artifact.Store writing objects under a key prefix.
type Store struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   *slog.Logger
}

var _ artifact.Store = (*Store)(nil)

type settings struct {
	region    string
	accessKey string
	secretKey string
	endpoint  string
	prefix    string
	uploader  Uploader
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*settings)

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(s *settings) { s.region = region }
}

// WithStaticCredentials uses fixed keys instead of the default chain.
func WithStaticCredentials(accessKey, secretKey string) Option {
	return func(s *settings) {
		s.accessKey = accessKey
		s.secretKey = secretKey
	}
}

// WithEndpoint targets an S3-compatible service with path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// WithPrefix places every object under prefix.
func WithPrefix(prefix string) Option {
	return func(s *settings) { s.prefix = strings.Trim(prefix, "/") }
}

// WithUploader replaces the SDK uploader, mainly for tests.
func WithUploader(u Uploader) Option {
	return func(s *settings) { s.uploader = u }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store for bucket. Without WithUploader it loads the AWS
// configuration from the environment.
func New(ctx context.Context, bucket string, opts ...Option) (*Store, error) {
	if bucket == "" {
		return nil, ErrMissingBucket
	}

	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	if s.uploader == nil {
		var loadOpts []func(*config.LoadOptions) error
		if s.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(s.region))
		}
		if s.accessKey != "" && s.secretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.accessKey, s.secretKey, ""),
			))
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if s.endpoint != "" {
				o.BaseEndpoint = aws.String(s.endpoint)
				o.UsePathStyle = true
			}
		})
		s.uploader = manager.NewUploader(client)
	}

	return &Store{
		uploader: s.uploader,
		bucket:   bucket,
		prefix:   s.prefix,
		logger:   s.logger.With("component", "s3-artifacts"),
	}, nil
}

// Key returns the object key for a store-relative name.
func (s *Store) Key(name string) string {
	name = strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *Store) put(ctx context.Context, name, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	key := s.Key(name)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", key, err)
	}
	s.logger.Debug("uploaded artifact", "bucket", s.bucket, "key", key, "bytes", len(data))
	return nil
}

func (s *Store) SaveText(ctx context.Context, relPath, text string) error {
	return s.put(ctx, relPath, "text/plain; charset=utf-8", []byte(text))
}

func (s *Store) SaveManifest(ctx context.Context, name string, records []core.ChunkRecord) error {
	data, err := artifact.EncodeManifest(records)
	if err != nil {
		return err
	}
	return s.put(ctx, name, "application/json", data)
}
