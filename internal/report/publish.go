// internal/report/publish.go
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads report files to a bucket.
type Publisher struct {
	client objectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// NewPublisher builds a path-style client with static credentials.
func NewPublisher(ctx context.Context, cfg S3Config, logger *zap.Logger) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("publish: no bucket configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	return &Publisher{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger.Named("publish")}, nil
}

func (p *Publisher) key(file string) string {
	return path.Join(strings.Trim(p.prefix, "/"), filepath.Base(file))
}

// Publish uploads every file under the configured prefix and returns the
// object keys.
func (p *Publisher) Publish(ctx context.Context, files ...string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return keys, fmt.Errorf("read %s: %w", f, err)
		}
		key := p.key(f)
		_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType(f)),
		})
		if err != nil {
			return keys, fmt.Errorf("put %s: %w", key, err)
		}
		p.logger.Info("report published", zap.String("bucket", p.bucket), zap.String("key", key))
		keys = append(keys, key)
	}
	return keys, nil
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
