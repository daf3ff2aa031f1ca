package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader ships completed JSONL files to S3-compatible object storage.
// Optional: a nil Uploader is a no-op.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// UploaderOptions configure the object-storage target. Endpoint may point
// at any S3-compatible service (MinIO, Tigris, ...).
type UploaderOptions struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewUploader builds the S3 client with static credentials.
func NewUploader(logger *slog.Logger, opts UploaderOptions) (*Uploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("uploader: bucket required")
	}
	if opts.Region == "" {
		opts.Region = "auto"
	}
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &Uploader{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		logger: logger.With("component", "uploader"),
	}, nil
}

// Upload stores one local file under prefix/basename.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	if u == nil {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	key := filepath.Base(path)
	if u.prefix != "" {
		key = u.prefix + "/" + key
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	u.logger.Info("uploaded output file", "bucket", u.bucket, "key", key)
	return nil
}
