package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds connection settings for an S3 or S3-compatible bucket.
// AccessKey and SecretKey may be left empty to fall back to the ambient AWS
// credential chain (environment, instance profile).
type S3Config struct {
	Bucket         string
	Region         string
	AccessKey      string
	SecretKey      string
	Endpoint       string
	ForcePathStyle bool
}

// Validate checks that the config can produce a working client.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("publish: s3 bucket is required")
	}
	if c.Region == "" && c.Endpoint == "" {
		return fmt.Errorf("publish: s3 region or endpoint is required")
	}
	return nil
}

// s3API is the slice of the S3 client the publisher uses. Narrowed to an
// interface so tests can substitute a stub.
type s3API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, opts ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

// S3Publisher implements Publisher on top of Amazon S3.
type S3Publisher struct {
	client s3API
	bucket string
}

var _ Publisher = (*S3Publisher)(nil)

// NewS3Publisher creates a publisher for the configured bucket.
func NewS3Publisher(ctx context.Context, cfg S3Config) (*S3Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("publish: load aws config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Publisher{
		client: awss3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Check verifies the configured bucket is reachable with the current
// credentials. Used as a readiness probe.
func (p *S3Publisher) Check(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(p.bucket),
	})
	if err != nil {
		return fmt.Errorf("publish: head bucket %q: %w", p.bucket, err)
	}
	return nil
}

// Publish uploads the file at localPath under a fresh key derived from key
// and returns the artifact's s3:// address. The local file is removed after
// the upload succeeds; on upload failure it is left in place. A failure to
// remove the local file does not fail the publish, since the upload contract
// is already satisfied and a retried publish would orphan a duplicate object.
func (p *S3Publisher) Publish(ctx context.Context, localPath string, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("publish: open artifact: %w", err)
	}
	defer f.Close()

	objKey := key.objectKey(time.Now())
	_, err = p.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(objKey),
		Body:        f,
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("publish: s3 upload: %w", err)
	}

	f.Close()
	if err := os.Remove(localPath); err != nil {
		slog.Warn("published artifact could not be removed locally",
			"path", localPath, "error", err)
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, objKey), nil
}
