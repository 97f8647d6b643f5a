package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3GetObjectAPI is the part of the S3 client the fetcher needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates the flag document.
type S3Config struct {
	Bucket         string `env:"FLAGD_S3_BUCKET"`
	Key            string `env:"FLAGD_S3_KEY" envDefault:"flags.json"`
	Region         string `env:"FLAGD_S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"FLAGD_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"FLAGD_S3_SECRET_KEY"`
	Endpoint       string `env:"FLAGD_S3_ENDPOINT"`
	ForcePathStyle bool   `env:"FLAGD_S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// S3Fetcher reads the flag document from an S3 or S3-compatible bucket.
type S3Fetcher struct {
	client S3GetObjectAPI
	bucket string
	key    string
}

// S3Option configures NewS3Fetcher.
type S3Option func(*s3Options)

type s3Options struct {
	client        S3GetObjectAPI
	configOptions []func(*config.LoadOptions) error
}

// WithS3Client uses a pre-built client, typically a mock.
func WithS3Client(c S3GetObjectAPI) S3Option {
	return func(o *s3Options) { o.client = c }
}

// WithS3ConfigOption adds an AWS config load option.
func WithS3ConfigOption(opt func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) { o.configOptions = append(o.configOptions, opt) }
}

// NewS3Fetcher builds the AWS client from cfg unless one is injected.
func NewS3Fetcher(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Fetcher, error) {
	if cfg.Bucket == "" || cfg.Key == "" || cfg.Region == "" {
		return nil, ErrInvalidS3Config
	}

	o := &s3Options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		loadOpts = append(loadOpts, o.configOptions...)

		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &S3Fetcher{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return nil, mapS3Error(err)
	}
	defer out.Body.Close()
	return io.ReadAll(io.LimitReader(out.Body, maxRemoteBody))
}

func mapS3Error(err error) error {
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsk) || errors.As(err, &nsb) {
		return errors.Join(ErrRemoteNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return errors.Join(ErrRemoteNotFound, err)
		}
		return fmt.Errorf("s3 get object (code: %s): %w", apiErr.ErrorCode(), err)
	}
	return err
}
