package glyph

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Response metadata for rendered glyphs. A hash always names the same SVG.
const (
	ContentType  = "image/svg+xml"
	CacheControl = "public, max-age=31536000, immutable"
)

// Publisher stores rendered glyphs somewhere outside the database.
type Publisher interface {
	Publish(ctx context.Context, hash, svg string) error
}

// NopPublisher is used when no bucket is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string) error { return nil }

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Config addresses an S3-compatible bucket, MinIO included.
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
}

type S3Publisher struct {
	client *s3.Client
	bucket string
}

func NewS3Publisher(ctx context.Context, c S3Config) (*S3Publisher, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Publisher{client: client, bucket: c.Bucket}, nil
}

// ObjectKey is the bucket key for a glyph hash.
func ObjectKey(hash string) string {
	return "glyphs/" + strings.ToLower(hash) + ".svg"
}

func (p *S3Publisher) Publish(ctx context.Context, hash, svg string) error {
	_, err := putObject(p.client, ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(ObjectKey(hash)),
		Body:         strings.NewReader(svg),
		ContentType:  aws.String(ContentType),
		CacheControl: aws.String(CacheControl),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", ObjectKey(hash), err)
	}
	return nil
}
