package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Region     string
	Bucket     string
	Endpoint   string // MinIO or another S3-compatible endpoint
	PublicRead bool
	PresignTTL time.Duration
}

type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	conf     S3Config
}

func NewS3Store(ctx context.Context, conf S3Config) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(conf.Region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
			o.UsePathStyle = true
		}
	})
	if conf.PresignTTL <= 0 {
		conf.PresignTTL = 10 * time.Minute
	}
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		conf:     conf,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.conf.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	if s.conf.PublicRead {
		return s.publicURL(key), nil
	}
	return "", nil
}

func (s *S3Store) publicURL(key string) string {
	escaped := url.PathEscape(key)
	if s.conf.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.conf.Endpoint, s.conf.Bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.conf.Bucket, s.conf.Region, escaped)
}

// URL returns the public address for public buckets and a presigned GET
// otherwise.
func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	if s.conf.PublicRead {
		return s.publicURL(key), nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.conf.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.conf.PresignTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
