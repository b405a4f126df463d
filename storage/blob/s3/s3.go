package s3blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/storage/blob"
)

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // S3 compatible services (MinIO, ...)
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	URLPrefix       string // public URL of the bucket; derived from Endpoint/Region when empty
}

// Store keeps uploaded files in an S3 bucket.
type Store struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	urlPrefix string
}

var _ course.FileStore = (*Store)(nil) // interface compliance check

func New(ctx context.Context, conf Config) (*Store, error) {
	if conf.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if conf.Region == "" {
		conf.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(conf.Region)}
	if conf.AccessKeyID != "" && conf.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.AccessKeyID, conf.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	var s3Opts []func(*s3.Options)
	if conf.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(conf.Endpoint)
			o.UsePathStyle = conf.UsePathStyle
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &Store{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    conf.Bucket,
		urlPrefix: urlPrefix(conf),
	}, nil
}

func urlPrefix(conf Config) string {
	switch {
	case conf.URLPrefix != "":
		return conf.URLPrefix
	case conf.Endpoint != "" && conf.UsePathStyle:
		return strings.TrimRight(conf.Endpoint, "/") + "/" + conf.Bucket
	case conf.Endpoint != "":
		return conf.Endpoint
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.Bucket, conf.Region)
	}
}

func (s *Store) Save(ctx context.Context, filename string, r io.Reader) (course.Upload, error) {
	contentType, body, err := blob.Sniff(r)
	if err != nil {
		return course.Upload{}, errors.Wrap(err, "reading upload")
	}

	key := blob.NewKey(filename, time.Now())
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return course.Upload{}, errors.Wrap(err, "uploading to S3")
	}
	return course.Upload{Key: key, URL: blob.URL(s.urlPrefix, key), ContentType: contentType}, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrap(err, "deleting from S3")
}
