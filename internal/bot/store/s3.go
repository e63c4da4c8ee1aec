package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"panterabot/internal/bot/settings"
)

// S3Config describes an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// NewS3Client builds a client for an S3-compatible service.
func NewS3Client(cfg S3Config) (*s3.S3, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}
	return s3.New(sess), nil
}

// S3 keeps the settings blob as one JSON object.
type S3 struct {
	client s3iface.S3API
	bucket string
	key    string
}

// NewS3 creates an S3-backed store for a profile.
func NewS3(client s3iface.S3API, bucket, profile string) *S3 {
	return &S3{client: client, bucket: bucket, key: Key(profile) + ".json"}
}

// Load reads the stored settings.
func (s *S3) Load(ctx context.Context) (settings.Config, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return settings.Config{}, ErrNotFound
		}
		return settings.Config{}, fmt.Errorf("s3 get %s: %w", s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return settings.Config{}, fmt.Errorf("s3 read %s: %w", s.key, err)
	}
	return decode(data)
}

// Save overwrites the stored settings.
func (s *S3) Save(ctx context.Context, cfg settings.Config) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", s.key, err)
	}
	return nil
}
