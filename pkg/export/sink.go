package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// FileName is the fixed name every export is saved under
const FileName = "planner.png"

// Sink delivers a rendered image and returns where it ended up
type Sink interface {
	Save(ctx context.Context, data []byte) (string, error)
}

// FileSink writes the image into Dir, replacing the previous export
type FileSink struct {
	Dir string
}

func (s FileSink) Save(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(s.Dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}
	return path, nil
}

// PutObjectAPI is the part of the S3 client S3Sink uses
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the image under planners/<uuid>/planner.png
type S3Sink struct {
	client PutObjectAPI
	bucket string
	region string
}

func NewS3Sink(client PutObjectAPI, bucket, region string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, region: region}
}

// NewS3SinkFromEnv builds the client from the default AWS credential chain
func NewS3SinkFromEnv(ctx context.Context, bucket, region string) (*S3Sink, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3Sink(s3.NewFromConfig(cfg), bucket, region), nil
}

func (s *S3Sink) Save(ctx context.Context, data []byte) (string, error) {
	key := fmt.Sprintf("planners/%s/%s", uuid.New().String(), FileName)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
