package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3PutClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3TraceArchive implements TraceArchive backed by S3. Keys are joined
// under an optional prefix.
type S3TraceArchive struct {
	bucket string
	prefix string
	s3     s3PutClient
}

func NewS3TraceArchive(s3Client s3PutClient, bucket, prefix string) *S3TraceArchive {
	return &S3TraceArchive{
		bucket: bucket,
		prefix: prefix,
		s3:     s3Client,
	}
}

func (a *S3TraceArchive) Store(ctx context.Context, key string, data []byte) error {
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put trace object to S3: %w", err)
	}
	return nil
}
