package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrSourceMissing is returned by a Source whose dataset does not exist.
var ErrSourceMissing = errors.New("snapshot dataset not found")

// Source opens the raw CSV snapshot.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads the snapshot from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	return f, nil
}

func (s FileSource) String() string {
	return s.Path
}

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the snapshot from an S3 object, for deployments without a writable disk.
type S3Source struct {
	Client S3Client
	Bucket string
	Key    string
}

func (s S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("empty bucket name")
	}

	result, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, s)
		}
		return nil, fmt.Errorf("getting s3 object %s: %w", s, err)
	}
	return result.Body, nil
}

func (s S3Source) String() string {
	return "s3://" + s.Bucket + "/" + s.Key
}
