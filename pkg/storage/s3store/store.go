// Package s3store provides a storage.Storage that keeps one S3 object per
// item.
//
// Example usage:
//
//	client := s3store.NewClient(s3store.ClientOptions{
//	    Region:   "us-east-1",
//	    Endpoint: "http://localhost:9000",
//	})
//	store := s3store.New(client, "my-bucket", "params/")
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/vango-dev/paramstate/pkg/storage"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

// API is the subset of *s3.Client the store uses.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store keeps items as objects under a key prefix in one bucket.
type Store struct {
	client  API
	bucket  string
	prefix  string
	timeout time.Duration
}

var _ storage.Storage = (*Store)(nil)

// New creates a store.
//
// Parameters:
//   - client: S3 client (usually *s3.Client)
//   - bucket: S3 bucket name
//   - prefix: key prefix for items (e.g., "params/")
func New(client API, bucket, prefix string) *Store {
	return &Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: DefaultTimeout,
	}
}

// WithTimeout sets the per-request timeout.
func (s *Store) WithTimeout(d time.Duration) *Store {
	if d > 0 {
		s.timeout = d
	}
	return s
}

func (s *Store) objectKey(key string) *string {
	return aws.String(s.prefix + key)
}

// GetItem implements storage.Storage.
func (s *Store) GetItem(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.objectKey(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("s3 get %q failed: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, fmt.Errorf("s3 read %q failed: %w", key, err)
	}
	return string(data), true, nil
}

// SetItem implements storage.Storage.
func (s *Store) SetItem(key, value string) error {
	if key == "" {
		return storage.ErrEmptyKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         s.objectKey(key),
		Body:        bytes.NewReader([]byte(value)),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"updated-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put %q failed: %w", key, err)
	}
	return nil
}

// RemoveItem implements storage.Storage. S3 deletes are idempotent.
func (s *Store) RemoveItem(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.objectKey(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3 delete %q failed: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// UsePathStyle is required by most S3-compatible servers (MinIO, etc.).
	UsePathStyle bool
}

// NewClient builds an S3 client from static options. Credentials are only
// attached when an access key is given.
func NewClient(opts ClientOptions) *s3.Client {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.UsePathStyle,
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	if opts.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Source:          "paramstate",
		}
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(o)
}
