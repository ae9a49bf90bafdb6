package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

const (
	// DefaultURLExpiry is how long signed read URLs stay valid.
	DefaultURLExpiry = 900 * time.Second

	// MaxDeleteBatch is the number of keys S3 accepts per DeleteObjects call.
	MaxDeleteBatch = 1000
)

// API is the subset of *s3.Client used by Bucket.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Presigner is the subset of *s3.PresignClient used by Bucket.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Object is the content written by Put.
type Object struct {
	Data        []byte
	ContentType string
}

// Config holds Bucket settings.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// URLExpiry is the lifetime of signed URLs.
	// Default: 900s
	URLExpiry time.Duration
}

// Bucket is an S3-backed blob store.
type Bucket struct {
	client    API
	presigner Presigner
	config    Config
}

// New creates a Bucket.
func New(client API, presigner Presigner, config Config) *Bucket {
	if config.URLExpiry <= 0 {
		config.URLExpiry = DefaultURLExpiry
	}
	return &Bucket{client: client, presigner: presigner, config: config}
}

// Put writes obj under prefix and returns its generated key.
func (b *Bucket) Put(ctx context.Context, prefix string, obj Object) (string, error) {
	if !strings.HasSuffix(prefix, "/") {
		return "", ErrInvalidPrefix
	}
	if len(obj.Data) == 0 {
		return "", ErrEmptyObject
	}

	key := prefix + uuid.NewString()
	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.config.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Data),
		ContentLength: aws.Int64(int64(len(obj.Data))),
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// List returns every key under prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	return b.list(ctx, prefix, time.Time{})
}

// ListBefore returns the keys under prefix last modified before cutoff.
// Objects the listing reports without a modification time are included.
func (b *Bucket) ListBefore(ctx context.Context, prefix string, cutoff time.Time) ([]string, error) {
	return b.list(ctx, prefix, cutoff)
}

func (b *Bucket) list(ctx context.Context, prefix string, cutoff time.Time) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.config.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if !cutoff.IsZero() && obj.LastModified != nil && !obj.LastModified.Before(cutoff) {
				continue
			}
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// SignedURL returns a time-limited read URL for key.
func (b *Bucket) SignedURL(ctx context.Context, key string) (string, error) {
	req, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(b.config.URLExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// DeleteMany removes keys in batches. Every batch is attempted even when an
// earlier one fails; keys that could not be removed are returned in a
// *DeleteError. Deleting a missing key is not an error.
func (b *Bucket) DeleteMany(ctx context.Context, keys []string) error {
	keys = dedupe(keys)
	if len(keys) == 0 {
		return nil
	}

	var failed []string
	var errs []error
	for start := 0; start < len(keys); start += MaxDeleteBatch {
		end := min(start+MaxDeleteBatch, len(keys))
		batch := keys[start:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for i, key := range batch {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.config.Bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			failed = append(failed, batch...)
			errs = append(errs, fmt.Errorf("delete batch %d: %w", start/MaxDeleteBatch, err))
			continue
		}
		for _, e := range out.Errors {
			failed = append(failed, aws.ToString(e.Key))
			errs = append(errs, fmt.Errorf("delete %s: %s %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
	}

	if len(failed) > 0 {
		return &DeleteError{Keys: failed, Err: errors.Join(errs...)}
	}
	return nil
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
