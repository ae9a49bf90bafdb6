package blob_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/storefront/blob"
)

type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	ctypes    map[string]string
	modified  map[string]time.Time
	pageSize  int
	putErr    error
	listErr   error
	deleteErr error
	failKeys  map[string]bool
	deletes   [][]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:  make(map[string][]byte),
		ctypes:   make(map[string]string),
		modified: make(map[string]time.Time),
		failKeys: make(map[string]bool),
		pageSize: 1000,
	}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.ctypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		fmt.Sscanf(*in.ContinuationToken, "%d", &start)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		obj := types.Object{Key: aws.String(k)}
		if ts, ok := f.modified[k]; ok {
			obj.LastModified = aws.Time(ts)
		}
		out.Contents = append(out.Contents, obj)
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(fmt.Sprint(end))
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var batch []string
	for _, obj := range in.Delete.Objects {
		batch = append(batch, aws.ToString(obj.Key))
	}
	f.deletes = append(f.deletes, batch)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}

	out := &s3.DeleteObjectsOutput{}
	for _, k := range batch {
		if f.failKeys[k] {
			out.Errors = append(out.Errors, types.Error{Key: aws.String(k), Code: aws.String("AccessDenied"), Message: aws.String("denied")})
			continue
		}
		delete(f.objects, k)
	}
	return out, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (p *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	p.expires = opts.Expires
	url := fmt.Sprintf("https://%s.s3.amazonaws.com/%s?X-Amz-Expires=%d", aws.ToString(in.Bucket), aws.ToString(in.Key), int(opts.Expires.Seconds()))
	return &v4.PresignedHTTPRequest{URL: url, Method: "GET"}, nil
}

func newBucket(api *fakeS3) (*blob.Bucket, *fakePresigner) {
	p := &fakePresigner{}
	return blob.New(api, p, blob.Config{Bucket: "shop-assets"}), p
}

func TestPut(t *testing.T) {
	api := newFakeS3()
	b, _ := newBucket(api)

	key, err := b.Put(context.Background(), blob.ProductPrefix("s1", "SKU-1"), blob.Object{Data: []byte("png"), ContentType: "image/png"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "stores/s1/products/SKU-1/"))
	assert.True(t, blob.Within(key, blob.StorePrefix("s1")))
	assert.Equal(t, []byte("png"), api.objects[key])
	assert.Equal(t, "image/png", api.ctypes[key])
}

func TestPut_Validation(t *testing.T) {
	b, _ := newBucket(newFakeS3())

	_, err := b.Put(context.Background(), "stores/s1/logo", blob.Object{Data: []byte("x")})
	assert.ErrorIs(t, err, blob.ErrInvalidPrefix)

	_, err = b.Put(context.Background(), blob.LogoPrefix("s1"), blob.Object{})
	assert.ErrorIs(t, err, blob.ErrEmptyObject)
}

func TestPut_ClientError(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("slow down")
	b, _ := newBucket(api)

	_, err := b.Put(context.Background(), blob.LogoPrefix("s1"), blob.Object{Data: []byte("x")})
	assert.ErrorIs(t, err, api.putErr)
}

func TestList_Paginates(t *testing.T) {
	api := newFakeS3()
	api.pageSize = 2
	for i := 0; i < 5; i++ {
		api.objects[fmt.Sprintf("stores/s1/products/p1/%d", i)] = []byte("x")
	}
	api.objects["stores/s2/logo/a"] = []byte("x")
	b, _ := newBucket(api)

	keys, err := b.List(context.Background(), blob.StorePrefix("s1"))
	require.NoError(t, err)
	assert.Len(t, keys, 5)
}

func TestListBefore_SkipsNewerObjects(t *testing.T) {
	api := newFakeS3()
	cutoff := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	api.objects["stores/s1/logo/old"] = []byte("x")
	api.modified["stores/s1/logo/old"] = cutoff.Add(-time.Minute)
	api.objects["stores/s1/logo/new"] = []byte("x")
	api.modified["stores/s1/logo/new"] = cutoff.Add(time.Minute)
	api.objects["stores/s1/products/p1/undated"] = []byte("x")
	b, _ := newBucket(api)

	keys, err := b.ListBefore(context.Background(), blob.StorePrefix("s1"), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"stores/s1/logo/old", "stores/s1/products/p1/undated"}, keys)
}

func TestSignedURL(t *testing.T) {
	b, p := newBucket(newFakeS3())

	url, err := b.SignedURL(context.Background(), "stores/s1/logo/abc")
	require.NoError(t, err)
	assert.Contains(t, url, "stores/s1/logo/abc")
	assert.Equal(t, 900*time.Second, p.expires)
}

func TestDeleteMany_Batches(t *testing.T) {
	api := newFakeS3()
	b, _ := newBucket(api)

	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("stores/s1/products/p/%d", i)
		api.objects[keys[i]] = []byte("x")
	}
	keys = append(keys, keys[0], "")

	require.NoError(t, b.DeleteMany(context.Background(), keys))
	require.Len(t, api.deletes, 3)
	assert.Len(t, api.deletes[0], 1000)
	assert.Len(t, api.deletes[2], 500)
	assert.Empty(t, api.objects)
}

func TestDeleteMany_Empty(t *testing.T) {
	api := newFakeS3()
	b, _ := newBucket(api)

	require.NoError(t, b.DeleteMany(context.Background(), nil))
	assert.Empty(t, api.deletes)
}

func TestDeleteMany_PartialFailure(t *testing.T) {
	api := newFakeS3()
	api.failKeys["b"] = true
	b, _ := newBucket(api)

	err := b.DeleteMany(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Equal(t, []string{"b"}, blob.FailedKeys(err))
}

func TestDeleteMany_RequestFailure(t *testing.T) {
	api := newFakeS3()
	api.deleteErr = errors.New("connection reset")
	b, _ := newBucket(api)

	err := b.DeleteMany(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.deleteErr)
	assert.ElementsMatch(t, []string{"a", "b"}, blob.FailedKeys(err))
}

func TestKeyPrefixes(t *testing.T) {
	assert.Equal(t, "stores/s1/", blob.StorePrefix("s1"))
	assert.Equal(t, "stores/s1/logo/", blob.LogoPrefix("s1"))
	assert.Equal(t, "stores/s1/products/p1/", blob.ProductPrefix("s1", "p1"))
	assert.False(t, blob.Within("stores/s1/", "stores/s1/"))
	assert.False(t, blob.Within("stores/s10/logo/x", "stores/s1/"))
}
