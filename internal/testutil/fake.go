package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/datawarehouse/dw-parquet-go/internal/s3api"
)

type fakeObject struct {
	data         []byte
	contentType  string
	metadata     map[string]string
	etag         string
	lastModified time.Time
}

// FakeS3 is an in-memory S3 that keeps objects per bucket and lists them in
// lexicographic key order with continuation-token pagination.
type FakeS3 struct {
	// PageSize caps keys per ListObjectsV2 page when the request sets no
	// MaxKeys. Defaults to 1000.
	PageSize int32

	mu        sync.Mutex
	buckets   map[string]map[string]*fakeObject
	listCalls int
}

// NewFakeS3 returns a FakeS3 holding the given empty buckets.
func NewFakeS3(buckets ...string) *FakeS3 {
	f := &FakeS3{buckets: make(map[string]map[string]*fakeObject)}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]*fakeObject)
	}
	return f
}

// Seed stores data under bucket/key directly.
func (f *FakeS3) Seed(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objs, ok := f.buckets[bucket]
	if !ok {
		objs = make(map[string]*fakeObject)
		f.buckets[bucket] = objs
	}
	objs[key] = newFakeObject(data, "", nil)
}

// Object returns a copy of the stored bytes and whether the object exists.
func (f *FakeS3) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// ContentType returns the content type recorded for an object.
func (f *FakeS3) ContentType(bucket, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.buckets[bucket][key]; ok {
		return obj.contentType
	}
	return ""
}

// ListCalls returns how many ListObjectsV2 requests were served.
func (f *FakeS3) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func newFakeObject(data []byte, contentType string, metadata map[string]string) *fakeObject {
	sum := md5.Sum(data)
	return &fakeObject{
		data:         data,
		contentType:  contentType,
		metadata:     metadata,
		etag:         fmt.Sprintf("%q", hex.EncodeToString(sum[:])),
		lastModified: time.Now().UTC(),
	}
}

func (f *FakeS3) bucket(name string) (map[string]*fakeObject, error) {
	objs, ok := f.buckets[name]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
	}
	return objs, nil
}

// GetObject implements s3api.API.
func (f *FakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	objs, err := f.bucket(aws.ToString(params.Bucket))
	if err != nil {
		return nil, err
	}
	obj, ok := objs[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))),
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		LastModified:  aws.Time(obj.lastModified),
		Metadata:      obj.metadata,
	}, nil
}

// PutObject implements s3api.API.
func (f *FakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	if params.Body != nil {
		var err error
		if data, err = io.ReadAll(params.Body); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	objs, err := f.bucket(aws.ToString(params.Bucket))
	if err != nil {
		return nil, err
	}
	obj := newFakeObject(data, aws.ToString(params.ContentType), params.Metadata)
	objs[aws.ToString(params.Key)] = obj
	return &s3.PutObjectOutput{ETag: aws.String(obj.etag)}, nil
}

// HeadObject implements s3api.API.
func (f *FakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	objs, err := f.bucket(aws.ToString(params.Bucket))
	if err != nil {
		return nil, err
	}
	obj, ok := objs[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}

	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		LastModified:  aws.Time(obj.lastModified),
		Metadata:      obj.metadata,
	}, nil
}

// DeleteObject implements s3api.API. Deleting a missing key succeeds, as in S3.
func (f *FakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	objs, err := f.bucket(aws.ToString(params.Bucket))
	if err != nil {
		return nil, err
	}
	delete(objs, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 implements s3api.API. The continuation token is the last key
// of the previous page.
func (f *FakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	objs, err := f.bucket(aws.ToString(params.Bucket))
	if err != nil {
		return nil, err
	}

	prefix := aws.ToString(params.Prefix)
	after := aws.ToString(params.ContinuationToken)
	if after == "" {
		after = aws.ToString(params.StartAfter)
	}

	keys := make([]string, 0, len(objs))
	for k := range objs {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	limit := aws.ToInt32(params.MaxKeys)
	if limit <= 0 {
		limit = f.PageSize
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	out := &s3.ListObjectsV2Output{
		Name:              params.Bucket,
		Prefix:            params.Prefix,
		ContinuationToken: params.ContinuationToken,
		MaxKeys:           aws.Int32(limit),
		IsTruncated:       aws.Bool(false),
	}
	if int32(len(keys)) > limit {
		keys = keys[:limit]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}

	for _, k := range keys {
		obj := objs[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			ETag:         aws.String(obj.etag),
			LastModified: aws.Time(obj.lastModified),
		})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}

var _ s3api.API = (*FakeS3)(nil)
