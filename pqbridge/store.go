package pqbridge

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/logging"

	"github.com/datawarehouse/dw-parquet-go/internal/s3api"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// S3Client wraps an aws-sdk-go-v2 S3 client. It is not bound to a bucket;
// every call names the bucket it addresses.
type S3Client struct {
	api    s3api.API
	region string
}

// S3Config holds connection parameters for an S3 or S3-compatible endpoint.
type S3Config struct {
	// Endpoint is an optional base URL (e.g. "http://localhost:9000") for
	// S3-compatible servers. Empty means the AWS endpoint for Region.
	Endpoint string

	// AccessKey is the access key ID. When AccessKey and SecretKey are both
	// empty the default AWS credential chain is used.
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// SessionToken is an optional STS session token.
	SessionToken string

	// Region is the AWS region identifier. Defaults to "us-east-1" if empty.
	Region string

	// UsePathStyle selects path-style addressing, required by most
	// S3-compatible servers.
	UsePathStyle bool
}

// ObjectInfo describes an object stored in an S3-compatible bucket.
type ObjectInfo struct {
	// Key is the object key (path within the bucket).
	Key string

	// Size is the object size in bytes.
	Size int64

	// LastModified is the timestamp when the object was last modified.
	LastModified time.Time

	// ETag is the entity tag (typically an MD5 hash of the object content).
	ETag string

	// ContentType is the MIME type of the object content.
	ContentType string

	// Metadata contains user-defined key-value metadata pairs.
	Metadata map[string]string
}

// PutOption configures optional parameters on a PutObject request.
type PutOption func(*s3.PutObjectInput)

// ListOption configures optional parameters on a ListObjectsV2 request.
type ListOption func(*s3.ListObjectsV2Input)

// WithContentType sets the content type on a PutObject request.
func WithContentType(ct string) PutOption {
	return func(input *s3.PutObjectInput) {
		input.ContentType = aws.String(ct)
	}
}

// WithMetadata sets user-defined metadata on a PutObject request.
func WithMetadata(m map[string]string) PutOption {
	return func(input *s3.PutObjectInput) {
		input.Metadata = m
	}
}

// WithContentLength sets the body length on a PutObject request.
func WithContentLength(n int64) PutOption {
	return func(input *s3.PutObjectInput) {
		input.ContentLength = aws.Int64(n)
	}
}

// WithPrefix filters list results to objects matching the given prefix.
func WithPrefix(prefix string) ListOption {
	return func(input *s3.ListObjectsV2Input) {
		input.Prefix = aws.String(prefix)
	}
}

// WithDelimiter sets the delimiter for grouping list results (e.g. "/" for
// directory-like listing).
func WithDelimiter(d string) ListOption {
	return func(input *s3.ListObjectsV2Input) {
		input.Delimiter = aws.String(d)
	}
}

// WithMaxKeys limits the number of keys returned per list request.
func WithMaxKeys(n int32) ListOption {
	return func(input *s3.ListObjectsV2Input) {
		input.MaxKeys = aws.Int32(n)
	}
}

// PutObjectOutput contains the result of a successful PutObject operation.
type PutObjectOutput struct {
	// ETag is the entity tag of the uploaded object.
	ETag string

	// VersionID is the version ID of the uploaded object (empty if versioning is disabled).
	VersionID string
}

// NewS3Client creates a new S3Client. Static credentials are used when
// AccessKey and SecretKey are set, otherwise the default credential chain
// (environment, shared config, instance role) resolves them.
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, newError("client", "", "", ErrInvalidInput,
			errors.New("access key and secret key must be set together"))
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithLogger(logging.Nop{}),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, newError("client", "", "", ErrInvalidInput, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{api: client, region: region}, nil
}

// NewS3ClientWithAPI wraps an existing S3 API implementation.
func NewS3ClientWithAPI(api s3api.API) *S3Client {
	return &S3Client{api: api, region: DefaultRegion}
}

// Region returns the region the client signs requests for.
func (c *S3Client) Region() string {
	return c.region
}

// PutObject uploads an object to the specified bucket and key.
func (c *S3Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts ...PutOption) (*PutObjectOutput, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}

	for _, opt := range opts {
		opt(input)
	}

	resp, err := c.api.PutObject(ctx, input)
	if err != nil {
		return nil, sdkError("put", bucket, key, err)
	}

	return &PutObjectOutput{
		ETag:      aws.ToString(resp.ETag),
		VersionID: aws.ToString(resp.VersionId),
	}, nil
}

// GetObject retrieves an object from the specified bucket and key. The caller
// is responsible for closing the returned io.ReadCloser.
func (c *S3Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error) {
	resp, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, sdkError("get", bucket, key, err)
	}

	info := &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         aws.ToString(resp.ETag),
		ContentType:  aws.ToString(resp.ContentType),
		LastModified: aws.ToTime(resp.LastModified),
		Metadata:     resp.Metadata,
	}

	return resp.Body, info, nil
}

// DeleteObject removes an object from the specified bucket.
func (c *S3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return sdkError("delete", bucket, key, err)
	}
	return nil
}

// HeadObject retrieves metadata about an object without downloading its content.
func (c *S3Client) HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	resp, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, sdkError("head", bucket, key, err)
	}

	return &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         aws.ToString(resp.ETag),
		ContentType:  aws.ToString(resp.ContentType),
		LastModified: aws.ToTime(resp.LastModified),
		Metadata:     resp.Metadata,
	}, nil
}

// ListObjects lists objects in the specified bucket with optional filtering.
// All pages are collected and returned as a single slice, in listing order.
func (c *S3Client) ListObjects(ctx context.Context, bucket string, opts ...ListOption) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}

	for _, opt := range opts {
		opt(input)
	}

	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.api, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, sdkError("list", bucket, aws.ToString(input.Prefix), err)
		}

		for _, obj := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         aws.ToString(obj.ETag),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return objects, nil
}

// ObjectExists checks whether an object exists at the specified bucket and
// key. Failures other than not-found are returned.
func (c *S3Client) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.HeadObject(ctx, bucket, key)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
