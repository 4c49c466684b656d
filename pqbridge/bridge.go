package pqbridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/datawarehouse/dw-parquet-go/internal/s3api"
)

// Bridge moves Parquet objects between one bucket and in-memory Arrow
// tables.
//
// Use [New] to create a Bridge instance:
//
//	bridge, err := pqbridge.New(ctx, pqbridge.Config{
//	    Bucket: "analytics",
//	    Region: "eu-west-1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	keys, err := bridge.ListTableKeys(ctx, "events/")
//
// A Bridge is immutable after construction and safe for concurrent use.
type Bridge struct {
	s3     *S3Client
	bucket string

	log         zerolog.Logger
	ext         string
	scratchDir  string
	mem         memory.Allocator
	encode      EncodeProps
	concurrency int
}

// Config holds the bucket and connection parameters for [New].
type Config struct {
	// Bucket is the bucket every operation addresses. Required.
	Bucket string

	// Endpoint is an optional base URL for S3-compatible servers.
	Endpoint string

	// AccessKey and SecretKey select static credentials. Leave both empty
	// to use the default AWS credential chain.
	AccessKey string
	SecretKey string

	// SessionToken is an optional STS session token.
	SessionToken string

	// Region is the AWS region identifier. Defaults to "us-east-1" if empty.
	Region string

	// UsePathStyle selects path-style addressing.
	UsePathStyle bool
}

// TableInfo describes a Parquet object: its storage metadata plus what its
// footer declares.
type TableInfo struct {
	ObjectInfo

	NumRows      int64
	NumRowGroups int
	Schema       *arrow.Schema
}

// New creates a Bridge bound to cfg.Bucket.
func New(ctx context.Context, cfg Config, opts ...Option) (*Bridge, error) {
	if cfg.Bucket == "" {
		return nil, newError("new", "", "", ErrInvalidInput, errors.New("bucket is required"))
	}

	client, err := NewS3Client(ctx, S3Config{
		Endpoint:     cfg.Endpoint,
		AccessKey:    cfg.AccessKey,
		SecretKey:    cfg.SecretKey,
		SessionToken: cfg.SessionToken,
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return newBridge(client, cfg.Bucket, opts...), nil
}

// NewWithAPI creates a Bridge over an existing S3 API implementation, such
// as a preconfigured *s3.Client.
func NewWithAPI(bucket string, api s3api.API, opts ...Option) (*Bridge, error) {
	if bucket == "" {
		return nil, newError("new", "", "", ErrInvalidInput, errors.New("bucket is required"))
	}
	return newBridge(NewS3ClientWithAPI(api), bucket, opts...), nil
}

func newBridge(client *S3Client, bucket string, opts ...Option) *Bridge {
	b := &Bridge{
		s3:     client,
		bucket: bucket,
		log:    zerolog.Nop(),
		ext:    DefaultExtension,
		mem:    memory.DefaultAllocator,
		encode: EncodeProps{
			Compression:    compress.Codecs.Snappy,
			RowGroupLength: defaultRowGroupLength,
			Allocator:      memory.DefaultAllocator,
		},
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bucket returns the bucket the Bridge is bound to.
func (b *Bridge) Bucket() string {
	return b.bucket
}

// S3 returns the underlying [S3Client] for operations outside the bridge's
// Parquet model.
func (b *Bridge) S3() *S3Client {
	return b.s3
}

// ForBucket returns a new Bridge with the same client and options, bound to
// another bucket.
func (b *Bridge) ForBucket(bucket string) *Bridge {
	clone := *b
	clone.bucket = bucket
	return &clone
}

// DownloadTable fetches the object at key and decodes it into an Arrow
// table. The caller must Release the table.
func (b *Bridge) DownloadTable(ctx context.Context, key string, opts ...ReadOption) (arrow.Table, error) {
	const op = "download"
	if key == "" {
		return nil, b.fail(op, key, newError(op, b.bucket, key, ErrInvalidInput, errors.New("empty key")))
	}

	var rc readConfig
	for _, opt := range opts {
		opt(&rc)
	}

	src, cleanup, err := b.fetch(ctx, key)
	if err != nil {
		return nil, b.fail(op, key, err)
	}
	defer cleanup()

	tbl, err := DecodeTable(ctx, src, rc.columns, b.mem)
	if err != nil {
		return nil, b.fail(op, key, b.wrap(op, key, err))
	}

	b.log.Debug().
		Str("bucket", b.bucket).
		Str("key", key).
		Int64("rows", tbl.NumRows()).
		Int64("columns", tbl.NumCols()).
		Msg("downloaded table")
	return tbl, nil
}

// UploadTable encodes tbl as Parquet and stores it under key, replacing any
// existing object.
func (b *Bridge) UploadTable(ctx context.Context, key string, tbl arrow.Table) error {
	const op = "upload"
	switch {
	case key == "":
		return b.fail(op, key, newError(op, b.bucket, key, ErrInvalidInput, errors.New("empty key")))
	case tbl == nil:
		return b.fail(op, key, newError(op, b.bucket, key, ErrInvalidInput, errors.New("nil table")))
	}

	body, size, cleanup, err := b.spool(key, tbl)
	if err != nil {
		return b.fail(op, key, b.wrap(op, key, err))
	}
	defer cleanup()

	out, err := b.s3.PutObject(ctx, b.bucket, key, body,
		WithContentType(ContentType),
		WithContentLength(size),
	)
	if err != nil {
		return b.fail(op, key, err)
	}

	b.log.Info().
		Str("bucket", b.bucket).
		Str("key", key).
		Str("etag", out.ETag).
		Int64("rows", tbl.NumRows()).
		Int64("bytes", size).
		Msg("uploaded table")
	return nil
}

// ListTableKeys returns every key under prefix whose lowercased name ends
// with the configured extension, in listing order. All listing pages are
// consulted. An empty prefix lists the whole bucket.
func (b *Bridge) ListTableKeys(ctx context.Context, prefix string) ([]string, error) {
	objects, err := b.s3.ListObjects(ctx, b.bucket, WithPrefix(prefix))
	if err != nil {
		return nil, b.fail("list", prefix, err)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(strings.ToLower(obj.Key), b.ext) {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

// Stat returns the storage metadata of key together with the row count,
// row group count and schema declared in its Parquet footer.
func (b *Bridge) Stat(ctx context.Context, key string) (*TableInfo, error) {
	const op = "stat"
	if key == "" {
		return nil, b.fail(op, key, newError(op, b.bucket, key, ErrInvalidInput, errors.New("empty key")))
	}

	info, err := b.s3.HeadObject(ctx, b.bucket, key)
	if err != nil {
		return nil, b.fail(op, key, err)
	}

	src, cleanup, err := b.fetch(ctx, key)
	if err != nil {
		return nil, b.fail(op, key, err)
	}
	defer cleanup()

	footer, err := ReadFooter(src, b.mem)
	if err != nil {
		return nil, b.fail(op, key, b.wrap(op, key, err))
	}

	return &TableInfo{
		ObjectInfo:   *info,
		NumRows:      footer.NumRows,
		NumRowGroups: footer.NumRowGroups,
		Schema:       footer.Schema,
	}, nil
}

// Exists reports whether an object is stored under key.
func (b *Bridge) Exists(ctx context.Context, key string) (bool, error) {
	const op = "exists"
	if key == "" {
		return false, b.fail(op, key, newError(op, b.bucket, key, ErrInvalidInput, errors.New("empty key")))
	}
	ok, err := b.s3.ObjectExists(ctx, b.bucket, key)
	if err != nil {
		return false, b.fail(op, key, err)
	}
	return ok, nil
}

// Delete removes the object stored under key.
func (b *Bridge) Delete(ctx context.Context, key string) error {
	const op = "delete"
	if key == "" {
		return b.fail(op, key, newError(op, b.bucket, key, ErrInvalidInput, errors.New("empty key")))
	}
	if err := b.s3.DeleteObject(ctx, b.bucket, key); err != nil {
		return b.fail(op, key, err)
	}
	b.log.Info().Str("bucket", b.bucket).Str("key", key).Msg("deleted object")
	return nil
}

// DownloadTables downloads keys concurrently. On the first failure the
// remaining downloads are cancelled, every table decoded so far is released
// and the error is returned.
func (b *Bridge) DownloadTables(ctx context.Context, keys []string, opts ...ReadOption) (map[string]arrow.Table, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	var mu sync.Mutex
	tables := make(map[string]arrow.Table, len(keys))

	for _, key := range keys {
		key := key
		g.Go(func() error {
			tbl, err := b.DownloadTable(gctx, key, opts...)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if prev, ok := tables[key]; ok {
				prev.Release()
			}
			tables[key] = tbl
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, tbl := range tables {
			tbl.Release()
		}
		return nil, err
	}
	return tables, nil
}

// fetch downloads key into memory, or into a temp file under the scratch
// directory when one is configured.
func (b *Bridge) fetch(ctx context.Context, key string) (parquet.ReaderAtSeeker, func(), error) {
	body, _, err := b.s3.GetObject(ctx, b.bucket, key)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	if b.scratchDir == "" {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, newError("get", b.bucket, key, ErrTransport, err)
		}
		return bytes.NewReader(data), func() {}, nil
	}

	f, err := os.CreateTemp(b.scratchDir, scratchPattern(key))
	if err != nil {
		return nil, nil, newError("get", b.bucket, key, ErrTransport, err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}
	if _, err := io.Copy(f, body); err != nil {
		cleanup()
		return nil, nil, newError("get", b.bucket, key, ErrTransport, err)
	}
	return f, cleanup, nil
}

// spool encodes tbl into memory, or into a temp file under the scratch
// directory when one is configured, and returns a seekable body.
func (b *Bridge) spool(key string, tbl arrow.Table) (io.ReadSeeker, int64, func(), error) {
	if b.scratchDir == "" {
		var buf bytes.Buffer
		if err := EncodeTable(&buf, tbl, b.encode); err != nil {
			return nil, 0, nil, err
		}
		return bytes.NewReader(buf.Bytes()), int64(buf.Len()), func() {}, nil
	}

	f, err := os.CreateTemp(b.scratchDir, scratchPattern(key))
	if err != nil {
		return nil, 0, nil, newError("put", b.bucket, key, ErrTransport, err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	if err := EncodeTable(f, tbl, b.encode); err != nil {
		cleanup()
		return nil, 0, nil, err
	}
	size, err := f.Seek(0, io.SeekCurrent)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		cleanup()
		return nil, 0, nil, newError("put", b.bucket, key, ErrTransport, err)
	}
	return f, size, cleanup, nil
}

// scratchPattern keeps the key's basename in temp file names for
// readability; os.CreateTemp makes them unique.
func scratchPattern(key string) string {
	base := strings.ReplaceAll(path.Base(key), "*", "_")
	return "pqbridge-*-" + base
}

// wrap turns a codec error into an *Error, keeping its sentinel.
func (b *Bridge) wrap(op, key string, err error) error {
	var bridgeErr *Error
	if errors.As(err, &bridgeErr) {
		return err
	}
	kind := ErrTransport
	switch KindOf(err) {
	case KindDecode:
		kind = ErrDecode
	case KindEncode:
		kind = ErrEncode
	case KindInvalidInput:
		kind = ErrInvalidInput
	}
	return newError(op, b.bucket, key, kind, err)
}

func (b *Bridge) fail(op, key string, err error) error {
	b.log.Error().
		Err(err).
		Str("op", op).
		Str("bucket", b.bucket).
		Str("key", key).
		Stringer("kind", KindOf(err)).
		Msg("operation failed")
	return err
}
