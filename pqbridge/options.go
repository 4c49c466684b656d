package pqbridge

import (
	"strings"

	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/rs/zerolog"
)

// DefaultExtension is the key suffix ListTableKeys matches by default.
const DefaultExtension = ".parquet"

// DefaultConcurrency is the number of parallel downloads DownloadTables runs
// unless WithConcurrency says otherwise.
const DefaultConcurrency = 4

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for operation outcomes. The default
// discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

// WithExtension sets the key suffix ListTableKeys keeps. Matching is
// case-insensitive; a missing leading dot is added.
func WithExtension(ext string) Option {
	return func(b *Bridge) {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		b.ext = ext
	}
}

// WithScratchDir spools transfers through uniquely named temporary files in
// dir instead of memory. The files are removed when the operation returns.
func WithScratchDir(dir string) Option {
	return func(b *Bridge) {
		b.scratchDir = dir
	}
}

// WithAllocator sets the Arrow allocator used for decoding and encoding.
func WithAllocator(mem memory.Allocator) Option {
	return func(b *Bridge) {
		if mem != nil {
			b.mem = mem
			b.encode.Allocator = mem
		}
	}
}

// WithCompression sets the Parquet compression codec. Default is Snappy.
func WithCompression(codec compress.Compression) Option {
	return func(b *Bridge) {
		b.encode.Compression = codec
	}
}

// WithRowGroupLength sets the maximum number of rows per Parquet row group.
func WithRowGroupLength(rows int64) Option {
	return func(b *Bridge) {
		if rows > 0 {
			b.encode.RowGroupLength = rows
		}
	}
}

// WithConcurrency bounds the number of parallel downloads in
// DownloadTables. Default is 4.
func WithConcurrency(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// ReadOption configures a single download.
type ReadOption func(*readConfig)

type readConfig struct {
	columns []string
}

// WithColumns limits decoding to the named top-level columns.
func WithColumns(names ...string) ReadOption {
	return func(c *readConfig) {
		c.columns = append(c.columns, names...)
	}
}
