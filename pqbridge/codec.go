package pqbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/apache/arrow/go/v16/parquet/file"
	"github.com/apache/arrow/go/v16/parquet/pqarrow"
)

// ContentType is set on every uploaded Parquet object.
const ContentType = "application/vnd.apache.parquet"

const (
	defaultRowGroupLength = 128 * 1024
	defaultBatchSize      = 64 * 1024
)

// EncodeProps tunes Parquet encoding. The zero value writes uncompressed
// files with the default row group length.
type EncodeProps struct {
	Compression    compress.Compression
	RowGroupLength int64
	Allocator      memory.Allocator
}

func (p EncodeProps) withDefaults() EncodeProps {
	if p.RowGroupLength <= 0 {
		p.RowGroupLength = defaultRowGroupLength
	}
	if p.Allocator == nil {
		p.Allocator = memory.DefaultAllocator
	}
	return p
}

// writeOnly hides Close from the parquet writer, which would otherwise close
// a sink that happens to be an io.Closer.
type writeOnly struct {
	io.Writer
}

// EncodeTable writes tbl to w as a Parquet file. The Arrow schema is stored
// in the file metadata so decoding restores the exact Arrow types. w is not
// closed.
func EncodeTable(w io.Writer, tbl arrow.Table, props EncodeProps) error {
	if tbl == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidInput)
	}
	props = props.withDefaults()

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(props.Compression),
		parquet.WithAllocator(props.Allocator),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	if err := pqarrow.WriteTable(tbl, writeOnly{w}, props.RowGroupLength, writerProps, arrowProps); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}

// DecodeTable reads a Parquet file into an Arrow table. A non-empty columns
// list restricts decoding to those top-level columns; they come back in file
// order. The caller must Release the returned table.
//
// pqarrow's row group readers must not be cancelled mid-read, so decoding
// itself ignores cancellation. A ctx cancelled before or during decoding
// yields ErrTransport.
func DecodeTable(ctx context.Context, r parquet.ReaderAtSeeker, columns []string, mem memory.Allocator) (arrow.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	tbl, err := decodeTable(context.WithoutCancel(ctx), r, columns, mem)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		tbl.Release()
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return tbl, nil
}

func decodeTable(ctx context.Context, r parquet.ReaderAtSeeker, columns []string, mem memory.Allocator) (arrow.Table, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	pf, err := file.NewParquetReader(r, file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: defaultBatchSize}, mem)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if len(columns) == 0 {
		tbl, err := fr.ReadTable(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return tbl, nil
	}

	indices, err := leafIndices(fr.Manifest, columns)
	if err != nil {
		return nil, err
	}

	rr, err := fr.GetRecordReader(ctx, indices, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer rr.Release()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for rr.Next() {
		rec := rr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return array.NewTableFromRecords(rr.Schema(), recs), nil
}

// leafIndices resolves top-level column names to parquet leaf column indices.
func leafIndices(manifest *pqarrow.SchemaManifest, columns []string) ([]int, error) {
	byName := make(map[string]pqarrow.SchemaField, len(manifest.Fields))
	for _, f := range manifest.Fields {
		byName[f.Field.Name] = f
	}

	var indices []int
	for _, name := range columns {
		f, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidInput, name)
		}
		indices = appendLeaves(indices, f)
	}
	slices.Sort(indices)
	return slices.Compact(indices), nil
}

func appendLeaves(out []int, f pqarrow.SchemaField) []int {
	if len(f.Children) == 0 {
		return append(out, f.ColIndex)
	}
	for _, child := range f.Children {
		out = appendLeaves(out, child)
	}
	return out
}

// Footer summarizes a Parquet file without decoding its pages.
type Footer struct {
	NumRows      int64
	NumRowGroups int
	Schema       *arrow.Schema
}

// ReadFooter parses only the Parquet footer of r.
func ReadFooter(r parquet.ReaderAtSeeker, mem memory.Allocator) (*Footer, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	pf, err := file.NewParquetReader(r, file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	schema, err := fr.Schema()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return &Footer{
		NumRows:      pf.NumRows(),
		NumRowGroups: pf.NumRowGroups(),
		Schema:       schema,
	}, nil
}
