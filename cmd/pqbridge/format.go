package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/csv"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/gabriel-vasile/mimetype"

	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

type fileFormat int

const (
	formatUnknown fileFormat = iota
	formatParquet
	formatCSV
)

const csvChunk = 8192

func (f fileFormat) String() string {
	switch f {
	case formatParquet:
		return "parquet"
	case formatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// detectFormat picks the input format from the file extension, sniffing
// the content when the extension says nothing.
func detectFormat(path string) (fileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return formatParquet, nil
	case ".csv":
		return formatCSV, nil
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return formatUnknown, fmt.Errorf("detect %s: %w", path, err)
	}
	switch {
	case mt.Is(pqbridge.ContentType):
		return formatParquet, nil
	case mt.Is("text/csv"):
		return formatCSV, nil
	}
	return formatUnknown, fmt.Errorf("%s: unsupported content type %s: %w", path, mt.String(), pqbridge.ErrInvalidInput)
}

// readLocalTable loads a local Parquet or CSV file. CSV column types are
// inferred from the data; the first line is the header.
func readLocalTable(ctx context.Context, path string, mem memory.Allocator) (arrow.Table, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case formatParquet:
		return pqbridge.DecodeTable(ctx, f, nil, mem)
	default:
		return readCSV(f, mem)
	}
}

func readCSV(r io.Reader, mem memory.Allocator) (arrow.Table, error) {
	rdr := csv.NewInferringReader(r,
		csv.WithHeader(true),
		csv.WithChunk(csvChunk),
		csv.WithAllocator(mem),
	)
	defer rdr.Release()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv: %w", pqbridge.ErrDecode, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("csv has no data rows: %w", pqbridge.ErrInvalidInput)
	}

	return array.NewTableFromRecords(recs[0].Schema(), recs), nil
}

// writeCSV prints tbl with a header line. A positive limit caps the number
// of rows written.
func writeCSV(w io.Writer, tbl arrow.Table, limit int64) error {
	cw := csv.NewWriter(w, tbl.Schema(), csv.WithHeader(true))

	tr := array.NewTableReader(tbl, csvChunk)
	defer tr.Release()

	remaining := limit
	for (limit <= 0 || remaining > 0) && tr.Next() {
		rec := tr.Record()
		n := rec.NumRows()
		if limit > 0 && n > remaining {
			n = remaining
		}

		slice := rec.NewSlice(0, n)
		err := cw.Write(slice)
		slice.Release()
		if err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		remaining -= n
	}
	if err := tr.Err(); err != nil {
		return err
	}

	if err := cw.Flush(); err != nil {
		return err
	}
	return cw.Error()
}
