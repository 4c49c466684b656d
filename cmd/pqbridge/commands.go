package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/urfave/cli/v2"

	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

func (s *session) list(c *cli.Context) error {
	if c.Args().Len() > 1 {
		return requireArgs(c, 1)
	}

	b, prefix, err := s.resolve(c, c.Args().First())
	if err != nil {
		return err
	}

	keys, err := b.ListTableKeys(c.Context, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Fprintln(c.App.Writer, key)
	}
	return nil
}

func (s *session) cat(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	b, key, err := s.resolve(c, c.Args().First())
	if err != nil {
		return err
	}

	tbl, err := b.DownloadTable(c.Context, key, pqbridge.WithColumns(c.StringSlice("columns")...))
	if err != nil {
		return err
	}
	defer tbl.Release()

	return writeCSV(c.App.Writer, tbl, c.Int64("limit"))
}

func (s *session) get(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}

	b, key, err := s.resolve(c, c.Args().Get(0))
	if err != nil {
		return err
	}

	tbl, err := b.DownloadTable(c.Context, key)
	if err != nil {
		return err
	}
	defer tbl.Release()

	dst := c.Args().Get(1)
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	err = pqbridge.EncodeTable(f, tbl, pqbridge.EncodeProps{Compression: compress.Codecs.Snappy})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("write %s: %w", dst, err)
	}

	fmt.Fprintf(c.App.Writer, "%s -> %s (%d rows)\n", pqbridge.FormatURI(b.Bucket(), key), dst, tbl.NumRows())
	return nil
}

func (s *session) put(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}

	src := c.Args().Get(0)
	b, key, err := s.resolve(c, c.Args().Get(1))
	if err != nil {
		return err
	}

	tbl, err := readLocalTable(c.Context, src, memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer tbl.Release()

	if err := b.UploadTable(c.Context, key, tbl); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s -> %s (%d rows)\n", src, pqbridge.FormatURI(b.Bucket(), key), tbl.NumRows())
	return nil
}

func (s *session) stat(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	b, key, err := s.resolve(c, c.Args().First())
	if err != nil {
		return err
	}

	info, err := b.Stat(c.Context, key)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "uri:\t%s\n", pqbridge.FormatURI(b.Bucket(), info.Key))
	fmt.Fprintf(tw, "size:\t%d\n", info.Size)
	fmt.Fprintf(tw, "etag:\t%s\n", info.ETag)
	if !info.LastModified.IsZero() {
		fmt.Fprintf(tw, "modified:\t%s\n", info.LastModified.UTC().Format(time.RFC3339))
	}
	if info.ContentType != "" {
		fmt.Fprintf(tw, "content-type:\t%s\n", info.ContentType)
	}
	fmt.Fprintf(tw, "rows:\t%d\n", info.NumRows)
	fmt.Fprintf(tw, "row groups:\t%d\n", info.NumRowGroups)
	fmt.Fprintln(tw, "schema:")
	for _, f := range info.Schema.Fields() {
		null := ""
		if f.Nullable {
			null = " (nullable)"
		}
		fmt.Fprintf(tw, "  %s\t%s%s\n", f.Name, f.Type, null)
	}
	return tw.Flush()
}

func (s *session) remove(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	b, key, err := s.resolve(c, c.Args().First())
	if err != nil {
		return err
	}
	return b.Delete(c.Context, key)
}
