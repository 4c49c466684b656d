package pqbridge_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawarehouse/dw-parquet-go/internal/testutil"
	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

func TestEncodeDecode(t *testing.T) {
	ctx := context.Background()
	src := testutil.SampleTable(t, []int64{4, 5, 6, 7}, []string{"d", "e", "f", "g"}, []float64{4.5, 5.5, 6.5, 7.5})

	tests := []struct {
		name    string
		props   pqbridge.EncodeProps
		columns []string
		want    []string
	}{
		{
			name: "zero props",
			want: []string{"id", "name", "score"},
		},
		{
			name:  "zstd",
			props: pqbridge.EncodeProps{Compression: compress.Codecs.Zstd},
			want:  []string{"id", "name", "score"},
		},
		{
			name:    "projection",
			props:   pqbridge.EncodeProps{RowGroupLength: 3},
			columns: []string{"name"},
			want:    []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
			defer mem.AssertSize(t, 0)

			var buf bytes.Buffer
			require.NoError(t, pqbridge.EncodeTable(&buf, src, tt.props))

			got, err := pqbridge.DecodeTable(ctx, bytes.NewReader(buf.Bytes()), tt.columns, mem)
			require.NoError(t, err)
			defer got.Release()

			assert.Equal(t, tt.want, testutil.ColumnNames(got))
			for _, name := range tt.want {
				assert.Equal(t, testutil.ColumnValues(src, name), testutil.ColumnValues(got, name))
			}
		})
	}
}

func TestEncodeTable_PreservesArrowTypes(t *testing.T) {
	src := testutil.SampleTable(t, []int64{1}, []string{"a"}, []float64{1})

	var buf bytes.Buffer
	require.NoError(t, pqbridge.EncodeTable(&buf, src, pqbridge.EncodeProps{}))

	got, err := pqbridge.DecodeTable(context.Background(), bytes.NewReader(buf.Bytes()), nil, nil)
	require.NoError(t, err)
	defer got.Release()

	for i, f := range got.Schema().Fields() {
		assert.True(t, arrow.TypeEqual(src.Schema().Field(i).Type, f.Type), "field %s", f.Name)
	}
}

func TestEncodeTable_LeavesWriterOpen(t *testing.T) {
	src := testutil.SampleTable(t, []int64{1, 2}, []string{"a", "b"}, []float64{1, 2})

	f, err := os.Create(filepath.Join(t.TempDir(), "out.parquet"))
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, pqbridge.EncodeTable(f, src, pqbridge.EncodeProps{}))

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err, "file should still be open after encoding")

	got, err := pqbridge.DecodeTable(context.Background(), f, nil, nil)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, int64(2), got.NumRows())
}

func TestEncodeTable_NilTable(t *testing.T) {
	err := pqbridge.EncodeTable(io.Discard, nil, pqbridge.EncodeProps{})
	assert.ErrorIs(t, err, pqbridge.ErrInvalidInput)
}

func TestDecodeTable_Garbage(t *testing.T) {
	_, err := pqbridge.DecodeTable(context.Background(), bytes.NewReader([]byte("PAR1 but not really")), nil, nil)
	assert.ErrorIs(t, err, pqbridge.ErrDecode)

	_, err = pqbridge.ReadFooter(bytes.NewReader(nil), nil)
	assert.ErrorIs(t, err, pqbridge.ErrDecode)
}

func TestDecodeTable_CancelledContext(t *testing.T) {
	src := testutil.SampleTable(t, []int64{1, 2, 3}, []string{"a", "b", "c"}, []float64{1, 2, 3})
	var buf bytes.Buffer
	require.NoError(t, pqbridge.EncodeTable(&buf, src, pqbridge.EncodeProps{RowGroupLength: 1}))

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, columns := range [][]string{nil, {"name"}} {
		tbl, err := pqbridge.DecodeTable(ctx, bytes.NewReader(buf.Bytes()), columns, mem)
		assert.Nil(t, tbl)
		assert.ErrorIs(t, err, pqbridge.ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestReadFooter(t *testing.T) {
	src := testutil.SampleTable(t, []int64{1, 2, 3, 4, 5}, []string{"a", "b", "c", "d", "e"}, []float64{1, 2, 3, 4, 5})

	var buf bytes.Buffer
	require.NoError(t, pqbridge.EncodeTable(&buf, src, pqbridge.EncodeProps{RowGroupLength: 2}))

	footer, err := pqbridge.ReadFooter(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), footer.NumRows)
	assert.Equal(t, 3, footer.NumRowGroups)
	assert.Equal(t, []string{"id", "name", "score"}, []string{
		footer.Schema.Field(0).Name,
		footer.Schema.Field(1).Name,
		footer.Schema.Field(2).Name,
	})
}
