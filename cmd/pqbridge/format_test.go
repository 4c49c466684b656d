package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawarehouse/dw-parquet-go/internal/testutil"
	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

const sampleCSV = "id,name,score\n1,a,1.5\n2,b,2.5\n3,c,3.5\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func encodeSample(t *testing.T) []byte {
	t.Helper()
	tbl := testutil.SampleTable(t, []int64{1, 2, 3}, []string{"a", "b", "c"}, []float64{1.5, 2.5, 3.5})
	var buf bytes.Buffer
	require.NoError(t, pqbridge.EncodeTable(&buf, tbl, pqbridge.EncodeProps{}))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	t.Run("by extension", func(t *testing.T) {
		tests := map[string]fileFormat{
			"t.parquet":      formatParquet,
			"T.PARQUET":      formatParquet,
			"t.pq":           formatParquet,
			"dir/report.csv": formatCSV,
		}
		for path, want := range tests {
			got, err := detectFormat(path)
			require.NoError(t, err, path)
			assert.Equal(t, want, got, path)
		}
	})

	t.Run("sniffs parquet", func(t *testing.T) {
		got, err := detectFormat(writeFile(t, "blob", encodeSample(t)))
		require.NoError(t, err)
		assert.Equal(t, formatParquet, got)
	})

	t.Run("sniffs csv", func(t *testing.T) {
		got, err := detectFormat(writeFile(t, "export", []byte(sampleCSV)))
		require.NoError(t, err)
		assert.Equal(t, formatCSV, got)
	})

	t.Run("rejects other content", func(t *testing.T) {
		_, err := detectFormat(writeFile(t, "notes", []byte("just some words")))
		assert.ErrorIs(t, err, pqbridge.ErrInvalidInput)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := detectFormat(filepath.Join(t.TempDir(), "absent"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestReadLocalTable_CSV(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl, err := readLocalTable(context.Background(), writeFile(t, "in.csv", []byte(sampleCSV)), mem)
	require.NoError(t, err)
	defer tbl.Release()

	assert.EqualValues(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"id", "name", "score"}, testutil.ColumnNames(tbl))
	assert.Equal(t, arrow.PrimitiveTypes.Int64, tbl.Schema().Field(0).Type)
	assert.Equal(t, arrow.BinaryTypes.String, tbl.Schema().Field(1).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, tbl.Schema().Field(2).Type)
	assert.Equal(t, []string{"a", "b", "c"}, testutil.ColumnValues(tbl, "name"))
}

func TestReadLocalTable_Parquet(t *testing.T) {
	tbl, err := readLocalTable(context.Background(), writeFile(t, "in.parquet", encodeSample(t)), memory.DefaultAllocator)
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, []string{"1", "2", "3"}, testutil.ColumnValues(tbl, "id"))
}

func TestReadLocalTable_HeaderOnlyCSV(t *testing.T) {
	_, err := readLocalTable(context.Background(), writeFile(t, "empty.csv", []byte("id,name\n")), memory.DefaultAllocator)
	assert.ErrorIs(t, err, pqbridge.ErrInvalidInput)
}

func TestWriteCSV(t *testing.T) {
	tbl := testutil.SampleTable(t, []int64{1, 2, 3}, []string{"a", "b", "c"}, []float64{1.5, 2.5, 3.5})

	tests := []struct {
		name  string
		limit int64
		want  string
	}{
		{name: "all rows", limit: 0, want: sampleCSV},
		{name: "limited", limit: 2, want: "id,name,score\n1,a,1.5\n2,b,2.5\n"},
		{name: "limit above row count", limit: 10, want: sampleCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeCSV(&buf, tbl, tt.limit))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
