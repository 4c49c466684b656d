package testutil

import (
	"testing"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/memory"
)

// SampleSchema is the schema of tables built by SampleTable.
var SampleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// SampleTable builds an (id, name, score) table. All slices must have the
// same length. The table is released when the test finishes.
func SampleTable(t testing.TB, ids []int64, names []string, scores []float64) arrow.Table {
	t.Helper()
	return SampleTableWithNulls(t, ids, names, nil, scores)
}

// SampleTableWithNulls is SampleTable with a validity mask for the name
// column; a false entry makes that cell null. A nil mask means no nulls.
func SampleTableWithNulls(t testing.TB, ids []int64, names []string, nameValid []bool, scores []float64) arrow.Table {
	t.Helper()

	bld := array.NewRecordBuilder(memory.DefaultAllocator, SampleSchema)
	defer bld.Release()

	bld.Field(0).(*array.Int64Builder).AppendValues(ids, nil)
	bld.Field(1).(*array.StringBuilder).AppendValues(names, nameValid)
	bld.Field(2).(*array.Float64Builder).AppendValues(scores, nil)

	rec := bld.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(SampleSchema, []arrow.Record{rec})
	t.Cleanup(tbl.Release)
	return tbl
}

// ColumnNames returns the table's column names in order.
func ColumnNames(tbl arrow.Table) []string {
	names := make([]string, 0, tbl.NumCols())
	for _, f := range tbl.Schema().Fields() {
		names = append(names, f.Name)
	}
	return names
}

// ColumnValues renders every cell of the named column as a string, across
// all chunks. It returns nil if the column does not exist.
func ColumnValues(tbl arrow.Table, name string) []string {
	idx := tbl.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col := tbl.Column(idx[0])

	values := make([]string, 0, tbl.NumRows())
	for _, chunk := range col.Data().Chunks() {
		for i := 0; i < chunk.Len(); i++ {
			values = append(values, chunk.ValueStr(i))
		}
	}
	return values
}
