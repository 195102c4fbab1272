package parquet

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// ReadRings reads every row of a ring export file
func ReadRings(ctx context.Context, path string) ([]RingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer tbl.Release()

	if err := checkColumns(tbl.Schema().Fields()); err != nil {
		return nil, fmt.Errorf("%s is not a ring export: %w", path, err)
	}

	rows := make([]RingRow, 0, tbl.NumRows())
	idCol := tbl.Column(0).Data()
	for c := range idCol.Chunks() {
		ids := idCol.Chunk(c).(*array.Int64)
		ringNums := tbl.Column(1).Data().Chunk(c).(*array.Int32)
		refs := tbl.Column(2).Data().Chunk(c).(*array.List)
		points := tbl.Column(3).Data().Chunk(c).(*array.Int32)
		geoms := tbl.Column(4).Data().Chunk(c).(*array.Binary)

		refValues := refs.ListValues().(*array.Int64)
		for i := 0; i < ids.Len(); i++ {
			start, end := refs.ValueOffsets(i)
			row := RingRow{
				RelationID: ids.Value(i),
				Ring:       int(ringNums.Value(i)),
				WayRefs:    make([]int64, 0, end-start),
				NumPoints:  int(points.Value(i)),
				GeomWKB:    append([]byte(nil), geoms.Value(i)...),
			}
			for j := start; j < end; j++ {
				row.WayRefs = append(row.WayRefs, refValues.Value(int(j)))
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func checkColumns(fields []arrow.Field) error {
	want := RingSchema.Fields()
	if len(fields) != len(want) {
		return fmt.Errorf("got %d columns, want %d", len(fields), len(want))
	}
	for i, f := range fields {
		if f.Name != want[i].Name || f.Type.ID() != want[i].Type.ID() {
			return fmt.Errorf("column %d is %s %s, want %s %s", i, f.Name, f.Type, want[i].Name, want[i].Type)
		}
	}
	return nil
}
