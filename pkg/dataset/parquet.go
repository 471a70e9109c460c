package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

func arrowType(k Kind) arrow.DataType {
	switch k {
	case KindInt:
		return arrow.PrimitiveTypes.Int64
	case KindFloat:
		return arrow.PrimitiveTypes.Float64
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindTimestamp:
		return timestampType
	case KindCategorical:
		return &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int32,
			ValueType: arrow.BinaryTypes.String,
		}
	}
	// complex, text and other columns are stored as strings
	return arrow.BinaryTypes.String
}

// WriteParquet encodes ds as a single row group Parquet file with snappy
// compression. The Arrow schema is stored in the file metadata so that
// timestamps and categoricals keep their logical types when read back.
// w stays open; closing it is left to the caller.
func WriteParquet(w io.Writer, ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	if ds.NumColumns() == 0 {
		return fmt.Errorf("%w: dataset has no columns", ErrMalformed)
	}

	mem := memory.NewGoAllocator()

	fields := make([]arrow.Field, len(ds.Columns))
	for i, c := range ds.Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Kind), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, c := range ds.Columns {
		if err := appendColumn(b.Field(i), c); err != nil {
			return err
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(mem),
	)
	// pqarrow closes sinks that implement io.Closer.
	sink := struct{ io.Writer }{w}
	fw, err := pqarrow.NewFileWriter(schema, sink, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write parquet record: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func appendColumn(bld array.Builder, c *Column) error {
	mismatch := func(v any) error {
		return fmt.Errorf("%w: column %q (%s) holds %T", ErrMalformed, c.Name, c.Kind, v)
	}

	for _, v := range c.Values {
		if v == nil {
			bld.AppendNull()
			continue
		}
		switch b := bld.(type) {
		case *array.Int64Builder:
			i, ok := v.(int64)
			if !ok {
				return mismatch(v)
			}
			b.Append(i)
		case *array.Float64Builder:
			switch f := v.(type) {
			case float64:
				b.Append(f)
			case int64:
				b.Append(float64(f))
			default:
				return mismatch(v)
			}
		case *array.BooleanBuilder:
			x, ok := v.(bool)
			if !ok {
				return mismatch(v)
			}
			b.Append(x)
		case *array.TimestampBuilder:
			t, ok := v.(time.Time)
			if !ok {
				return mismatch(v)
			}
			b.Append(arrow.Timestamp(t.UnixMicro()))
		case *array.BinaryDictionaryBuilder:
			if err := b.AppendString(fmt.Sprint(v)); err != nil {
				return fmt.Errorf("failed to append category for %q: %w", c.Name, err)
			}
		case *array.StringBuilder:
			s, err := stringValue(v)
			if err != nil {
				return fmt.Errorf("failed to encode value of %q: %w", c.Name, err)
			}
			b.Append(s)
		default:
			return fmt.Errorf("unexpected builder %T for column %q", bld, c.Name)
		}
	}
	return nil
}

func stringValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case complex128:
		return strconv.FormatComplex(t, 'g', -1, 128), nil
	case time.Time:
		return FormatTime(t), nil
	case int64, float64, bool, json.Number:
		return fmt.Sprint(t), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadParquet decodes a Parquet file into a dataset. Arrow types map back
// onto kinds; anything without a matching kind becomes KindOther and keeps
// the Arrow type string as its declared type name.
func ReadParquet(r parquet.ReaderAtSeeker) (*Dataset, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet reader: %w", err)
	}

	tbl, err := fr.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet table: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	ds := &Dataset{Columns: make([]*Column, tbl.NumCols())}
	for i := 0; i < int(tbl.NumCols()); i++ {
		field := schema.Field(i)
		col := tbl.Column(i)

		values := make([]any, 0, col.Len())
		for _, chunk := range col.Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				values = append(values, arrowValue(chunk, j))
			}
		}

		ds.Columns[i] = &Column{
			Name:     field.Name,
			Kind:     kindOf(field.Type),
			TypeName: field.Type.String(),
			Values:   values,
		}
	}
	return ds, nil
}

func kindOf(dt arrow.DataType) Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindInt
	case arrow.FLOAT32, arrow.FLOAT64:
		return KindFloat
	case arrow.BOOL:
		return KindBool
	case arrow.STRING, arrow.LARGE_STRING:
		return KindText
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return KindTimestamp
	case arrow.DICTIONARY:
		return KindCategorical
	}
	return KindOther
}

func arrowValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	case *array.Dictionary:
		return a.Dictionary().ValueStr(a.GetValueIndex(i))
	}
	return arr.ValueStr(i)
}
