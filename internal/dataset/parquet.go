package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
)

// decodeParquet reads the whole parquet payload into rows. The column schema
// comes from the file footer, not from value inference.
func decodeParquet(data []byte) (*Table, error) {
	fr := buffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(fr, nil, 4)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader: %w", err)
	}
	defer pr.ReadStop()

	columns := footerColumns(pr)

	num := int(pr.GetNumRows())
	var rows []Record
	if num > 0 {
		raw, err := pr.ReadByNumber(num)
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
		rows, err = normalizeParquetRows(raw, columns)
		if err != nil {
			return nil, err
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// footerColumns maps the footer's leaf schema elements onto discovered
// columns. The first element is the synthetic root.
func footerColumns(pr *reader.ParquetReader) []Field {
	elems := pr.Footer.Schema
	var fields []Field
	for i, el := range elems {
		if i == 0 || el.Type == nil {
			continue
		}
		fields = append(fields, Field{Name: el.Name, DataType: parquetDataType(el)})
	}
	return fields
}

func parquetDataType(el *parquet.SchemaElement) DataType {
	if el.ConvertedType != nil {
		switch *el.ConvertedType {
		case parquet.ConvertedType_TIMESTAMP_MILLIS, parquet.ConvertedType_TIMESTAMP_MICROS:
			return TypeTimestamp
		case parquet.ConvertedType_UTF8:
			return TypeString
		}
	}
	switch *el.Type {
	case parquet.Type_BOOLEAN:
		return TypeBoolean
	case parquet.Type_INT32, parquet.Type_INT64:
		return TypeInt64
	case parquet.Type_FLOAT, parquet.Type_DOUBLE:
		return TypeDouble
	default:
		return TypeString
	}
}

// normalizeParquetRows flattens the reader's typed structs into records keyed
// by the footer's column names. The reader exports Go-ified field names, so
// keys are matched case-insensitively back to the footer spelling.
func normalizeParquetRows(raw []any, columns []Field) ([]Record, error) {
	byLower := make(map[string]Field, len(columns))
	for _, col := range columns {
		byLower[strings.ToLower(col.Name)] = col
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize parquet rows: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var generic []map[string]any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("normalize parquet rows: %w", err)
	}

	rows := make([]Record, 0, len(generic))
	for _, g := range generic {
		row := make(Record, len(g))
		for key, value := range g {
			col, ok := byLower[strings.ToLower(key)]
			if !ok {
				row[key] = value
				continue
			}
			row[col.Name] = coerceParquetValue(value, col.DataType)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func coerceParquetValue(v any, dt DataType) any {
	num, ok := v.(json.Number)
	if !ok {
		return v
	}
	switch dt {
	case TypeInt64, TypeTimestamp:
		if i, err := num.Int64(); err == nil {
			return i
		}
	case TypeDouble:
		if f, err := num.Float64(); err == nil {
			return f
		}
	}
	return num
}
