// Package dataset reads tabular datasets from a storage backend and exposes
// their rows with a discovered column schema.
package dataset

import (
	"context"
	"fmt"

	"github.com/openlake/indexpipe/internal/storage"
)

// Format identifies the on-disk dataset encoding.
type Format string

const (
	// FormatJSON is newline-delimited JSON, one object per line.
	FormatJSON Format = "json"
	// FormatJSONArray is a single JSON array spanning the whole file.
	FormatJSONArray Format = "json-array"
	// FormatParquet is Apache Parquet.
	FormatParquet Format = "parquet"
)

// ParseFormat validates a format tag from configuration.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatJSONArray, FormatParquet:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported dataset format %q (want json, json-array or parquet)", s)
}

// Record is one dataset row.
type Record = map[string]any

// DataType is a discovered column type.
type DataType string

const (
	TypeString    DataType = "STRING"
	TypeInt64     DataType = "INT64"
	TypeDouble    DataType = "DOUBLE"
	TypeBoolean   DataType = "BOOLEAN"
	TypeTimestamp DataType = "TIMESTAMP"
)

// Field is one column of the discovered schema.
type Field struct {
	Name     string
	DataType DataType
}

// Table is an in-memory dataset: ordered column schema plus rows.
type Table struct {
	Columns []Field
	Rows    []Record
}

// Read loads the dataset at path through the storage handler and decodes it
// per format.
func Read(ctx context.Context, h storage.Handler, path string, format Format) (*Table, error) {
	data, err := h.ReadBytes(ctx, path)
	if err != nil {
		return nil, err
	}
	return Decode(data, format)
}

// Decode parses raw dataset bytes per format.
func Decode(data []byte, format Format) (*Table, error) {
	switch format {
	case FormatJSON:
		return decodeNDJSON(data)
	case FormatJSONArray:
		return decodeJSONArray(data)
	case FormatParquet:
		return decodeParquet(data)
	}
	return nil, fmt.Errorf("unsupported dataset format %q", format)
}
