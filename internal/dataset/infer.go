package dataset

import (
	"encoding/json"
	"sort"
	"strings"
)

// inferColumns derives the column schema from observed values. Columns keep
// first-seen order; a column seen with conflicting numeric types widens to
// DOUBLE, and any other mix widens to STRING.
func inferColumns(rows []Record) []Field {
	var order []string
	types := map[string]DataType{}

	seen := map[string]bool{}
	for _, row := range rows {
		// Map iteration is randomized; sort within the row so discovery
		// order is stable run to run.
		names := make([]string, 0, len(row))
		for name := range row {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value := row[name]
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
			vt, ok := valueType(value)
			if !ok {
				continue // null contributes nothing
			}
			if prev, typed := types[name]; typed {
				types[name] = widen(prev, vt)
			} else {
				types[name] = vt
			}
		}
	}

	fields := make([]Field, 0, len(order))
	for _, name := range order {
		dt, ok := types[name]
		if !ok {
			dt = TypeString // only ever observed as null
		}
		fields = append(fields, Field{Name: name, DataType: dt})
	}
	return fields
}

func valueType(v any) (DataType, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case bool:
		return TypeBoolean, true
	case json.Number:
		if strings.ContainsAny(t.String(), ".eE") {
			return TypeDouble, true
		}
		return TypeInt64, true
	case float64:
		return TypeDouble, true
	case int, int32, int64:
		return TypeInt64, true
	case string:
		return TypeString, true
	default:
		// objects, arrays and anything exotic index as text
		return TypeString, true
	}
}

func widen(a, b DataType) DataType {
	if a == b {
		return a
	}
	if (a == TypeInt64 && b == TypeDouble) || (a == TypeDouble && b == TypeInt64) {
		return TypeDouble
	}
	return TypeString
}

// ESType maps a discovered type onto the search cluster's field type.
func (d DataType) ESType() string {
	switch d {
	case TypeInt64:
		return "long"
	case TypeDouble:
		return "double"
	case TypeBoolean:
		return "boolean"
	case TypeTimestamp:
		return "date"
	default:
		return "keyword"
	}
}
