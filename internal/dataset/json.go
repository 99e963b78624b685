package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeNDJSON parses one JSON object per line. Blank lines are skipped;
// anything that is not an object is a decode error.
func decodeNDJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rows []Record
	for dec.More() {
		var row Record
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode json record %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return &Table{Columns: inferColumns(rows), Rows: rows}, nil
}

// decodeJSONArray parses the whole file as a single JSON array of objects.
func decodeJSONArray(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rows []Record
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	return &Table{Columns: inferColumns(rows), Rows: rows}, nil
}
