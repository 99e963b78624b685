// Package bulk writes dataset rows into the search cluster.
package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	elasticsearch "github.com/elastic/go-elasticsearch/v9"

	"github.com/openlake/indexpipe/internal/cluster"
	"github.com/openlake/indexpipe/internal/dataset"
)

// Write option keys. Options are a flat string map merged from cluster
// defaults and per-job settings.
const (
	// OptionResource names the target index. Mandatory.
	OptionResource = "es.resource"
	// OptionMappingID names the row field used as document _id.
	OptionMappingID = "es.mapping.id"
	// OptionBatchSize caps documents per bulk request.
	OptionBatchSize = "es.batch.size.entries"
)

const defaultBatchSize = 1000

// MergeOptions overlays job options onto global defaults; job keys win on
// conflict. Neither input is modified.
func MergeOptions(global, job map[string]string) map[string]string {
	merged := make(map[string]string, len(global)+len(job))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range job {
		merged[k] = v
	}
	return merged
}

// WriteFailureError reports a bulk write the cluster did not fully accept.
// Fatal to the run; there is no partial-failure recovery at this layer.
type WriteFailureError struct {
	Resource string
	Reason   string
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("bulk write to %s failed: %s", e.Resource, e.Reason)
}

// Loader writes a dataset's rows to the target index in full-overwrite mode:
// prior index content is deleted first, never appended to or upserted.
type Loader struct {
	es     *elasticsearch.Client
	Logger *slog.Logger
}

// NewLoader builds a loader for the cluster endpoint. The transport is
// injectable for tests.
func NewLoader(endpoint cluster.Endpoint, transport http.RoundTripper) (*Loader, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{endpoint.BaseURL()},
		Username:  endpoint.Username,
		Password:  endpoint.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create bulk client: %w", err)
	}
	return &Loader{es: es}, nil
}

// Load writes every row of the table to the resource named in options.
// Returns the number of documents written. An empty dataset still drives the
// (empty) write path and reports 0 documents without error.
func (l *Loader) Load(ctx context.Context, options map[string]string, table *dataset.Table) (int, error) {
	resource := options[OptionResource]
	if resource == "" {
		return 0, fmt.Errorf("write option %s is required", OptionResource)
	}
	idField := options[OptionMappingID]
	batchSize := defaultBatchSize
	if raw := options[OptionBatchSize]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid %s value %q", OptionBatchSize, raw)
		}
		batchSize = n
	}

	if err := l.clearIndex(ctx, resource); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	count := 0
	flush := func() error {
		if buf.Len() == 0 {
			return nil
		}
		res, err := l.es.Bulk(bytes.NewReader(buf.Bytes()),
			l.es.Bulk.WithContext(ctx),
			l.es.Bulk.WithIndex(resource),
			l.es.Bulk.WithRefresh("false"),
		)
		if err != nil {
			return &WriteFailureError{Resource: resource, Reason: err.Error()}
		}
		defer res.Body.Close()
		if res.IsError() {
			return &WriteFailureError{Resource: resource, Reason: res.Status()}
		}
		var result struct {
			Errors bool `json:"errors"`
		}
		if err := json.NewDecoder(res.Body).Decode(&result); err == nil && result.Errors {
			return &WriteFailureError{Resource: resource, Reason: "one or more documents rejected"}
		}
		buf.Reset()
		return nil
	}

	for i, row := range table.Rows {
		meta := map[string]any{"_index": resource}
		if idField != "" {
			if id, ok := documentID(row, idField); ok {
				meta["_id"] = id
			}
		}
		action, err := json.Marshal(map[string]any{"index": meta})
		if err != nil {
			return count, fmt.Errorf("encode bulk action for row %d: %w", i, err)
		}
		doc, err := json.Marshal(row)
		if err != nil {
			return count, fmt.Errorf("encode row %d: %w", i, err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')

		count++
		if count%batchSize == 0 {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := flush(); err != nil {
		return count, err
	}

	if count > 0 {
		if err := l.refresh(ctx, resource); err != nil {
			l.log().Warn("index refresh failed", "resource", resource, "error", err)
		}
	}
	l.log().Info("bulk load complete", "resource", resource, "documents", count)
	return count, nil
}

// clearIndex drops any prior index content for the resource. A missing index
// is not an error.
func (l *Loader) clearIndex(ctx context.Context, resource string) error {
	res, err := l.es.Indices.Delete([]string{resource},
		l.es.Indices.Delete.WithContext(ctx),
		l.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return &WriteFailureError{Resource: resource, Reason: "clear index: " + err.Error()}
	}
	defer res.Body.Close()
	if res.IsError() {
		return &WriteFailureError{Resource: resource, Reason: "clear index: " + res.Status()}
	}
	return nil
}

func (l *Loader) refresh(ctx context.Context, resource string) error {
	res, err := l.es.Indices.Refresh(
		l.es.Indices.Refresh.WithContext(ctx),
		l.es.Indices.Refresh.WithIndex(resource),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("refresh %s: %s", resource, res.Status())
	}
	return nil
}

func documentID(row dataset.Record, field string) (string, bool) {
	v, ok := row[field]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

func (l *Loader) log() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
