// Package template resolves the index mapping template for a job.
package template

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openlake/indexpipe/internal/dataset"
	"github.com/openlake/indexpipe/internal/schema"
	"github.com/openlake/indexpipe/internal/storage"
)

// Request carries the inputs resolution needs. Table may be nil when the
// dataset has not been read; tier 3 then synthesizes from an empty schema.
type Request struct {
	Domain      string
	Schema      string
	MappingPath string // optional explicit mapping file
	Table       *dataset.Table
}

// Name is the template and index name for the request.
func (r Request) Name() string {
	return fmt.Sprintf("%s_%s", r.Domain, r.Schema)
}

// Resolver produces one JSON template document per run. Three tiers, first
// success wins, nothing cached:
//
//  1. explicit mapping file read verbatim through storage;
//  2. declared domain/schema entry rendered from the registry;
//  3. minimal single-field template synthesized from the dataset's
//     discovered columns.
type Resolver struct {
	Storage  storage.Handler
	Registry *schema.Registry
	Logger   *slog.Logger
}

type tier func(ctx context.Context, req Request) (string, bool, error)

// Resolve runs the tier chain. Storage errors from an explicit mapping path
// propagate; a missing registry entry falls through to synthesis.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, error) {
	if req.Name() == "_" {
		return "", fmt.Errorf("template name requires domain and schema")
	}
	for _, fn := range []tier{r.explicitMapping, r.declaredSchema, r.synthesized} {
		doc, ok, err := fn(ctx, req)
		if err != nil {
			return "", err
		}
		if ok {
			return doc, nil
		}
	}
	return "", fmt.Errorf("no template resolved for %s", req.Name())
}

func (r *Resolver) explicitMapping(ctx context.Context, req Request) (string, bool, error) {
	if req.MappingPath == "" {
		return "", false, nil
	}
	doc, err := r.Storage.ReadText(ctx, req.MappingPath)
	if err != nil {
		return "", false, fmt.Errorf("read mapping %s: %w", req.MappingPath, err)
	}
	r.log().Debug("template resolved from mapping file", "name", req.Name(), "path", req.MappingPath)
	return doc, true, nil
}

func (r *Resolver) declaredSchema(ctx context.Context, req Request) (string, bool, error) {
	domain, s, ok := r.Registry.Lookup(req.Domain, req.Schema)
	if !ok {
		return "", false, nil
	}
	doc, err := s.RenderMapping(domain.Settings, req.Domain, req.Schema)
	if err != nil {
		return "", false, err
	}
	r.log().Debug("template resolved from registry", "name", req.Name())
	return doc, true, nil
}

// synthesized is the ad-hoc fallback: a single mapped field so the template
// is valid, with the discovered column schema recorded under _meta for
// later inspection.
func (r *Resolver) synthesized(ctx context.Context, req Request) (string, bool, error) {
	columns := map[string]string{}
	ignoreType := "keyword"
	if req.Table != nil {
		for i, col := range req.Table.Columns {
			columns[col.Name] = col.DataType.ESType()
			if i == 0 {
				ignoreType = col.DataType.ESType()
			}
		}
	}
	doc := map[string]any{
		"index_patterns": []string{req.Name() + "*"},
		"mappings": map[string]any{
			"_meta": map[string]any{"columns": columns},
			"properties": map[string]any{
				"ignore": map[string]any{"type": ignoreType},
			},
		},
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", false, err
	}
	r.log().Debug("template synthesized from dataset columns", "name", req.Name(), "columns", len(columns))
	return string(out), true, nil
}

func (r *Resolver) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
