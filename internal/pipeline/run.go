// Package pipeline drives one indexing run: read the dataset, resolve its
// template, register it, and bulk-load the rows on registration success.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openlake/indexpipe/internal/bulk"
	"github.com/openlake/indexpipe/internal/dataset"
	"github.com/openlake/indexpipe/internal/storage"
	"github.com/openlake/indexpipe/internal/template"
)

// TemplateRegistrar installs the resolved template on the cluster.
type TemplateRegistrar interface {
	Register(ctx context.Context, name, body string) error
}

// BulkWriter writes the dataset rows to the cluster.
type BulkWriter interface {
	Load(ctx context.Context, options map[string]string, table *dataset.Table) (int, error)
}

// Result reports one run's outcome. A completed run with Indexed=false means
// template registration failed and the write was skipped; the skip is
// signalled here and in the logs, not as an error.
type Result struct {
	RunID      string
	Name       string
	Rows       int  // rows read from the dataset
	Documents  int  // documents written
	Indexed    bool // false when the bulk write was skipped
	SkipReason string
}

// Pipeline wires the run's collaborators. GlobalOptions are the cluster-wide
// write defaults; per-job options override them.
type Pipeline struct {
	Storage       storage.Handler
	Resolver      *template.Resolver
	Registrar     TemplateRegistrar
	Writer        BulkWriter
	GlobalOptions map[string]string
	Logger        *slog.Logger
}

// Run executes one job. The only ordering constraint is that the bulk load
// happens-after a successful template PUT: any registration failure is
// logged and skips the write, and the run still completes. Dataset read,
// resolution and bulk write failures are fatal.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	result := &Result{RunID: uuid.NewString(), Name: job.Name()}
	log := p.log().With("run_id", result.RunID, "name", result.Name)
	log.Info("run started", "dataset", job.DatasetPath, "format", string(job.Format))

	table, err := dataset.Read(ctx, p.Storage, job.DatasetPath, job.Format)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", job.DatasetPath, err)
	}
	result.Rows = len(table.Rows)

	doc, err := p.Resolver.Resolve(ctx, template.Request{
		Domain:      job.Domain,
		Schema:      job.Schema,
		MappingPath: job.MappingPath,
		Table:       table,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve template %s: %w", result.Name, err)
	}

	if err := p.Registrar.Register(ctx, result.Name, doc); err != nil {
		result.SkipReason = err.Error()
		log.Error("template registration failed, skipping bulk write", "error", err)
		return result, nil
	}

	n, err := p.Writer.Load(ctx, p.writeOptions(job), table)
	result.Documents = n
	if err != nil {
		return result, fmt.Errorf("bulk write %s: %w", result.Name, err)
	}
	result.Indexed = true
	log.Info("run complete", "rows", result.Rows, "documents", result.Documents)
	return result, nil
}

// writeOptions merges global defaults with the job's options and the job's
// derived mandatory keys. Precedence, lowest to highest: globals, job
// options map, the job's resource and id-field settings.
func (p *Pipeline) writeOptions(job Job) map[string]string {
	derived := map[string]string{bulk.OptionResource: job.Name()}
	if job.IDField != "" {
		derived[bulk.OptionMappingID] = job.IDField
	}
	return bulk.MergeOptions(bulk.MergeOptions(p.GlobalOptions, job.Options), derived)
}

func (p *Pipeline) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
