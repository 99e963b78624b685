package pipeline

import (
	"fmt"
	"strings"

	"github.com/openlake/indexpipe/internal/dataset"
)

// Job is one indexing run: a dataset, its logical identity, and the write
// settings. Constructed once at job start and read-only for the run.
type Job struct {
	Domain      string
	Schema      string
	Format      dataset.Format
	DatasetPath string
	MappingPath string            // optional explicit mapping file
	IDField     string            // optional row field used as document _id
	Options     map[string]string // per-job write options, win over globals
}

// Name is the template and index name. Two concurrent jobs sharing a name
// race on template replacement; callers must serialize them.
func (j Job) Name() string {
	return fmt.Sprintf("%s_%s", j.Domain, j.Schema)
}

// Validate rejects jobs that cannot identify a template or a dataset.
func (j Job) Validate() error {
	if strings.TrimSpace(j.Domain) == "" {
		return fmt.Errorf("job domain is required")
	}
	if strings.TrimSpace(j.Schema) == "" {
		return fmt.Errorf("job schema is required")
	}
	if j.DatasetPath == "" {
		return fmt.Errorf("job dataset path is required")
	}
	if _, err := dataset.ParseFormat(string(j.Format)); err != nil {
		return err
	}
	return nil
}
