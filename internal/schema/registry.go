// Package schema loads the declarative domain/schema registry used to render
// index mapping templates.
package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/openlake/indexpipe/internal/storage"
)

// Settings are per-domain index settings applied to every schema rendered
// under that domain.
type Settings struct {
	Shards   int    `yaml:"shards"`
	Replicas int    `yaml:"replicas"`
	Dynamic  string `yaml:"dynamic"` // true | false | strict; empty leaves the cluster default
}

// FieldDef declares one mapped field of a schema.
type FieldDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Schema is one declared dataset shape within a domain.
type Schema struct {
	Fields []FieldDef `yaml:"fields"`
}

// Domain groups schemas that share index settings.
type Domain struct {
	Settings Settings          `yaml:"settings"`
	Schemas  map[string]Schema `yaml:"schemas"`
}

// Registry is the parsed registry document.
type Registry struct {
	Domains map[string]Domain `yaml:"domains"`
}

// Load reads and parses a registry document through the storage handler.
func Load(ctx context.Context, h storage.Handler, path string) (*Registry, error) {
	text, err := h.ReadText(ctx, path)
	if err != nil {
		return nil, err
	}
	return Parse([]byte(text))
}

// Parse parses a registry document.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse schema registry: %w", err)
	}
	for domainName, domain := range reg.Domains {
		for schemaName, s := range domain.Schemas {
			for i, f := range s.Fields {
				if f.Name == "" || f.Type == "" {
					return nil, fmt.Errorf("schema registry: %s/%s field %d: name and type are required", domainName, schemaName, i)
				}
			}
		}
	}
	return &reg, nil
}

// Lookup finds the declared schema for a domain/schema pair. The second
// return reports whether both levels matched.
func (r *Registry) Lookup(domainName, schemaName string) (Domain, Schema, bool) {
	if r == nil {
		return Domain{}, Schema{}, false
	}
	domain, ok := r.Domains[domainName]
	if !ok {
		return Domain{}, Schema{}, false
	}
	s, ok := domain.Schemas[schemaName]
	if !ok {
		return Domain{}, Schema{}, false
	}
	return domain, s, true
}

// RenderMapping renders the schema's index template document, parameterized
// by the domain's settings and name. The template matches every index whose
// name starts with "{domain}_{schema}".
func (s Schema) RenderMapping(settings Settings, domainName, schemaName string) (string, error) {
	name := fmt.Sprintf("%s_%s", domainName, schemaName)

	properties := map[string]any{}
	for _, f := range s.Fields {
		properties[f.Name] = map[string]any{"type": f.Type}
	}

	mappings := map[string]any{"properties": properties}
	if settings.Dynamic != "" {
		mappings["dynamic"] = settings.Dynamic
	}

	doc := map[string]any{
		"index_patterns": []string{name + "*"},
		"mappings":       mappings,
	}
	indexSettings := map[string]any{}
	if settings.Shards > 0 {
		indexSettings["number_of_shards"] = settings.Shards
	}
	if settings.Replicas >= 0 {
		indexSettings["number_of_replicas"] = settings.Replicas
	}
	if len(indexSettings) > 0 {
		doc["settings"] = indexSettings
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render mapping for %s: %w", name, err)
	}
	return string(out), nil
}
