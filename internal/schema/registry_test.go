package schema

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/openlake/indexpipe/internal/storage"
)

const registryDoc = `
domains:
  sales:
    settings:
      shards: 3
      replicas: 1
      dynamic: strict
    schemas:
      customers:
        fields:
          - name: id
            type: long
          - name: email
            type: keyword
      orders:
        fields:
          - name: total
            type: double
  logs:
    schemas:
      access:
        fields:
          - name: ts
            type: date
`

func TestParseAndLookup(t *testing.T) {
	reg, err := Parse([]byte(registryDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	domain, s, ok := reg.Lookup("sales", "customers")
	if !ok {
		t.Fatal("expected sales/customers to resolve")
	}
	if domain.Settings.Shards != 3 || domain.Settings.Dynamic != "strict" {
		t.Errorf("settings = %+v", domain.Settings)
	}
	if len(s.Fields) != 2 {
		t.Errorf("fields = %v", s.Fields)
	}

	if _, _, ok := reg.Lookup("sales", "unknown"); ok {
		t.Error("unknown schema must not resolve")
	}
	if _, _, ok := reg.Lookup("unknown", "customers"); ok {
		t.Error("unknown domain must not resolve")
	}
}

func TestParseRejectsIncompleteField(t *testing.T) {
	doc := `
domains:
  d:
    schemas:
      s:
        fields:
          - name: only_name
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected error for field without a type")
	}
}

func TestRenderMapping(t *testing.T) {
	reg, err := Parse([]byte(registryDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	domain, s, _ := reg.Lookup("sales", "customers")

	rendered, err := s.RenderMapping(domain.Settings, "sales", "customers")
	if err != nil {
		t.Fatalf("RenderMapping: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(rendered), &doc); err != nil {
		t.Fatalf("rendered mapping is not JSON: %v", err)
	}
	patterns, _ := doc["index_patterns"].([]any)
	if len(patterns) != 1 || patterns[0] != "sales_customers*" {
		t.Errorf("index_patterns = %v", patterns)
	}
	mappings, _ := doc["mappings"].(map[string]any)
	if mappings["dynamic"] != "strict" {
		t.Errorf("dynamic = %v, want strict", mappings["dynamic"])
	}
	props, _ := mappings["properties"].(map[string]any)
	email, _ := props["email"].(map[string]any)
	if email["type"] != "keyword" {
		t.Errorf("email mapping = %v", email)
	}
	settings, _ := doc["settings"].(map[string]any)
	if settings["number_of_shards"] != float64(3) {
		t.Errorf("number_of_shards = %v", settings["number_of_shards"])
	}
}

func TestLoadThroughStorage(t *testing.T) {
	h := storage.NewLocal(t.TempDir())
	ctx := context.Background()
	if err := h.WriteText(ctx, registryDoc, "/conf/registry.yaml"); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(ctx, h, "/conf/registry.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, ok := reg.Lookup("logs", "access"); !ok {
		t.Error("expected logs/access to resolve")
	}

	if _, err := Load(ctx, h, "/conf/missing.yaml"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing registry: err = %v, want ErrNotFound", err)
	}
}
