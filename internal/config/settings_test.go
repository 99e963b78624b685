package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/openlake/indexpipe/internal/storage"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Cluster.Nodes != "localhost" || s.Cluster.Port != 9200 || s.Cluster.NetSSL {
		t.Errorf("cluster defaults = %+v", s.Cluster)
	}
	if s.Storage.Backend != BackendLocal {
		t.Errorf("backend = %q, want local", s.Storage.Backend)
	}

	endpoint := s.Endpoint()
	if endpoint.BaseURL() != "http://localhost:9200" {
		t.Errorf("BaseURL = %q", endpoint.BaseURL())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INDEXPIPE_CLUSTER_NODES", "es.internal")
	t.Setenv("INDEXPIPE_CLUSTER_PORT", "9243")
	t.Setenv("INDEXPIPE_CLUSTER_NET_SSL", "true")
	t.Setenv("INDEXPIPE_CLUSTER_AUTH_USER", "elastic")
	t.Setenv("INDEXPIPE_CLUSTER_AUTH_PASSWORD", "secret")

	s, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	endpoint := s.Endpoint()
	if endpoint.BaseURL() != "https://es.internal:9243" {
		t.Errorf("BaseURL = %q", endpoint.BaseURL())
	}
	if endpoint.Username != "elastic" || endpoint.Password != "secret" {
		t.Errorf("credentials = %q/%q", endpoint.Username, endpoint.Password)
	}
}

func TestLoadFromFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "indexpipe.yaml")
	doc := `
cluster:
  nodes: from-file
  port: 9200
storage:
  backend: local
bulk_options:
  es.batch.size.entries: "250"
`
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("cluster.nodes", "", "")
	if err := flags.Set("cluster.nodes", "from-flag"); err != nil {
		t.Fatal(err)
	}

	s, err := Load(flags, file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Cluster.Nodes != "from-flag" {
		t.Errorf("nodes = %q, want flag to beat file", s.Cluster.Nodes)
	}
	if s.BulkOptions["es.batch.size.entries"] != "250" {
		t.Errorf("bulk options = %v", s.BulkOptions)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Settings {
		return &Settings{
			Cluster: ClusterSettings{Nodes: "localhost", Port: 9200},
			Storage: StorageSettings{Backend: BackendLocal},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{"valid local", func(*Settings) {}, true},
		{"unknown backend", func(s *Settings) { s.Storage.Backend = "nfs" }, false},
		{"webhdfs without namenode", func(s *Settings) { s.Storage.Backend = BackendWebHDFS }, false},
		{"webhdfs complete", func(s *Settings) {
			s.Storage.Backend = BackendWebHDFS
			s.Storage.WebHDFS.NameNodeURL = "http://nn:9870"
		}, true},
		{"object missing credentials", func(s *Settings) {
			s.Storage.Backend = BackendObject
			s.Storage.Object.EndpointURL = "http://minio:9000"
		}, false},
		{"auth user without password", func(s *Settings) { s.Cluster.AuthUser = "elastic" }, false},
		{"empty host", func(s *Settings) { s.Cluster.Nodes = "" }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := base()
			tc.mutate(s)
			err := s.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestHandlerConstruction(t *testing.T) {
	s := &Settings{
		Cluster: ClusterSettings{Nodes: "localhost", Port: 9200},
		Storage: StorageSettings{Backend: BackendLocal, Root: t.TempDir()},
	}
	h, err := s.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if _, ok := h.(*storage.Local); !ok {
		t.Errorf("handler = %T, want *storage.Local", h)
	}

	s.Storage.Backend = BackendWebHDFS
	s.Storage.WebHDFS.NameNodeURL = "http://nn:9870"
	if _, err := s.Handler(); err != nil {
		t.Errorf("webhdfs handler: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") != slog.LevelDebug {
		t.Error("debug")
	}
	if parseLevel("unknown") != slog.LevelInfo {
		t.Error("default should be info")
	}
}
