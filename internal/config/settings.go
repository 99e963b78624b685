// Package config resolves process-wide settings from defaults, an optional
// config file, environment variables and CLI flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openlake/indexpipe/internal/cluster"
	"github.com/openlake/indexpipe/internal/storage"
)

// Storage backend names.
const (
	BackendLocal   = "local"
	BackendWebHDFS = "webhdfs"
	BackendObject  = "object"
)

// ClusterSettings configures the target search cluster.
type ClusterSettings struct {
	Nodes        string `mapstructure:"nodes"`
	Port         int    `mapstructure:"port"`
	NetSSL       bool   `mapstructure:"net_ssl"`
	AuthUser     string `mapstructure:"auth_user"`
	AuthPassword string `mapstructure:"auth_password"`
}

// WebHDFSSettings configures the webhdfs storage backend.
type WebHDFSSettings struct {
	NameNodeURL string        `mapstructure:"namenode_url"`
	User        string        `mapstructure:"user"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ObjectSettings configures the object storage backend.
type ObjectSettings struct {
	EndpointURL     string `mapstructure:"endpoint_url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// StorageSettings selects and configures the storage backend.
type StorageSettings struct {
	Backend string          `mapstructure:"backend"`
	Root    string          `mapstructure:"root"` // local backend root dir
	WebHDFS WebHDFSSettings `mapstructure:"webhdfs"`
	Object  ObjectSettings  `mapstructure:"object"`
}

// Settings is the resolved process configuration.
type Settings struct {
	Cluster      ClusterSettings   `mapstructure:"cluster"`
	Storage      StorageSettings   `mapstructure:"storage"`
	RegistryPath string            `mapstructure:"registry_path"` // optional schema registry document
	BulkOptions  map[string]string `mapstructure:"bulk_options"`  // global write option defaults
	LogLevel     string            `mapstructure:"log_level"`
}

// Load resolves settings. Priority: CLI flags > environment variables >
// config file > defaults. The env prefix is INDEXPIPE, with dots mapped to
// underscores (INDEXPIPE_CLUSTER_PORT and so on). configFile may be empty.
func Load(flags *pflag.FlagSet, configFile string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("cluster.nodes", "localhost")
	v.SetDefault("cluster.port", 9200)
	v.SetDefault("cluster.net_ssl", false)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.webhdfs.user", "hdfs")
	v.SetDefault("storage.webhdfs.timeout", 30*time.Second)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("INDEXPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("cluster.auth_user", "INDEXPIPE_CLUSTER_AUTH_USER")
	_ = v.BindEnv("cluster.auth_password", "INDEXPIPE_CLUSTER_AUTH_PASSWORD")
	_ = v.BindEnv("storage.webhdfs.namenode_url", "INDEXPIPE_STORAGE_WEBHDFS_NAMENODE_URL")
	_ = v.BindEnv("storage.object.endpoint_url", "INDEXPIPE_STORAGE_OBJECT_ENDPOINT_URL")
	_ = v.BindEnv("storage.object.access_key_id", "INDEXPIPE_STORAGE_OBJECT_ACCESS_KEY_ID")
	_ = v.BindEnv("storage.object.secret_access_key", "INDEXPIPE_STORAGE_OBJECT_SECRET_ACCESS_KEY")
	_ = v.BindEnv("storage.object.bucket", "INDEXPIPE_STORAGE_OBJECT_BUCKET")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects configurations that cannot start a run.
func (s *Settings) Validate() error {
	if err := s.Endpoint().Validate(); err != nil {
		return err
	}
	switch s.Storage.Backend {
	case BackendLocal:
	case BackendWebHDFS:
		if s.Storage.WebHDFS.NameNodeURL == "" {
			return fmt.Errorf("storage.webhdfs.namenode_url is required for the webhdfs backend")
		}
	case BackendObject:
		o := s.Storage.Object
		if o.EndpointURL == "" || o.AccessKeyID == "" || o.SecretAccessKey == "" || o.Bucket == "" {
			return fmt.Errorf("storage.object requires endpoint_url, access_key_id, secret_access_key and bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want local, webhdfs or object)", s.Storage.Backend)
	}
	if (s.Cluster.AuthUser == "") != (s.Cluster.AuthPassword == "") {
		return fmt.Errorf("cluster.auth_user and cluster.auth_password must be set together")
	}
	return nil
}

// Endpoint builds the cluster endpoint from settings.
func (s *Settings) Endpoint() cluster.Endpoint {
	return cluster.Endpoint{
		Host:     s.Cluster.Nodes,
		Port:     s.Cluster.Port,
		TLS:      s.Cluster.NetSSL,
		Username: s.Cluster.AuthUser,
		Password: s.Cluster.AuthPassword,
	}
}

// Handler constructs the configured storage backend.
func (s *Settings) Handler() (storage.Handler, error) {
	switch s.Storage.Backend {
	case BackendLocal:
		return storage.NewLocal(s.Storage.Root), nil
	case BackendWebHDFS:
		return storage.NewWebHDFS(storage.WebHDFSConfig{
			NameNodeURL: s.Storage.WebHDFS.NameNodeURL,
			User:        s.Storage.WebHDFS.User,
			Timeout:     s.Storage.WebHDFS.Timeout,
		})
	case BackendObject:
		o := s.Storage.Object
		return storage.NewObject(storage.ObjectConfig{
			EndpointURL:     o.EndpointURL,
			AccessKeyID:     o.AccessKeyID,
			SecretAccessKey: o.SecretAccessKey,
			Bucket:          o.Bucket,
			Region:          o.Region,
			UseSSL:          o.UseSSL,
		})
	}
	return nil, fmt.Errorf("unknown storage backend %q", s.Storage.Backend)
}
