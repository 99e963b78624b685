// Package cluster talks to the search cluster's HTTP surface: template
// management and the endpoint/credential plumbing shared with the bulk
// loader.
package cluster

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint identifies the target cluster. Resolved once per run from
// configuration; immutable afterwards.
type Endpoint struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
}

// DefaultEndpoint mirrors the cluster config defaults: localhost:9200, no
// TLS, unauthenticated.
func DefaultEndpoint() Endpoint {
	return Endpoint{Host: "localhost", Port: 9200}
}

// BaseURL builds "{scheme}://{host}:{port}" with https iff TLS is enabled.
func (e Endpoint) BaseURL() string {
	scheme := "http"
	if e.TLS {
		scheme = "https"
	}
	host := e.Host
	if host == "" {
		host = "localhost"
	}
	port := e.Port
	if port == 0 {
		port = 9200
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Auth returns the auth strategy: basic iff both username and password are
// configured, otherwise unauthenticated.
func (e Endpoint) Auth() AuthConfig {
	if e.Username != "" && e.Password != "" {
		return BasicAuth{Username: e.Username, Password: e.Password}
	}
	return NoAuth{}
}

// Validate rejects endpoints that cannot form a URL.
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("cluster host is required")
	}
	if e.Port < 0 || e.Port > 65535 {
		return fmt.Errorf("cluster port %d out of range", e.Port)
	}
	if _, err := url.Parse(e.BaseURL()); err != nil {
		return fmt.Errorf("cluster endpoint: %w", err)
	}
	return nil
}
