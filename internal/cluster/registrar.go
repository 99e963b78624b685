package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// TemplateRejectedError reports a PUT answered outside [200, 299]. It is
// terminal for the run: callers log it and skip the bulk write, they do not
// retry.
type TemplateRejectedError struct {
	Name       string
	StatusCode int
	Body       string
}

func (e *TemplateRejectedError) Error() string {
	return fmt.Sprintf("template %s rejected with status %d: %s", e.Name, e.StatusCode, e.Body)
}

// Registrar installs index templates with delete-then-put replacement.
type Registrar struct {
	Client *Client
	Logger *slog.Logger
}

// NewRegistrar creates a registrar over the given client.
func NewRegistrar(client *Client) *Registrar {
	return &Registrar{Client: client}
}

// Register replaces the named template with body.
//
// The DELETE clears any stale template first; its response is deliberately
// not inspected, since a missing template is not an error and re-runs must
// not conflict with old mappings. The PUT is then checked: any status in
// [200, 299] is success, anything else is TemplateRejectedError. The two
// requests are not atomic as a pair; a concurrent reader can observe the
// template absent between them.
func (r *Registrar) Register(ctx context.Context, name, body string) error {
	if name == "" {
		return fmt.Errorf("template name is required")
	}
	path := "/_template/" + name

	if _, err := r.Client.Do(ctx, http.MethodDelete, path, body); err != nil {
		// Transport failure on the clearing call is ignored like any other
		// delete outcome; the PUT decides the run.
		r.log().Debug("template delete failed", "template", name, "error", err)
	}

	resp, err := r.Client.Do(ctx, http.MethodPut, path, body)
	if err != nil {
		return fmt.Errorf("register template %s: %w", name, err)
	}
	if !resp.IsSuccess() {
		return &TemplateRejectedError{Name: name, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	r.log().Info("template registered", "template", name, "status", resp.StatusCode)
	return nil
}

func (r *Registrar) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
