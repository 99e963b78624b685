package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// WebHDFS implements Handler against a Hadoop NameNode via the WebHDFS REST
// API. This is the reference distributed-filesystem backend.
type WebHDFS struct {
	nameNodeURL string
	user        string
	timeout     time.Duration
}

// WebHDFSConfig holds WebHDFS connection parameters.
type WebHDFSConfig struct {
	NameNodeURL string // e.g. http://namenode:9870
	User        string // HDFS user (default: hdfs)
	Timeout     time.Duration
}

// NewWebHDFS creates a WebHDFS handler.
func NewWebHDFS(cfg WebHDFSConfig) (*WebHDFS, error) {
	if cfg.NameNodeURL == "" {
		return nil, wrapError(CodeUnreachable, "", fmt.Errorf("nameNodeUrl is required"))
	}
	user := cfg.User
	if user == "" {
		user = "hdfs"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WebHDFS{nameNodeURL: cfg.NameNodeURL, user: user, timeout: timeout}, nil
}

// client returns a fresh HTTP client. One per call keeps the handler free of
// shared mutable state.
func (h *WebHDFS) client() *http.Client {
	return &http.Client{Timeout: h.timeout}
}

func (h *WebHDFS) buildURL(p, op string, params map[string]string) string {
	u, _ := url.Parse(h.nameNodeURL)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u.Path = "/webhdfs/v1" + p

	q := u.Query()
	q.Set("op", op)
	q.Set("user.name", h.user)
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (h *WebHDFS) do(ctx context.Context, method, reqURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	return h.client().Do(req)
}

// doJSON runs a request and decodes the JSON response, translating WebHDFS
// FileNotFoundException responses into ErrNotFound.
func (h *WebHDFS) doJSON(ctx context.Context, method, reqURL, p string, target any) error {
	resp, err := h.do(ctx, method, reqURL, nil)
	if err != nil {
		return wrapError(CodeUnreachable, p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return notFound(p)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return wrapError(CodeIO, p, fmt.Errorf("webhdfs %s %d: %s", method, resp.StatusCode, string(msg)))
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return wrapError(CodeIO, p, err)
	}
	return nil
}

func (h *WebHDFS) getFileStatus(ctx context.Context, p string) (*fileStatus, error) {
	var result fileStatusResponse
	if err := h.doJSON(ctx, http.MethodGet, h.buildURL(p, opGetFileStatus, nil), p, &result); err != nil {
		return nil, err
	}
	return &result.FileStatus, nil
}

func (h *WebHDFS) listStatus(ctx context.Context, p string) ([]fileStatus, error) {
	var result listStatusResponse
	if err := h.doJSON(ctx, http.MethodGet, h.buildURL(p, opListStatus, nil), p, &result); err != nil {
		return nil, err
	}
	return result.FileStatuses.FileStatus, nil
}

func (h *WebHDFS) Exists(ctx context.Context, p string) (bool, error) {
	_, err := h.getFileStatus(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (h *WebHDFS) MkdirAll(ctx context.Context, p string) (bool, error) {
	var result booleanResponse
	if err := h.doJSON(ctx, http.MethodPut, h.buildURL(p, opMkdirs, nil), p, &result); err != nil {
		return false, err
	}
	return result.Boolean, nil
}

func (h *WebHDFS) Delete(ctx context.Context, p string) (bool, error) {
	var result booleanResponse
	err := h.doJSON(ctx, http.MethodDelete, h.buildURL(p, opDelete, map[string]string{"recursive": "true"}), p, &result)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return result.Boolean, nil
}

// Move copies each file to the destination, then deletes the source. RENAME
// would be atomic on HDFS, but the handler contract is copy-then-delete so
// every backend observes the same mid-move states.
func (h *WebHDFS) Move(ctx context.Context, src, dst string) (bool, error) {
	status, err := h.getFileStatus(ctx, src)
	if err != nil {
		return false, err
	}
	if status.Type == "FILE" {
		if err := h.copyFile(ctx, src, dst); err != nil {
			return false, err
		}
	} else {
		files, err := h.listFilesRecursive(ctx, src)
		if err != nil {
			return false, err
		}
		if _, err := h.MkdirAll(ctx, dst); err != nil {
			return false, err
		}
		for _, f := range files {
			rel := strings.TrimPrefix(f.path, strings.TrimSuffix(src, "/")+"/")
			if err := h.copyFile(ctx, f.path, path.Join(dst, rel)); err != nil {
				return false, err
			}
		}
	}
	return h.Delete(ctx, src)
}

func (h *WebHDFS) copyFile(ctx context.Context, src, dst string) error {
	data, err := h.ReadBytes(ctx, src)
	if err != nil {
		return err
	}
	return h.writeBytes(ctx, data, dst)
}

func (h *WebHDFS) CopyFromLocal(ctx context.Context, local, dst string) error {
	data, err := os.ReadFile(local)
	if err != nil {
		return wrapError(CodeIO, local, err)
	}
	return h.writeBytes(ctx, data, dst)
}

func (h *WebHDFS) MoveFromLocal(ctx context.Context, local, dst string) error {
	if err := h.CopyFromLocal(ctx, local, dst); err != nil {
		return err
	}
	if err := os.Remove(local); err != nil {
		return wrapError(CodeIO, local, err)
	}
	return nil
}

func (h *WebHDFS) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	resp, err := h.do(ctx, http.MethodGet, h.buildURL(p, opOpen, nil), nil)
	if err != nil {
		return nil, wrapError(CodeUnreachable, p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, notFound(p)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, wrapError(CodeIO, p, fmt.Errorf("webhdfs OPEN %d: %s", resp.StatusCode, string(msg)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(CodeIO, p, err)
	}
	return data, nil
}

func (h *WebHDFS) ReadText(ctx context.Context, p string) (string, error) {
	data, err := h.ReadBytes(ctx, p)
	if err != nil {
		return "", err
	}
	return decodeText(p, data)
}

func (h *WebHDFS) WriteText(ctx context.Context, text, p string) error {
	if status, err := h.getFileStatus(ctx, p); err == nil {
		if status.Type == "DIRECTORY" {
			return wrapError(CodeIO, p, errIsDirectory)
		}
		var result booleanResponse
		if err := h.doJSON(ctx, http.MethodDelete, h.buildURL(p, opDelete, map[string]string{"recursive": "false"}), p, &result); err != nil {
			return err
		}
	}
	return h.writeBytes(ctx, []byte(text), p)
}

// writeBytes performs the two-step WebHDFS CREATE: the NameNode answers with
// a redirect to the DataNode that accepts the data.
func (h *WebHDFS) writeBytes(ctx context.Context, data []byte, p string) error {
	createURL := h.buildURL(p, opCreate, map[string]string{"overwrite": "true"})

	client := h.client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, createURL, nil)
	if err != nil {
		return wrapError(CodeIO, p, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return wrapError(CodeUnreachable, p, err)
	}
	location := resp.Header.Get("Location")
	_ = resp.Body.Close()

	// Single-step servers answer 201 directly; otherwise follow the redirect
	// with the payload.
	if location == "" {
		if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
			return nil
		}
		return wrapError(CodeIO, p, fmt.Errorf("webhdfs CREATE %d: missing redirect location", resp.StatusCode))
	}

	dataResp, err := h.do(ctx, http.MethodPut, location, bytes.NewReader(data))
	if err != nil {
		return wrapError(CodeUnreachable, p, err)
	}
	defer dataResp.Body.Close()
	if dataResp.StatusCode != http.StatusCreated && dataResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(dataResp.Body)
		return wrapError(CodeIO, p, fmt.Errorf("webhdfs CREATE %d: %s", dataResp.StatusCode, string(msg)))
	}
	return nil
}

type remoteFile struct {
	path   string
	status fileStatus
}

// listFilesRecursive walks the tree breadth-first, returning files only.
func (h *WebHDFS) listFilesRecursive(ctx context.Context, root string) ([]remoteFile, error) {
	queue := []string{root}
	var files []remoteFile
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		statuses, err := h.listStatus(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, status := range statuses {
			full := path.Join(dir, status.PathSuffix)
			if status.PathSuffix == "" {
				// LISTSTATUS on a file returns the file itself with an
				// empty suffix.
				full = dir
			}
			if status.Type == "DIRECTORY" {
				queue = append(queue, full)
				continue
			}
			files = append(files, remoteFile{path: full, status: status})
		}
	}
	return files, nil
}

func (h *WebHDFS) List(ctx context.Context, p, suffix string, since time.Time) ([]string, error) {
	files, err := h.listFilesRecursive(ctx, p)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range files {
		if suffix != "" && !strings.HasSuffix(path.Base(f.path), suffix) {
			continue
		}
		if !time.UnixMilli(f.status.ModificationTime).After(since) {
			continue
		}
		out = append(out, f.path)
	}
	sort.Strings(out)
	return out, nil
}

func (h *WebHDFS) BlockSize(ctx context.Context, p string) (int64, error) {
	status, err := h.getFileStatus(ctx, p)
	if err != nil {
		return 0, err
	}
	return status.BlockSize, nil
}

func (h *WebHDFS) ContentSummary(ctx context.Context, p string) (*ContentSummary, error) {
	var result contentSummaryResponse
	if err := h.doJSON(ctx, http.MethodGet, h.buildURL(p, opGetContentSum, nil), p, &result); err != nil {
		return nil, err
	}
	return &ContentSummary{
		Length:         result.ContentSummary.Length,
		FileCount:      result.ContentSummary.FileCount,
		DirectoryCount: result.ContentSummary.DirectoryCount,
	}, nil
}

func (h *WebHDFS) SpaceConsumed(ctx context.Context, p string) (int64, error) {
	summary, err := h.ContentSummary(ctx, p)
	if err != nil {
		return 0, err
	}
	return summary.Length, nil
}

func (h *WebHDFS) LastModified(ctx context.Context, p string) (time.Time, error) {
	status, err := h.getFileStatus(ctx, p)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(status.ModificationTime), nil
}
