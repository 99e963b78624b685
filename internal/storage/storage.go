// Package storage provides a capability interface over a hierarchical file
// store, with backends for local disk, WebHDFS, and S3-compatible object
// stores.
//
// The interface is deliberately stateless: every operation derives a fresh
// handle to the underlying store instead of holding one across calls, so
// independent calls are safe from multiple goroutines. The cost is per-call
// connection overhead, which is acceptable because this layer carries small
// configuration and mapping artifacts, not bulk dataset traffic.
//
// Errors are reported to the immediate caller; retry policy belongs to
// callers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	CodeNotFound    = "E_NOT_FOUND"
	CodeDecode      = "E_DECODE"
	CodeUnreachable = "E_ENDPOINT_UNREACHABLE"
	CodeIO          = "E_IO"
)

// ErrNotFound reports an absent path. Wrapped errors match it via errors.Is.
var ErrNotFound = errors.New("path not found")

var (
	errInvalidUTF8 = errors.New("content is not valid UTF-8")
	errIsDirectory = errors.New("path is a directory")
)

// Error wraps storage failures with a stable code and the path involved.
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Path)
}

func (e *Error) Unwrap() error     { return e.Err }
func (e *Error) CodeValue() string { return e.Code }

func wrapError(code, path string, err error) *Error {
	return &Error{Code: code, Path: path, Err: err}
}

func notFound(path string) *Error {
	return &Error{Code: CodeNotFound, Path: path, Err: ErrNotFound}
}

// decodeText validates raw bytes as UTF-8 text.
func decodeText(path string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", wrapError(CodeDecode, path, errInvalidUTF8)
	}
	return string(data), nil
}

// ContentSummary aggregates the content under a path.
type ContentSummary struct {
	Length         int64 // total bytes of all files under the path
	FileCount      int64
	DirectoryCount int64
}

// Handler is the capability interface over a hierarchical file store.
//
// Contract notes:
//   - Move has copy-then-delete semantics: the destination is reachable
//     before the source is guaranteed gone. A crash mid-move can leave both
//     present.
//   - WriteText deletes any existing file at the path first (non-recursive),
//     then creates it. A concurrent reader can observe the path briefly
//     absent.
//   - List enumerates files (never directories) recursively, keeping names
//     that end with suffix (empty matches all) and whose modification time is
//     strictly after since.
type Handler interface {
	Exists(ctx context.Context, path string) (bool, error)

	// MkdirAll creates the directory and all missing intermediate segments.
	// Succeeds if the directory is already present.
	MkdirAll(ctx context.Context, path string) (bool, error)

	// Delete removes the path recursively and permanently. No trash.
	Delete(ctx context.Context, path string) (bool, error)

	Move(ctx context.Context, src, dst string) (bool, error)

	// CopyFromLocal and MoveFromLocal transfer a file from the local
	// filesystem into the managed store.
	CopyFromLocal(ctx context.Context, local, dst string) error
	MoveFromLocal(ctx context.Context, local, dst string) error

	// ReadText decodes the full file content as UTF-8 text. Fails with
	// ErrNotFound if the path does not exist and with CodeDecode if the
	// bytes are not valid UTF-8.
	ReadText(ctx context.Context, path string) (string, error)

	// ReadBytes returns the raw file content.
	ReadBytes(ctx context.Context, path string) ([]byte, error)

	WriteText(ctx context.Context, text, path string) error

	List(ctx context.Context, path, suffix string, since time.Time) ([]string, error)

	BlockSize(ctx context.Context, path string) (int64, error)
	ContentSummary(ctx context.Context, path string) (*ContentSummary, error)

	// SpaceConsumed is ContentSummary's byte total.
	SpaceConsumed(ctx context.Context, path string) (int64, error)

	LastModified(ctx context.Context, path string) (time.Time, error)
}

// DefaultBlockSize is reported by backends without a native block concept.
const DefaultBlockSize int64 = 128 * 1024 * 1024
