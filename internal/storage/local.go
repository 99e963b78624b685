package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Local implements Handler on the local filesystem, rooted at a directory.
// It doubles as the test stand-in for the distributed backends.
type Local struct {
	root string
}

// NewLocal creates a local handler rooted at dir.
func NewLocal(root string) *Local {
	if root == "" {
		root = filepath.Join(os.TempDir(), "indexpipe-store")
	}
	_ = os.MkdirAll(root, 0o755)
	return &Local{root: root}
}

func (l *Local) fullPath(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(l.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, wrapError(CodeIO, path, err)
	}
	return true, nil
}

func (l *Local) MkdirAll(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := os.MkdirAll(l.fullPath(path), 0o755); err != nil {
		return false, wrapError(CodeIO, path, err)
	}
	return true, nil
}

func (l *Local) Delete(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full := l.fullPath(path)
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, wrapError(CodeIO, path, err)
	}
	if err := os.RemoveAll(full); err != nil {
		return false, wrapError(CodeIO, path, err)
	}
	return true, nil
}

// Move copies the source tree to the destination, then deletes the source.
// The destination is reachable before the source is gone.
func (l *Local) Move(ctx context.Context, src, dst string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	srcFull := l.fullPath(src)
	if _, err := os.Stat(srcFull); err != nil {
		if os.IsNotExist(err) {
			return false, notFound(src)
		}
		return false, wrapError(CodeIO, src, err)
	}
	if err := copyTree(srcFull, l.fullPath(dst)); err != nil {
		return false, wrapError(CodeIO, dst, err)
	}
	if err := os.RemoveAll(srcFull); err != nil {
		return false, wrapError(CodeIO, src, err)
	}
	return true, nil
}

func (l *Local) CopyFromLocal(ctx context.Context, local, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := copyTree(local, l.fullPath(dst)); err != nil {
		return wrapError(CodeIO, local, err)
	}
	return nil
}

func (l *Local) MoveFromLocal(ctx context.Context, local, dst string) error {
	if err := l.CopyFromLocal(ctx, local, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(local); err != nil {
		return wrapError(CodeIO, local, err)
	}
	return nil
}

func (l *Local) ReadBytes(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(path)
		}
		return nil, wrapError(CodeIO, path, err)
	}
	return data, nil
}

func (l *Local) ReadText(ctx context.Context, path string) (string, error) {
	data, err := l.ReadBytes(ctx, path)
	if err != nil {
		return "", err
	}
	return decodeText(path, data)
}

// WriteText removes any existing file at path first, then creates it. The
// removal is non-recursive: an existing directory at path is an error.
func (l *Local) WriteText(ctx context.Context, text, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := l.fullPath(path)
	if info, err := os.Stat(full); err == nil {
		if info.IsDir() {
			return wrapError(CodeIO, path, errIsDirectory)
		}
		if err := os.Remove(full); err != nil {
			return wrapError(CodeIO, path, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return wrapError(CodeIO, path, err)
	}
	if err := os.WriteFile(full, []byte(text), 0o644); err != nil {
		return wrapError(CodeIO, path, err)
	}
	return nil
}

func (l *Local) List(ctx context.Context, path, suffix string, since time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := l.fullPath(path)
	var out []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if suffix != "" && !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		if !info.ModTime().After(since) {
			return nil
		}
		rel, relErr := filepath.Rel(l.root, p)
		if relErr != nil {
			return relErr
		}
		out = append(out, "/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(path)
		}
		return nil, wrapError(CodeIO, path, err)
	}
	sort.Strings(out)
	return out, nil
}

func (l *Local) BlockSize(ctx context.Context, path string) (int64, error) {
	if _, err := l.LastModified(ctx, path); err != nil {
		return 0, err
	}
	return DefaultBlockSize, nil
}

func (l *Local) ContentSummary(ctx context.Context, path string) (*ContentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := l.fullPath(path)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(path)
		}
		return nil, wrapError(CodeIO, path, err)
	}
	summary := &ContentSummary{}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			summary.DirectoryCount++
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		summary.FileCount++
		summary.Length += info.Size()
		return nil
	})
	if err != nil {
		return nil, wrapError(CodeIO, path, err)
	}
	return summary, nil
}

func (l *Local) SpaceConsumed(ctx context.Context, path string) (int64, error) {
	summary, err := l.ContentSummary(ctx, path)
	if err != nil {
		return 0, err
	}
	return summary.Length, nil
}

func (l *Local) LastModified(ctx context.Context, path string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(l.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, notFound(path)
		}
		return time.Time{}, wrapError(CodeIO, path, err)
	}
	return info.ModTime(), nil
}

// copyTree copies a file or directory tree. Destinations are created before
// the source is touched, preserving the copy-then-delete move contract.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst)
	}
	return filepath.WalkDir(src, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(src, p)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
