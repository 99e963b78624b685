package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	return NewLocal(t.TempDir())
}

func mustWrite(t *testing.T, h Handler, path, text string) {
	t.Helper()
	if err := h.WriteText(context.Background(), text, path); err != nil {
		t.Fatalf("WriteText(%s): %v", path, err)
	}
}

func TestLocalExists(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	ok, err := h.Exists(ctx, "/missing")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected missing path to not exist")
	}

	mustWrite(t, h, "/data/file.txt", "hello")
	ok, err = h.Exists(ctx, "/data/file.txt")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected written file to exist")
	}
	ok, _ = h.Exists(ctx, "/data")
	if !ok {
		t.Error("expected parent directory to exist")
	}
}

func TestLocalMkdirAllIdempotent(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := h.MkdirAll(ctx, "/a/b/c")
		if err != nil || !ok {
			t.Fatalf("MkdirAll attempt %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, _ := h.Exists(ctx, "/a/b/c")
	if !ok {
		t.Error("expected directory chain to exist")
	}
}

func TestLocalDelete(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	ok, err := h.Delete(ctx, "/missing")
	if err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if ok {
		t.Error("expected false for missing path")
	}

	mustWrite(t, h, "/dir/a.txt", "a")
	mustWrite(t, h, "/dir/sub/b.txt", "b")
	ok, err = h.Delete(ctx, "/dir")
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if exists, _ := h.Exists(ctx, "/dir/sub/b.txt"); exists {
		t.Error("expected recursive delete to remove nested files")
	}
}

func TestLocalMove(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	mustWrite(t, h, "/src/one.txt", "one")
	mustWrite(t, h, "/src/nested/two.txt", "two")

	ok, err := h.Move(ctx, "/src", "/dst")
	if err != nil || !ok {
		t.Fatalf("Move: ok=%v err=%v", ok, err)
	}
	if exists, _ := h.Exists(ctx, "/src"); exists {
		t.Error("expected source gone after move")
	}
	got, err := h.ReadText(ctx, "/dst/nested/two.txt")
	if err != nil {
		t.Fatalf("ReadText after move: %v", err)
	}
	if got != "two" {
		t.Errorf("moved content = %q, want %q", got, "two")
	}

	if _, err := h.Move(ctx, "/nope", "/dst2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Move missing source: err = %v, want ErrNotFound", err)
	}
}

func TestLocalCopyAndMoveFromLocal(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "upload.json")
	if err := os.WriteFile(src, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := h.CopyFromLocal(ctx, src, "/in/upload.json"); err != nil {
		t.Fatalf("CopyFromLocal: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected local source to survive copy: %v", err)
	}

	if err := h.MoveFromLocal(ctx, src, "/in/moved.json"); err != nil {
		t.Fatalf("MoveFromLocal: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("expected local source removed after move")
	}
	if got, _ := h.ReadText(ctx, "/in/moved.json"); got != `{"a":1}` {
		t.Errorf("moved content = %q", got)
	}
}

func TestLocalReadText(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	if _, err := h.ReadText(ctx, "/missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file: err = %v, want ErrNotFound", err)
	}

	mustWrite(t, h, "/ok.txt", "héllo wörld")
	got, err := h.ReadText(ctx, "/ok.txt")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "héllo wörld" {
		t.Errorf("ReadText = %q", got)
	}

	raw := []byte{0xff, 0xfe, 0x00, 0x80}
	if err := os.WriteFile(filepath.Join(h.root, "bad.bin"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = h.ReadText(ctx, "/bad.bin")
	var se *Error
	if !errors.As(err, &se) || se.Code != CodeDecode {
		t.Errorf("invalid UTF-8: err = %v, want code %s", err, CodeDecode)
	}
}

func TestLocalWriteTextReplaces(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	mustWrite(t, h, "/cfg/template.json", "v1")
	mustWrite(t, h, "/cfg/template.json", "v2")
	if got, _ := h.ReadText(ctx, "/cfg/template.json"); got != "v2" {
		t.Errorf("content after rewrite = %q, want v2", got)
	}

	if _, err := h.MkdirAll(ctx, "/cfg/dir"); err != nil {
		t.Fatal(err)
	}
	if err := h.WriteText(ctx, "x", "/cfg/dir"); err == nil {
		t.Error("expected error writing over a directory")
	}
}

func TestLocalListFilters(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	mustWrite(t, h, "/data/a.json", "{}")
	mustWrite(t, h, "/data/sub/b.json", "{}")
	mustWrite(t, h, "/data/c.csv", "x,y")
	if _, err := h.MkdirAll(ctx, "/data/empty"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		suffix string
		since  time.Time
		want   []string
	}{
		{
			name:   "suffix filter",
			suffix: ".json",
			want:   []string{"/data/a.json", "/data/sub/b.json"},
		},
		{
			name: "no suffix matches all files",
			want: []string{"/data/a.json", "/data/c.csv", "/data/sub/b.json"},
		},
		{
			name:   "since in the future excludes everything",
			suffix: ".json",
			since:  time.Now().Add(time.Hour),
			want:   nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.List(ctx, "/data", tc.suffix, tc.since)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("List = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("List[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}

	if _, err := h.List(ctx, "/nope", "", time.Time{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("List missing dir: err = %v, want ErrNotFound", err)
	}
}

func TestLocalContentSummary(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	mustWrite(t, h, "/tree/a.txt", "12345")
	mustWrite(t, h, "/tree/sub/b.txt", "123")

	summary, err := h.ContentSummary(ctx, "/tree")
	if err != nil {
		t.Fatalf("ContentSummary: %v", err)
	}
	if summary.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", summary.FileCount)
	}
	if summary.Length != 8 {
		t.Errorf("Length = %d, want 8", summary.Length)
	}

	space, err := h.SpaceConsumed(ctx, "/tree")
	if err != nil {
		t.Fatalf("SpaceConsumed: %v", err)
	}
	if space != summary.Length {
		t.Errorf("SpaceConsumed = %d, want %d", space, summary.Length)
	}
}

func TestLocalBlockSizeAndLastModified(t *testing.T) {
	h := newTestLocal(t)
	ctx := context.Background()

	mustWrite(t, h, "/f.txt", "data")

	bs, err := h.BlockSize(ctx, "/f.txt")
	if err != nil {
		t.Fatalf("BlockSize: %v", err)
	}
	if bs != DefaultBlockSize {
		t.Errorf("BlockSize = %d, want %d", bs, DefaultBlockSize)
	}
	if _, err := h.BlockSize(ctx, "/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("BlockSize missing: err = %v, want ErrNotFound", err)
	}

	mod, err := h.LastModified(ctx, "/f.txt")
	if err != nil {
		t.Fatalf("LastModified: %v", err)
	}
	if time.Since(mod) > time.Minute {
		t.Errorf("LastModified = %v, want recent", mod)
	}
}
