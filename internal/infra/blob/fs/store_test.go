package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orgroster/internal/blob/core"
)

func newTempStore(t *testing.T, baseURL string) *Store {
	t.Helper()
	store, err := New(t.TempDir(), baseURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStorePutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t, "")
	info, err := store.Put(ctx, "logos/tech.png", bytes.NewReader([]byte("png!")), core.PutOptions{ContentType: "image/png", Metadata: map[string]string{"original_name": "tech.png"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "logos/tech.png" || info.Size != 4 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "logos/tech.png", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	head, err := store.Head(ctx, "logos/tech.png")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	got, rc, err := store.Get(ctx, "logos/tech.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "png!" || got.ETag != head.ETag || got.ContentType != "image/png" {
		t.Fatalf("unexpected get result %+v %q", got, body)
	}
	list, err := store.List(ctx, "logos/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "logos/tech.png" {
		t.Fatalf("unexpected list %+v", list)
	}
	ok, err := store.Delete(ctx, "logos/tech.png")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "logos/tech.png"); err != nil || ok {
		t.Fatalf("second delete should report false, got %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "logos/tech.png"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStoreReadsFilesWithoutSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t, "")
	path := filepath.Join(store.Root(), "images", "chess.jpg")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("jpeg"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := store.Head(ctx, "images/chess.jpg")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.Size != 4 {
		t.Fatalf("expected stat size, got %+v", info)
	}
	list, err := store.List(ctx, "")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected the plain file to be listed, got %v %v", list, err)
	}
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t, "")
	for _, key := range []string{"", "../escape.png", "/abs.png", "a/../../b"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
	if _, err := sanitizeKey("logos/./a.png"); err != nil {
		t.Fatalf("clean relative key rejected: %v", err)
	}
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStorePutReaderErrorLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t, "")
	if _, err := store.Put(ctx, "photos/bad.png", errorReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	list, err := store.List(ctx, "")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no objects, got %v %v", list, err)
	}
}

func TestStoreURL(t *testing.T) {
	ctx := context.Background()
	local := newTempStore(t, "")
	if _, err := local.Put(ctx, "logos/a.png", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	u, err := local.URL(ctx, "logos/a.png", core.URLOptions{})
	if err != nil || !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/logos/a.png") {
		t.Fatalf("unexpected file url %q %v", u, err)
	}
	if _, err := local.URL(ctx, "logos/missing.png", core.URLOptions{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing url, got %v", err)
	}

	served := newTempStore(t, "https://cdn.example.org/roster")
	if _, err := served.Put(ctx, "logos/a.png", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	u, err = served.URL(ctx, "logos/a.png", core.URLOptions{})
	if err != nil || u != "https://cdn.example.org/roster/logos/a.png" {
		t.Fatalf("unexpected base url %q %v", u, err)
	}
}

func TestStoreCorruptSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t, "")
	if _, err := store.Put(ctx, "x.png", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, metaPath, _ := store.pathFor("x.png")
	if err := os.WriteFile(metaPath, []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := store.Head(ctx, "x.png"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatalf("expected list error on corrupt sidecar")
	}
}

func TestNewRejectsFileRoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(file, ""); err == nil {
		t.Fatalf("expected error for file root")
	}
	if _, err := New(t.TempDir(), "://bad"); err == nil {
		t.Fatalf("expected base url parse error")
	}
}

func TestNewDefaultsToWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Root() != "." {
		t.Fatalf("unexpected root %q", store.Root())
	}
	if _, err := store.Put(context.Background(), "logos/a.png", bytes.NewReader([]byte("png!")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "logos", "a.png")); err != nil {
		t.Fatalf("expected key relative to working directory: %v", err)
	}
}
