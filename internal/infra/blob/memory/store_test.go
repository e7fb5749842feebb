package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"orgroster/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, err := s.Head(ctx, "logos/a.png"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	meta := map[string]string{"original_name": "a.png"}
	info, err := s.Put(ctx, "logos/a.png", strings.NewReader("abc"), core.PutOptions{ContentType: "image/png", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["original_name"] = "changed"
	if info.Size != 3 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "logos/a.png", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := s.Get(ctx, "logos/a.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "abc" || got.Metadata["original_name"] != "a.png" {
		t.Fatalf("stored object aliased caller state: %+v %q", got, body)
	}
	if _, err := s.Put(ctx, "photos/b.png", strings.NewReader("b"), core.PutOptions{}); err != nil {
		t.Fatalf("put photo: %v", err)
	}
	list, _ := s.List(ctx, "logos/")
	if len(list) != 1 || list[0].Key != "logos/a.png" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 || all[0].Key != "logos/a.png" {
		t.Fatalf("expected sorted full list, got %+v", all)
	}
	if _, err := s.URL(ctx, "logos/a.png", core.URLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if ok, _ := s.Delete(ctx, "logos/a.png"); !ok {
		t.Fatalf("expected delete to report existing")
	}
	if ok, _ := s.Delete(ctx, "logos/a.png"); ok {
		t.Fatalf("expected second delete to report missing")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read fail") }

func TestStorePutErrors(t *testing.T) {
	s := New()
	if _, err := s.Put(context.Background(), "k", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := s.Put(context.Background(), " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}
