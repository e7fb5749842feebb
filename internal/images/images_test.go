package images

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"orgroster/internal/blob"
	"orgroster/pkg/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func TestResolveTreatsSentinelEmptyAndMissingAlike(t *testing.T) {
	ctx := context.Background()
	r := New(blob.NewMemory())
	for _, p := range []string{domain.NoPhoto, "", "   ", "images/missing.png", "/home/ruben/Pictures/logo.png", "../logo.png"} {
		ref, err := r.Resolve(ctx, p)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", p, err)
		}
		if ref.Present {
			t.Fatalf("Resolve(%q) reported an image", p)
		}
		u, err := r.URL(ctx, p)
		if err != nil || u != "" {
			t.Fatalf("URL(%q) = %q, %v", p, u, err)
		}
	}
}

func TestImportThenResolve(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	r := New(store)
	key, err := r.Import(ctx, KindLogo, `C:\Users\me\Tech.PNG`, bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.HasPrefix(key, "logos/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	again, err := r.Import(ctx, KindLogo, "copy.png", bytes.NewReader(pngHeader))
	if err != nil || again != key {
		t.Fatalf("expected dedupe to %q, got %q %v", key, again, err)
	}
	ref, err := r.Resolve(ctx, "./"+key)
	if err != nil || !ref.Present || ref.Info.ContentType != "image/png" {
		t.Fatalf("unexpected ref %+v %v", ref, err)
	}
	if _, err := r.URL(ctx, key); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("memory store has no urls, got %v", err)
	}
}

func TestImportRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	r := New(blob.NewMemory())
	if _, err := r.Import(ctx, "banners", "a.png", bytes.NewReader(pngHeader)); err == nil {
		t.Fatalf("expected kind error")
	}
	if _, err := r.Import(ctx, KindPhoto, "a.png", bytes.NewReader(nil)); err == nil {
		t.Fatalf("expected empty error")
	}
	if _, err := r.Import(ctx, KindPhoto, "notes.txt", strings.NewReader("hello")); err == nil {
		t.Fatalf("expected non-image error")
	}
	big := bytes.Repeat([]byte{0}, MaxImageBytes+1)
	if _, err := r.Import(ctx, KindPhoto, "big.png", bytes.NewReader(big)); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestURLFromFilesystemStore(t *testing.T) {
	ctx := context.Background()
	store, err := blob.NewFilesystem(t.TempDir(), "https://img.example.org")
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	r := New(store)
	key, err := r.Import(ctx, KindPhoto, "ruben.jpg", bytes.NewReader([]byte("\xff\xd8\xff\xe0jpeg")))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	u, err := r.URL(ctx, key)
	if err != nil || u != "https://img.example.org/"+key {
		t.Fatalf("unexpected url %q %v", u, err)
	}
}

func TestURLFromS3Store(t *testing.T) {
	ctx := context.Background()
	r := New(blob.NewMockS3ForTests())
	key, err := r.Import(ctx, KindLogo, "club.png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	u, err := r.URL(ctx, key)
	if err != nil || !strings.Contains(u, "X-Amz-Signature") {
		t.Fatalf("expected presigned url, got %q %v", u, err)
	}
}

func TestResolveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store, err := blob.NewFilesystem(t.TempDir(), "")
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	if _, err := New(store).Resolve(ctx, "logos/a.png"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
