package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"orgroster/internal/config"
	"orgroster/internal/infra/persistence/jsonfile"
	"orgroster/internal/infra/persistence/memory"
	"orgroster/internal/infra/persistence/sqlite"
)

func TestOpenDocumentStoreDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenDocumentStore(ctx, config.Storage{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("default driver: %v", err)
	}
	if _, ok := store.(*jsonfile.Store); !ok {
		t.Fatalf("expected json store by default, got %T", store)
	}

	store, err = OpenDocumentStore(ctx, config.Storage{Driver: "memory"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	store, err = OpenDocumentStore(ctx, config.Storage{Driver: "sqlite", SQLitePath: filepath.Join(dir, "r.db")}, zerolog.Nop())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
}

func TestOpenDocumentStoreUnknownDriver(t *testing.T) {
	if _, err := OpenDocumentStore(context.Background(), config.Storage{Driver: "mongo"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestJSONStoreServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "organizations_data.json")
	store, err := OpenDocumentStore(ctx, config.Storage{Driver: "json", DataPath: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	svc := NewService(store)
	if err := svc.ReplaceDocument(ctx, fixture()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	reloaded := NewService(store)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Document(); len(got.Organizations) != 2 || got.Organizations[0].Branches[0].Name != "Tech Subgroup" {
		t.Fatalf("unexpected reloaded document %+v", got)
	}
}
