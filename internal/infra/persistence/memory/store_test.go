package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"orgroster/pkg/domain"
)

func seed() domain.Document {
	return domain.Document{Organizations: []domain.Organization{{
		ID:      1,
		Name:    "Tech Society",
		Members: []domain.Member{{Name: "Alice", Position: "Member", Status: "Active", JoinDate: "2024-01-01"}},
		Branches: []domain.Organization{
			{ID: 1, Name: "Tech Subgroup", IsBranch: true},
		},
	}}}
}

func TestEmptyStoreLoadsEmptyDocument(t *testing.T) {
	doc, err := NewStore().Load(context.Background())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if doc.Organizations == nil || len(doc.Organizations) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestLoadDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWith(seed())
	doc, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	doc.Organizations[0].Members[0].Position = "President"
	again, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Organizations[0].Members[0].Position != "Member" {
		t.Fatalf("load returned aliased state")
	}
	if again.Organizations[0].Branches[0].Ref() != (domain.Ref{ID: 1, Branch: true, Nested: true, ParentID: 1}) {
		t.Fatalf("expected normalized refs, got %+v", again.Organizations[0].Branches[0].Ref())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWith(seed())
	first, _ := store.Load(ctx)
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("round trip changed content")
	}
	if store.Saves() != 1 {
		t.Fatalf("expected one save, got %d", store.Saves())
	}
}

func TestFailSaves(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWith(seed())
	store.FailSaves(errors.New("disk full"))
	if err := store.Save(ctx, domain.EmptyDocument()); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if got := store.ExportState(); len(got.Organizations) != 1 {
		t.Fatalf("failed save must keep previous state")
	}
	store.FailSaves(nil)
	if err := store.Save(ctx, domain.EmptyDocument()); err != nil {
		t.Fatalf("save after restore: %v", err)
	}
}
