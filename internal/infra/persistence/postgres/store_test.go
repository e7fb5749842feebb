package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"orgroster/internal/infra/persistence/postgres/testutil"
	"orgroster/pkg/domain"
)

func stubStore(t *testing.T, opts ...Option) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	opts = append([]Option{WithConnectRetry(3, time.Millisecond)}, opts...)
	store, err := NewStore(context.Background(), "", opts...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, conn
}

func sampleDocument() domain.Document {
	doc := domain.Document{Organizations: []domain.Organization{{
		ID:       3,
		Name:     "Chess Club",
		LogoPath: domain.NoPhoto,
		Officers: []domain.Officer{{Name: "Mara", Position: "President", StartDate: "2024-06-01"}},
		Members:  []domain.Member{{Name: "Lee", Position: "Member", Status: "Active", JoinDate: "2024-02-02"}},
		Events:   []domain.Event{{Name: "Open", Date: "2024-09-09"}},
	}}}
	doc.Normalize()
	return doc
}

func TestNewStoreCreatesStateTable(t *testing.T) {
	_, conn := stubStore(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") && strings.Contains(stmt, "JSONB") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}
}

func TestNewStoreRetriesPing(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPings = 2
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	var notified int
	store, err := NewStore(context.Background(), "ignored",
		WithConnectRetry(5, time.Millisecond),
		WithRetryNotify(func(error, time.Duration) { notified++ }))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()
	if notified != 2 {
		t.Fatalf("expected two retry notifications, got %d", notified)
	}
}

func TestNewStoreGivesUpAfterRetries(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPings = 100
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "", WithConnectRetry(2, time.Millisecond)); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestNewStoreOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestLoadWithoutSnapshot(t *testing.T) {
	store, _ := stubStore(t)
	doc, err := store.Load(context.Background())
	if !errors.Is(err, domain.ErrPersistence) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing snapshot error, got %v", err)
	}
	if doc.Organizations == nil || len(doc.Organizations) != 0 {
		t.Fatalf("expected empty document")
	}
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	store, conn := stubStore(t)
	want := sampleDocument()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	want.Organizations[0].Brief = "Moves"
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if rows := conn.Rows("state"); len(rows) != 1 {
		t.Fatalf("expected one snapshot row, got %d", len(rows))
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("loaded document differs:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	cases := map[string]func(*testutil.StubConn){
		"query": func(c *testutil.StubConn) { c.FailQuery = true },
		"rows":  func(c *testutil.StubConn) { c.RowsErr = errors.New("rows fail") },
		"decode": func(c *testutil.StubConn) {
			c.Tables["state"] = []map[string]any{{"bucket": documentBucket, "payload": []byte("{")}}
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			store, conn := stubStore(t)
			setup(conn)
			if _, err := store.Load(ctx); !errors.Is(err, domain.ErrPersistence) {
				t.Fatalf("expected persistence error, got %v", err)
			}
		})
	}
}

func TestSaveErrors(t *testing.T) {
	ctx := context.Background()
	cases := map[string]func(*testutil.StubConn){
		"begin":  func(c *testutil.StubConn) { c.FailBegin = true },
		"exec":   func(c *testutil.StubConn) { c.FailExec = true },
		"commit": func(c *testutil.StubConn) { c.FailCommit = true },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			store, conn := stubStore(t)
			setup(conn)
			if err := store.Save(ctx, sampleDocument()); !errors.Is(err, domain.ErrPersistence) {
				t.Fatalf("expected persistence error, got %v", err)
			}
		})
	}
}

func TestStrictSaveRejectsInvalidDocument(t *testing.T) {
	store, conn := stubStore(t, WithStrict(true))
	doc := sampleDocument()
	doc.Organizations = append(doc.Organizations, doc.Organizations[0])
	if err := store.Save(context.Background(), doc); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rows := conn.Rows("state"); len(rows) != 0 {
		t.Fatalf("invalid document must not be written")
	}
}
