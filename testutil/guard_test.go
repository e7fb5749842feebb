package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type recordingT struct {
	testing.TB
	failed bool
	msg    string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.failed = true
	r.msg = format
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportsSkipsTestsAndDedupes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package x\n\nimport (\n\t\"fmt\"\n\t\"orgroster/internal/core\"\n)\n")
	writeFile(t, dir, "b.go", "package x\n\nimport \"fmt\"\n")
	writeFile(t, dir, "a_test.go", "package x\n\nimport \"modernc.org/sqlite\"\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := DirectImports(dir)
	if err != nil {
		t.Fatalf("DirectImports: %v", err)
	}
	if want := []string{"fmt", "orgroster/internal/core"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	rec := &recordingT{TB: t}
	AssertNoDirectImports(rec, dir, InternalImportForbidden, "domain must stay independent")
	if !rec.failed {
		t.Fatalf("expected internal import to be reported")
	}
	rec = &recordingT{TB: t}
	AssertNoDirectImports(rec, dir, StorageImportForbidden, "no storage")
	if rec.failed {
		t.Fatalf("did not expect storage violation")
	}
}

func TestDirectImportsParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package\n")
	if _, err := DirectImports(dir); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := DirectImports(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		path                       string
		internal, storage, foreign bool
	}{
		{"fmt", false, false, false},
		{"database/sql", false, true, false},
		{"orgroster/internal/query", true, false, false},
		{"orgroster/internal/infra/persistence/sqlite", true, true, false},
		{"orgroster/internal/blob/core", true, true, false},
		{"orgroster/pkg/domain", false, false, false},
		{"github.com/rs/zerolog", false, false, true},
		{"github.com/jackc/pgx/v5/stdlib", false, true, true},
		{"modernc.org/sqlite", false, true, true},
	}
	for _, tc := range cases {
		if got := InternalImportForbidden(tc.path); got != tc.internal {
			t.Fatalf("InternalImportForbidden(%q) = %v", tc.path, got)
		}
		if got := StorageImportForbidden(tc.path); got != tc.storage {
			t.Fatalf("StorageImportForbidden(%q) = %v", tc.path, got)
		}
		if got := ThirdPartyImport(tc.path); got != tc.foreign {
			t.Fatalf("ThirdPartyImport(%q) = %v", tc.path, got)
		}
	}
}
