// Package testutil provides helpers for enforcing package boundary rules in
// tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const modulePath = "orgroster"

// DirectImports returns the sorted, de-duplicated import paths of the
// non-test .go files in dir. Build tags are not evaluated.
func DirectImports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	seen := make(map[string]struct{})
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			seen[strings.Trim(imp.Path.Value, `"`)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// AssertNoDirectImports fails t when a non-test file in dir imports a path
// matched by forbidden. reason is included in the failure.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	imports, err := DirectImports(dir)
	if err != nil {
		t.Fatalf("read imports of %s: %v", dir, err)
	}
	if viols := violations(imports, forbidden); len(viols) > 0 {
		t.Fatalf("forbidden imports in %s (%s):\n%s", dir, reason, strings.Join(viols, "\n"))
	}
}

func violations(imports []string, forbidden func(string) bool) []string {
	var out []string
	for _, imp := range imports {
		if forbidden(imp) {
			out = append(out, imp)
		}
	}
	return out
}

// InternalImportForbidden matches packages under orgroster/internal.
func InternalImportForbidden(path string) bool {
	return strings.HasPrefix(path, modulePath+"/internal/")
}

// StorageImportForbidden matches persistence and blob infrastructure and the
// third-party clients behind it.
func StorageImportForbidden(path string) bool {
	for _, prefix := range []string{
		modulePath + "/internal/infra/",
		modulePath + "/internal/blob",
		"database/sql",
		"modernc.org/sqlite",
		"github.com/jackc/pgx",
		"github.com/aws/",
	} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ThirdPartyImport matches any import outside the standard library and this
// module.
func ThirdPartyImport(path string) bool {
	if strings.HasPrefix(path, modulePath+"/") {
		return false
	}
	first, _, _ := strings.Cut(path, "/")
	return strings.Contains(first, ".")
}
