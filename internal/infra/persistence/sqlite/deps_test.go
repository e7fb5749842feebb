package sqlite

import (
	"strings"
	"testing"

	"orgroster/testutil"
)

func TestStoreDependsOnDomainOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		return strings.HasPrefix(path, "orgroster/") && path != "orgroster/pkg/domain"
	}, "stores implement the domain contract and nothing else")
}
