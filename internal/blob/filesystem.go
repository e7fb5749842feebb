package blob

import (
	"orgroster/internal/infra/blob/fs"
)

// NewFilesystem returns a Store rooted at root. Image paths already present
// in the roster document are resolved relative to root.
func NewFilesystem(root, baseURL string) (Store, error) {
	return fs.New(root, baseURL)
}
