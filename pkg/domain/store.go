package domain

import "context"

// DocumentStore loads and persists the whole roster document. There are no
// partial writes: every Save replaces the stored document.
//
// Load never fails hard. When the stored document is missing or cannot be
// decoded it returns an empty, normalized Document together with a
// *PersistenceError describing why.
type DocumentStore interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
	Close() error
}

// EmptyDocument returns the document used when nothing could be loaded.
func EmptyDocument() Document {
	return Document{Organizations: []Organization{}}
}
