// Package store defines the Document Store Adapter and its backends.
//
// An adapter offers point CRUD over single documents addressed by namespace,
// category and identifier, filtered batch cursors, and category and namespace
// management. It knows nothing about paths inside a document.
package store

import (
	"context"
	"errors"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrCategoryExists is returned by CreateCategory for an existing category.
	ErrCategoryExists = errors.New("category already exists")
	// ErrClosed is returned by operations on a closed adapter.
	ErrClosed = errors.New("store closed")
)

// Document is one stored record: its identifier and its body. The body of a
// stored document is always an object.
type Document struct {
	ID   string
	Body jsonv.Value
}

// --- Functional Interfaces (Interface Segregation) ---

// DocumentReader defines point reads and filtered scans.
type DocumentReader interface {
	// FindOne returns the document or ErrNotFound.
	FindOne(ctx context.Context, ns tenant.Namespace, category, id string) (Document, error)
	// Find returns a cursor over the documents of a category matching filter.
	// A missing category yields an empty cursor.
	Find(ctx context.Context, ns tenant.Namespace, category string, filter jsonv.Value) (Cursor, error)
}

// DocumentWriter defines whole-document writes.
type DocumentWriter interface {
	// Save inserts or replaces a document, creating its category if needed.
	Save(ctx context.Context, ns tenant.Namespace, category string, doc Document) error
	// Remove deletes a document or returns ErrNotFound.
	Remove(ctx context.Context, ns tenant.Namespace, category, id string) error
}

// CategoryManager allows creating, listing and dropping categories.
type CategoryManager interface {
	CreateCategory(ctx context.Context, ns tenant.Namespace, name string) error
	ListCategories(ctx context.Context, ns tenant.Namespace) ([]string, error)
	DropCategory(ctx context.Context, ns tenant.Namespace, name string) error
}

// NamespaceManager allows enumerating and wiping whole namespaces.
type NamespaceManager interface {
	ListNamespaces(ctx context.Context) ([]tenant.Namespace, error)
	DropNamespace(ctx context.Context, ns tenant.Namespace) error
}

// --- Composite Interfaces ---

// Adapter is the complete contract every backend implements.
type Adapter interface {
	DocumentReader
	DocumentWriter
	CategoryManager
	NamespaceManager

	Close() error
}

// Cursor yields batches of documents. A batch shorter than requested does
// not mean the cursor is exhausted; only an empty batch does.
type Cursor interface {
	Next(ctx context.Context, n int) ([]Document, error)
	Close() error
}

// sliceCursor serves batches from a snapshot taken when the cursor was opened.
type sliceCursor struct {
	docs []Document
	pos  int
}

func (c *sliceCursor) Next(_ context.Context, n int) ([]Document, error) {
	if n <= 0 || c.pos >= len(c.docs) {
		return nil, nil
	}
	end := min(c.pos+n, len(c.docs))
	batch := c.docs[c.pos:end]
	c.pos = end
	return batch, nil
}

func (c *sliceCursor) Close() error {
	c.docs = nil
	return nil
}
