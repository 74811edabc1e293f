package prefs

import (
	"context"
	"errors"
	"strings"

	perrors "github.com/celerix-dev/celerix-prefs/internal/errors"
	"github.com/celerix-dev/celerix-prefs/internal/store"
	"github.com/celerix-dev/celerix-prefs/internal/tenant"
)

// IsReserved reports whether a category name belongs to the backing store
// and must never be listed, created or addressed by clients.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, "system.")
}

// Catalog manages the categories of a tenant namespace.
type Catalog struct {
	store store.Adapter
}

// NewCatalog returns a Catalog over a store.
func NewCatalog(s store.Adapter) *Catalog {
	return &Catalog{store: s}
}

// ListCategories returns the visible categories of ns, sorted.
func (c *Catalog) ListCategories(ctx context.Context, ns tenant.Namespace) ([]string, error) {
	names, err := c.store.ListCategories(ctx, ns)
	if err != nil {
		return nil, perrors.Wrap(perrors.EInternal, "prefs.ListCategories", err)
	}
	visible := make([]string, 0, len(names))
	for _, name := range names {
		if !IsReserved(name) {
			visible = append(visible, name)
		}
	}
	return visible, nil
}

// CreateCategory creates an empty category. An existing category is a
// conflict.
func (c *Catalog) CreateCategory(ctx context.Context, ns tenant.Namespace, name string) error {
	const op = "prefs.CreateCategory"
	if IsReserved(name) {
		return perrors.New(perrors.EInvalid, op, "category name %q is reserved", name)
	}
	err := c.store.CreateCategory(ctx, ns, name)
	switch {
	case errors.Is(err, store.ErrCategoryExists):
		return perrors.New(perrors.EConflict, op, "category %q already exists", name)
	case err != nil:
		return perrors.Wrap(perrors.EInternal, op, err)
	}
	return nil
}

// DropCategory removes a category and every document in it.
func (c *Catalog) DropCategory(ctx context.Context, ns tenant.Namespace, name string) error {
	if err := c.store.DropCategory(ctx, ns, name); err != nil {
		return perrors.Wrap(perrors.EInternal, "prefs.DropCategory", err)
	}
	return nil
}

// DropNamespace removes every category of ns.
func (c *Catalog) DropNamespace(ctx context.Context, ns tenant.Namespace) error {
	if err := c.store.DropNamespace(ctx, ns); err != nil {
		return perrors.Wrap(perrors.EInternal, "prefs.DropNamespace", err)
	}
	return nil
}
