package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// migrateBatch is the number of documents copied per cursor round-trip.
const migrateBatch = 100

// Migrate copies every namespace, category and document from src to dst.
// This works for any pair of backends, e.g. file -> sqlite when outgrowing
// the file backend, or bolt -> file for a readable backup.
func Migrate(ctx context.Context, src, dst Adapter) error {
	// 1. Get all namespaces from the source
	namespaces, err := src.ListNamespaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list namespaces: %w", err)
	}

	for _, ns := range namespaces {
		// 2. Get all categories for this namespace
		categories, err := src.ListCategories(ctx, ns)
		if err != nil {
			return fmt.Errorf("failed to list categories for namespace %s: %w", ns, err)
		}

		for _, category := range categories {
			// 3. Recreate the category so that empty ones survive
			if err := dst.CreateCategory(ctx, ns, category); err != nil && !errors.Is(err, ErrCategoryExists) {
				return fmt.Errorf("failed to create category %s/%s: %w", ns, category, err)
			}

			// 4. Push every document into the destination
			if err := copyCategory(ctx, src, dst, ns, category); err != nil {
				return err
			}
		}
	}

	return nil
}

func copyCategory(ctx context.Context, src, dst Adapter, ns tenant.Namespace, category string) error {
	cur, err := src.Find(ctx, ns, category, jsonv.NullValue())
	if err != nil {
		return fmt.Errorf("failed to scan category %s/%s: %w", ns, category, err)
	}
	defer cur.Close()

	for {
		batch, err := cur.Next(ctx, migrateBatch)
		if err != nil {
			return fmt.Errorf("failed to scan category %s/%s: %w", ns, category, err)
		}
		if len(batch) == 0 {
			return nil
		}
		for _, doc := range batch {
			if err := dst.Save(ctx, ns, category, doc); err != nil {
				return fmt.Errorf("failed to save document %s in destination: %w", doc.ID, err)
			}
		}
	}
}
