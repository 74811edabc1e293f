package prefs

import (
	"context"
	"iter"

	"github.com/celerix-dev/celerix-prefs/internal/store"
	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// DefaultPageSize is the number of documents fetched per cursor round-trip.
const DefaultPageSize = 10

// ListIdentifiers returns a lazy sequence of the identifiers of the documents
// in category matching filter. The filter is handed to the store untouched.
//
// The store cursor is opened when iteration starts and read pageSize
// documents at a time until a page comes back empty. The sequence is single
// use: ranging over it a second time yields nothing. An error ends the
// sequence.
func ListIdentifiers(ctx context.Context, r store.DocumentReader, ns tenant.Namespace, category string, filter jsonv.Value, pageSize int) iter.Seq2[string, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	used := false
	return func(yield func(string, error) bool) {
		if used {
			return
		}
		used = true

		cur, err := r.Find(ctx, ns, category, filter)
		if err != nil {
			yield("", err)
			return
		}
		defer cur.Close()

		for {
			page, err := cur.Next(ctx, pageSize)
			if err != nil {
				yield("", err)
				return
			}
			if len(page) == 0 {
				return
			}
			for _, doc := range page {
				if !yield(doc.ID, nil) {
					return
				}
			}
		}
	}
}

// collect drains a sequence into a slice, stopping at the first error.
func collect(seq iter.Seq2[string, error]) ([]string, error) {
	out := make([]string, 0)
	for id, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
