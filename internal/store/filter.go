package store

import "github.com/celerix-dev/celerix-prefs/pkg/jsonv"

// Match reports whether body satisfies filter. A null or empty filter matches
// everything. Every member of an object filter must be present in body; object
// members match recursively as subsets, anything else must be equal.
func Match(body, filter jsonv.Value) bool {
	if filter.IsNull() {
		return true
	}
	if !filter.IsObject() {
		return body.Equal(filter)
	}
	if !body.IsObject() {
		return filter.Len() == 0
	}
	for _, k := range filter.Keys() {
		want, _ := filter.Get(k)
		got, ok := body.Get(k)
		if !ok {
			return false
		}
		if want.IsObject() && got.IsObject() {
			if !Match(got, want) {
				return false
			}
			continue
		}
		if !got.Equal(want) {
			return false
		}
	}
	return true
}
