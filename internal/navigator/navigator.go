// Package navigator reads, deep-creates, merges and deletes values at a path
// inside a document body.
//
// All functions are pure: they never modify the body they are given. Missing
// paths degrade to an empty object on Get and to a no-op on Delete; only Set
// can fail, with ErrConflict, when a path runs through a non-object member.
package navigator

import (
	"errors"
	"fmt"

	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// ErrConflict is returned by Set when an existing intermediate member is not
// an object.
var ErrConflict = errors.New("path conflicts with existing value")

// ConflictError reports where a Set was blocked.
type ConflictError struct {
	// Path is the prefix whose value is not an object.
	Path jsonv.Path
	Kind jsonv.Kind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s at %q holds a %s", ErrConflict, e.Path.String(), e.Kind)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Get returns the value at path. The root path yields the whole body. When
// any segment is missing, or the walk reaches a non-object, the result is an
// empty object.
func Get(body jsonv.Value, path jsonv.Path) jsonv.Value {
	cur := body
	for _, seg := range path {
		next, ok := cur.Get(seg)
		if !ok {
			return jsonv.NewObject()
		}
		cur = next
	}
	return cur
}

// Build creates a fresh body holding value at path, wrapping one object per
// segment from the innermost outwards.
func Build(path jsonv.Path, value jsonv.Value) jsonv.Value {
	if path.IsRoot() {
		return value
	}
	cur := value
	for i := len(path) - 1; i >= 0; i-- {
		wrap := jsonv.NewObject()
		wrap.Set(path[i], cur)
		cur = wrap
	}
	return cur
}

// Set returns a copy of body with value stored at path. Missing intermediate
// objects are created. At the final segment the value replaces whatever was
// there; sibling members are untouched. If an existing intermediate member
// is not an object, Set returns a *ConflictError and body is left as is.
//
// Set requires a non-root path and an object body.
func Set(body jsonv.Value, path jsonv.Path, value jsonv.Value) (jsonv.Value, error) {
	if path.IsRoot() {
		return jsonv.Value{}, errors.New("navigator: set requires a non-empty path")
	}
	if !body.IsObject() {
		return jsonv.Value{}, &ConflictError{Kind: body.Kind()}
	}

	// Walk first so that a conflict is detected before anything is copied.
	cur := body
	for i, seg := range path.Parent() {
		next, ok := cur.Get(seg)
		if !ok {
			break
		}
		if !next.IsObject() {
			return jsonv.Value{}, &ConflictError{Path: path[:i+1], Kind: next.Kind()}
		}
		cur = next
	}

	out := body.Clone()
	parents := make([]jsonv.Value, 0, len(path))
	node := out
	for _, seg := range path.Parent() {
		next, ok := node.Get(seg)
		if !ok {
			next = jsonv.NewObject()
		}
		parents = append(parents, node)
		node = next
	}
	node.Set(path.Last(), value)

	// Objects share their member maps, so re-linking each child into its
	// parent only matters for objects that were created during the walk.
	for i := len(parents) - 1; i >= 0; i-- {
		parents[i].Set(path[i], node)
		node = parents[i]
	}
	return out, nil
}

// Delete returns a copy of body with the member at path removed and reports
// whether anything was removed. A path that does not exist is not an error.
// Deleting the root path is a no-op.
func Delete(body jsonv.Value, path jsonv.Path) (jsonv.Value, bool) {
	if path.IsRoot() {
		return body, false
	}
	parent := body
	for _, seg := range path.Parent() {
		next, ok := parent.Get(seg)
		if !ok || !next.IsObject() {
			return body, false
		}
		parent = next
	}
	if !parent.Has(path.Last()) {
		return body, false
	}

	out := body.Clone()
	node := out
	for _, seg := range path.Parent() {
		node, _ = node.Get(seg)
	}
	node.Remove(path.Last())
	return out, true
}
