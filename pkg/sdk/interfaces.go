package sdk

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for malformed requests.
	ErrInvalid = errors.New("invalid request")
	// ErrUnauthorized is returned when the tenant or token is rejected, or
	// the token lacks the needed capability.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is returned when a write would descend through a value
	// that is not an object.
	ErrConflict = errors.New("conflict")
)

// Error is a failure reported by the preference service.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Unwrap maps the status onto one of the package's sentinel errors so that
// callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrInvalid
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

// --- Functional Interfaces (Interface Segregation) ---

// DocumentReader reads documents, or the values at a path inside them.
type DocumentReader interface {
	Get(category, identifier string, path ...string) (any, error)
}

// DocumentWriter writes and deletes documents, or values at a path inside
// them. Writing with no path merges the top-level keys of val, which must
// be an object.
type DocumentWriter interface {
	Set(category, identifier string, val any, path ...string) error
	Delete(category, identifier string, path ...string) error
}

// Enumeration lists categories and document identifiers.
type Enumeration interface {
	Categories() ([]string, error)
	// List returns the identifiers of a category's documents. A non-nil
	// filter keeps only documents containing it.
	List(category string, filter map[string]any) ([]string, error)
}

// CategoryManager creates and drops categories.
type CategoryManager interface {
	CreateCategory(name string) error
	DropCategory(name string) error
	// DropAll removes every category of the tenant.
	DropAll() error
}

// --- Composite Interfaces ---

// PrefsStore is the primary interface for interacting with the preference
// service, remote or embedded.
type PrefsStore interface {
	DocumentReader
	DocumentWriter
	Enumeration
	CategoryManager

	// Category returns a scope pinned to one category.
	Category(name string) *CategoryScope
	Close() error
}

// route joins segments into a slash separated route. Trailing empty
// segments are omitted; an empty segment followed by a non-empty one, or a
// segment containing a slash or whitespace, is rejected.
func route(segs ...string) (string, error) {
	for len(segs) > 0 && segs[len(segs)-1] == "" {
		segs = segs[:len(segs)-1]
	}
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s == "" || strings.ContainsAny(s, "/ \t\r\n") {
			return "", &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf("invalid segment %q", s)}
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "/", nil
	}
	return strings.Join(parts, "/"), nil
}
