// Package tenant maps opaque tenant tokens onto isolated storage namespaces.
package tenant

import (
	"errors"
	"regexp"
)

// ErrMalformed is returned for tokens that cannot name a namespace.
var ErrMalformed = errors.New("malformed tenant identifier")

// Tokens end up in file names and bucket keys, so the alphabet is kept narrow.
var wellFormed = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// Namespace is the isolated partition owned by one tenant. The zero value is
// not a valid namespace.
type Namespace struct {
	name string
}

// Resolve maps a tenant token onto its namespace. Only the token's shape is
// checked; trust is established before the request reaches this point.
func Resolve(token string) (Namespace, error) {
	if !wellFormed.MatchString(token) {
		return Namespace{}, ErrMalformed
	}
	return Namespace{name: token}, nil
}

// MustResolve is like Resolve but panics on a malformed token.
func MustResolve(token string) Namespace {
	ns, err := Resolve(token)
	if err != nil {
		panic(err)
	}
	return ns
}

func (n Namespace) String() string { return n.name }

// Valid reports whether n was produced by Resolve.
func (n Namespace) Valid() bool { return n.name != "" }
