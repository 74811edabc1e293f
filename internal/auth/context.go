// Package auth turns request credentials into a resolved request context.
//
// Every request is resolved exactly once, before dispatch, into either an
// Authorized or a Rejected context. Downstream code only ever handles the
// Authorized variant.
package auth

import (
	"slices"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/schema"
)

// Context is the resolved authorization state of one request. It is either
// Authorized or Rejected.
type Context interface {
	resolved()
}

// Authorized carries the tenant namespace and the capabilities granted to the
// caller.
type Authorized struct {
	Tenant  tenant.Namespace
	Subject string
	Caps    []schema.Capability
}

// Rejected carries the reason a request may not proceed.
type Rejected struct {
	Reason string
}

func (Authorized) resolved() {}
func (Rejected) resolved()   {}

// Allows reports whether the context grants capability c.
func (a Authorized) Allows(c schema.Capability) bool {
	return slices.Contains(a.Caps, c)
}

// NewAuthorized returns a context with every capability, used when tokens are
// not required.
func NewAuthorized(ns tenant.Namespace) Authorized {
	return Authorized{Tenant: ns, Caps: schema.AllCapabilities}
}
