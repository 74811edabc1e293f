package auth

import (
	"context"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
)

// Resolver produces the request Context from the raw tenant and token
// strings a transport extracted.
type Resolver struct {
	verifier Verifier
}

// NewResolver returns a Resolver. With a nil verifier tokens are not
// required and every request with a well-formed tenant is fully authorized.
func NewResolver(v Verifier) *Resolver {
	return &Resolver{verifier: v}
}

// TokensRequired reports whether requests must carry a token.
func (r *Resolver) TokensRequired() bool {
	return r.verifier != nil
}

// Resolve never fails; problems become a Rejected context.
func (r *Resolver) Resolve(ctx context.Context, tenantToken, token string) Context {
	if tenantToken == "" {
		return Rejected{Reason: "missing tenant"}
	}
	ns, err := tenant.Resolve(tenantToken)
	if err != nil {
		return Rejected{Reason: "malformed tenant"}
	}

	if r.verifier == nil {
		return NewAuthorized(ns)
	}
	if token == "" {
		return Rejected{Reason: "missing token"}
	}

	id, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return Rejected{Reason: "invalid token"}
	}
	if id.Tenant != "" && id.Tenant != ns.String() {
		return Rejected{Reason: "token not valid for tenant"}
	}
	return Authorized{Tenant: ns, Subject: id.Subject, Caps: id.Caps}
}
