// Package schema defines the wire-level structures shared by the prefs server,
// its SDK and its tooling.
package schema

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Request headers understood by the HTTP API.
const (
	// HeaderProjectID carries the tenant. It takes precedence over HeaderTenantID.
	HeaderProjectID = "X-Project-Id"
	HeaderTenantID  = "X-Tenant-Id"
	HeaderAuthToken = "X-Auth-Token"
	HeaderRequestID = "X-Request-Id"
)

// Capability is a verb family a token may grant.
type Capability string

const (
	// CapabilityRead permits reads and listings.
	CapabilityRead Capability = "read"
	// CapabilityWrite permits writes and deletes.
	CapabilityWrite Capability = "write"
)

// AllCapabilities is granted when tokens are not required.
var AllCapabilities = []Capability{CapabilityRead, CapabilityWrite}

// ParseCapabilities parses a comma separated list such as "read,write".
func ParseCapabilities(s string) ([]Capability, error) {
	var caps []Capability
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch c := Capability(part); c {
		case CapabilityRead, CapabilityWrite:
			caps = append(caps, c)
		default:
			return nil, fmt.Errorf("unknown capability %q", part)
		}
	}
	return caps, nil
}

// Claims are the claims of a prefs access token. Tenant, when set, pins the
// token to one tenant.
type Claims struct {
	Tenant string       `json:"tenant,omitempty"`
	Caps   []Capability `json:"caps,omitempty"`
	jwt.RegisteredClaims
}

// ErrorResponse is the body of every failed HTTP request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
