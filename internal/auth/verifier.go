package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/celerix-dev/celerix-prefs/pkg/schema"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Identity is what a verified token says about its bearer.
type Identity struct {
	Subject string
	// Tenant is empty for tokens valid for any tenant.
	Tenant  string
	Caps    []schema.Capability
	Expires time.Time
}

// Verifier verifies an opaque access token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWTVerifier verifies HMAC signed JWTs carrying schema.Claims.
type JWTVerifier struct {
	secret []byte
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier returns a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	// Check for expected signing method.
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret, nil
}

// Verify parses and validates the token. Expiry and not-before are checked
// by the claims themselves.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims := &schema.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{
		Subject: claims.Subject,
		Tenant:  claims.Tenant,
		Caps:    claims.Caps,
	}
	if claims.ExpiresAt != nil {
		id.Expires = claims.ExpiresAt.Time
	}
	return id, nil
}

// Mint signs claims with secret using HS256.
func Mint(secret string, claims schema.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
