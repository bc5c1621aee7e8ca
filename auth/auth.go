// Package auth issues and verifies admin session tokens. Tokens are JWTs
// signed with HS256 by a pre-shared secret, and carry a Claims.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims of an admin session token.
type Claims struct {
	// Admin is true if the session holder proved knowledge of the admin password.
	Admin bool `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// NewKeyedAuth returns a KeyedAuth using the given pre-shared secrets, which
// are separated by commas.
//
// The first secret is used for signing tokens, and any secret may verify
// a presented token. This allows a secret to be rotated without ending
// existing sessions.
func NewKeyedAuth(secrets string) (*KeyedAuth, error) {
	var keys jwt.VerificationKeySet

	for _, secret := range strings.Split(secrets, ",") {
		if secret = strings.TrimSpace(secret); secret != "" {
			keys.Keys = append(keys.Keys, []byte(secret))
		}
	}
	if len(keys.Keys) == 0 {
		return nil, fmt.Errorf("at least one secret must be provided")
	}
	return &KeyedAuth{keys}, nil
}

// KeyedAuth issues and verifies tokens using symmetric, pre-shared keys.
type KeyedAuth struct {
	jwt.VerificationKeySet
}

// Authorize returns a signed token of |claims| which expires after |exp|.
func (k *KeyedAuth) Authorize(claims Claims, exp time.Duration) (string, error) {
	var now = time.Now()
	claims.ID = uuid.NewString()
	claims.IssuedAt = &jwt.NumericDate{Time: now}
	claims.ExpiresAt = &jwt.NumericDate{Time: now.Add(exp)}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.Keys[0])
}

// Verify the presented |token|, returning its Claims if it's valid and
// grants admin rights.
func (k *KeyedAuth) Verify(token string) (Claims, error) {
	var claims Claims

	if token == "" {
		return Claims{}, ErrMissingAuth
	} else if parsed, err := jwt.ParseWithClaims(token, &claims,
		func(token *jwt.Token) (interface{}, error) { return k.VerificationKeySet, nil },
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(time.Second*5),
		jwt.WithValidMethods([]string{"HS256", "HS384"}),
	); err != nil {
		return Claims{}, fmt.Errorf("verifying session: %w", err)
	} else if !parsed.Valid {
		panic("token.Valid must be true")
	} else if !claims.Admin {
		return Claims{}, ErrNotAdmin
	}
	return claims, nil
}

// CheckPassword returns whether |presented| equals |expected|, in time
// independent of their content.
func CheckPassword(expected, presented string) bool {
	return expected != "" && subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

var (
	ErrMissingAuth = errors.New("missing or empty session token")
	ErrNotAdmin    = errors.New("session does not grant admin rights")
)
