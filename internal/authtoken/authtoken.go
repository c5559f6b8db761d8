// Package authtoken generates and checks the process-unique bearer token
// that guards every HTTP request and WebSocket upgrade.
//
// The token is 24 random bytes, base64url-encoded, generated once when a
// Token is created and never persisted — its lifetime is the server's
// lifetime (spec §3, §6). Checks are constant-time to avoid leaking how
// many leading bytes matched.
package authtoken

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const tokenBytes = 24

// Token is a process-unique random secret.
type Token struct {
	value string
}

// New generates a fresh random token.
func New() (*Token, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("authtoken: generating token: %w", err)
	}
	return &Token{value: base64.URLEncoding.EncodeToString(buf)}, nil
}

// String returns the base64url-encoded token value.
func (t *Token) String() string {
	return t.value
}

// Check reports whether candidate matches the token, in constant time.
func (t *Token) Check(candidate string) bool {
	if len(candidate) != len(t.value) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(t.value), []byte(candidate)) == 1
}

// CheckRequest reports whether r carries a valid token, via either the
// Authorization: Bearer header or a ?token= query parameter.
func (t *Token) CheckRequest(r *http.Request) bool {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if candidate, ok := strings.CutPrefix(auth, "Bearer "); ok {
			if t.Check(candidate) {
				return true
			}
		}
	}
	if candidate := r.URL.Query().Get("token"); candidate != "" {
		return t.Check(candidate)
	}
	return false
}
