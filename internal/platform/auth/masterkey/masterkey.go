// Package masterkey gates administrative routes behind a single configured secret.
package masterkey

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrMissing indicates the Authorization header is absent or is not "Bearer <key>".
	ErrMissing = errors.New("missing master key")

	// ErrMismatch indicates the presented key does not equal the configured key.
	ErrMismatch = errors.New("invalid master key")
)

const bearerPrefix = "Bearer "

// Compare reports whether provided equals expected.
//
// Running time depends only on the operand lengths, never on where the first
// differing byte is. Inputs of unequal length are rejected immediately; key
// length is not treated as secret.
func Compare(provided, expected []byte) bool {
	return subtle.ConstantTimeCompare(provided, expected) == 1
}

// Gate checks privileged credentials against the configured master key.
// The zero value rejects every request.
type Gate struct {
	key []byte
}

func NewGate(key string) *Gate {
	return &Gate{key: []byte(key)}
}

// Check validates an Authorization header value of the form "Bearer <key>".
func (g *Gate) Check(authorization string) error {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return ErrMissing
	}
	provided := strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	if provided == "" {
		return ErrMissing
	}
	if g == nil || len(g.key) == 0 || !Compare([]byte(provided), g.key) {
		return ErrMismatch
	}
	return nil
}
