// Package repoerr defines the failure taxonomy shared by every repository implementation.
package repoerr

import (
	"errors"
	"fmt"
)

var (
	// ErrBackend indicates the storage layer failed (connectivity, constraint, query error).
	ErrBackend = errors.New("repository backend failure")

	// ErrSerialization indicates a structured field could not be encoded or decoded
	// (for example a role stored as text).
	ErrSerialization = errors.New("repository serialization failure")
)

// Backend wraps err as an ErrBackend failure for operation op.
func Backend(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrBackend, err)
}

// Serialization wraps err as an ErrSerialization failure for operation op.
func Serialization(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrSerialization, err)
}
