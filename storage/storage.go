// Package storage defines the byte store that persisted documents live in,
// together with the local-filesystem and in-memory implementations.
//
// Further backends live in the sqlite, s3 and minio subpackages. None of
// them know anything about document formats.
package storage

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned (possibly wrapped) when a name does not exist.
var ErrNotFound = os.ErrNotExist

// ErrInvalidName is returned for names that are empty, absolute or escape
// the store root.
var ErrInvalidName = errors.New("invalid storage name")

// Backend stores opaque byte contents under slash-separated relative names.
type Backend interface {
	// Read returns the contents stored under name. A missing name yields an
	// error for which errors.Is(err, ErrNotFound) holds.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the contents of name atomically: readers see either the
	// old or the new contents, never a mix.
	Write(ctx context.Context, name string, data []byte) error

	// Exists reports whether name holds contents.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes name. Deleting a missing name succeeds.
	Delete(ctx context.Context, name string) error

	// Wipe removes every name in the store.
	Wipe(ctx context.Context) error
}

// Lister is implemented by backends that can enumerate their names.
type Lister interface {
	// List returns all stored names in lexical order.
	List(ctx context.Context) ([]string, error)
}

// ValidateName checks that name is a clean relative slash path.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.Wrap(ErrInvalidName, "empty name")
	case strings.HasPrefix(name, "/"):
		return errors.Wrapf(ErrInvalidName, "absolute name %q", name)
	case strings.ContainsAny(name, "\\\x00:"):
		return errors.Wrapf(ErrInvalidName, "name %q contains a reserved character", name)
	}
	for _, seg := range strings.Split(name, "/") {
		switch seg {
		case "", ".", "..":
			return errors.Wrapf(ErrInvalidName, "name %q has an empty, '.' or '..' segment", name)
		}
	}
	if path.Clean(name) != name {
		return errors.Wrapf(ErrInvalidName, "name %q is not clean", name)
	}
	return nil
}
