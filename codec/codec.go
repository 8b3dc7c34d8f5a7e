// Package codec converts typed Go values to and from the ir document tree.
//
// The traversal is driven by the metadata of a meta.Registry and by the
// implementation table of a poly.Resolver. Both are passed in explicitly; a
// Codec holds no other state and is safe for concurrent use once its
// registries are populated.
//
// Conversion rules:
//   - nil pointers, slices, maps and interfaces become ir.Null
//   - scalars become ir.String, ir.Number or ir.Bool
//   - enums are written by name, never by ordinal
//   - structs become an ir.Mapping of their serializable fields, in order
//   - slices and fixed arrays become ir.Array; nil elements stay ir.Null
//   - maps become an ir.Mapping with keys in sorted order
//   - interface values become an ir.Mapping whose first key is
//     meta.DiscriminantKey, followed by the concrete value's fields
//
// Reading is strict about node kinds and lenient about keys: unknown keys
// are ignored and absent keys leave the field at its zero (or factory)
// value.
package codec

import (
	"reflect"
	"strconv"

	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/meta"
	"github.com/roach88/playerdata/poly"
)

// DefaultMaxDepth bounds traversal depth. A cyclic graph hits this bound and
// fails with DEPTH_EXCEEDED.
const DefaultMaxDepth = 4096

// valueKey holds the payload of an interface value whose concrete type is
// not a struct.
const valueKey = "value"

// Codec serializes and deserializes object graphs.
type Codec struct {
	types    *meta.Registry
	impls    *poly.Resolver
	maxDepth int
}

// Option configures a Codec.
type Option func(*Codec)

// WithMaxDepth sets the traversal depth bound.
func WithMaxDepth(depth int) Option {
	return func(c *Codec) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// New creates a Codec. Nil registries are replaced with empty ones.
func New(types *meta.Registry, impls *poly.Resolver, opts ...Option) *Codec {
	if types == nil {
		types = meta.NewRegistry()
	}
	if impls == nil {
		impls = poly.NewResolver()
	}
	c := &Codec{types: types, impls: impls, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Types returns the metadata registry.
func (c *Codec) Types() *meta.Registry { return c.types }

// Implementations returns the implementation registry.
func (c *Codec) Implementations() *poly.Resolver { return c.impls }

// path is a JSONPath-like locator used in error messages.
type path string

const rootPath path = "$"

func (p path) field(name string) path { return p + "." + path(name) }
func (p path) index(i int) path       { return p + "[" + path(strconv.Itoa(i)) + "]" }
func (p path) key(k string) path      { return p + "[" + path(strconv.Quote(k)) + "]" }

func fail(code errs.Code, p path, t reflect.Type, format string, args ...any) error {
	e := errs.New(code, format, args...).WithPath(string(p))
	if t != nil {
		e.Type = t.String()
	}
	return e
}

// at attaches p to registry errors, which carry no path of their own.
func at(err error, p path) error {
	se, ok := err.(*errs.SerializationError)
	if !ok || se.Path != "" {
		return err
	}
	cp := *se
	cp.Path = string(p)
	return &cp
}

func (c *Codec) checkDepth(depth int, p path) error {
	if depth > c.maxDepth {
		return fail(errs.CodeDepthExceeded, p, nil,
			"nesting exceeds %d levels (cyclic object graph?)", c.maxDepth)
	}
	return nil
}
