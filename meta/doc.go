// Package meta discovers and caches per-type serialization metadata.
//
// A Registry resolves a Go type into a TypeDescriptor once and serves the
// cached descriptor afterwards. Struct fields are discovered through
// reflection and steered with the `playerdata` struct tag:
//
//	type Player struct {
//		Name     string                       // serialized as "Name"
//		Level    int    `playerdata:"level"`  // serialized as "level"
//		Session  string `playerdata:"-"`      // never serialized
//		id       string `playerdata:"id"`     // unexported, opted in
//	}
//
// Embedded structs are flattened in place, so fields of an embedded base
// come before the fields declared after it.
//
// Types that must be built through a function (immutable types, types that
// pre-populate containers) register that function with RegisterConstructor.
// Named integer or string types become enums either through RegisterEnum or
// by implementing encoding.TextMarshaler and encoding.TextUnmarshaler; enums
// are always written by name.
//
// All registrations must happen before the first Resolve of the affected
// type. A Registry is safe for concurrent use.
package meta
