// Package ir defines the format-neutral document tree (Tree-IR) that sits
// between typed Go values and their JSON, XML and YAML renderings.
//
// Node is a sealed interface. Only these types implement it:
//   - Null: absent or nil value
//   - String, Number, Bool: the scalar variants
//   - Array: ordered sequence of nodes
//   - *Mapping: ordered key to node sequence with unique keys
//
// Number keeps the lexical decimal form of the value, so 64-bit integers
// survive unchanged and every surface produces the identical node for the
// same number.
//
// # Canonical Form
//
// MarshalCanonical renders a node as canonical JSON (keys sorted by UTF-16
// code units, NFC strings, normalized numbers, no HTML escaping). Digest
// hashes that form with domain separation. Two renderings of the same
// object graph in different surface formats have the same digest.
package ir
