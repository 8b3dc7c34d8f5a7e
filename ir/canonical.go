package ir

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for content digests.
//
// Differences from a plain rendering:
//  1. Mapping keys sorted by UTF-16 code units (not UTF-8 bytes, not insertion order)
//  2. No HTML escaping; only quote, backslash and control characters are escaped
//  3. Strings and keys are NFC normalized
//  4. Numbers normalized: integers in plain decimal, others in shortest float64 form
func MarshalCanonical(n Node) ([]byte, error) {
	return appendCanonical(nil, n)
}

func appendCanonical(b []byte, n Node) ([]byte, error) {
	switch v := n.(type) {
	case Null:
		return append(b, "null"...), nil
	case Bool:
		return strconv.AppendBool(b, bool(v)), nil
	case String:
		return appendCanonicalString(b, string(v)), nil
	case Number:
		num, err := canonicalNumber(v)
		if err != nil {
			return nil, err
		}
		return append(b, num...), nil
	case Array:
		b = append(b, '[')
		for i, elem := range v {
			if i > 0 {
				b = append(b, ',')
			}
			var err error
			if b, err = appendCanonical(b, elem); err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		return append(b, ']'), nil
	case *Mapping:
		return appendCanonicalMapping(b, v)
	default:
		return nil, fmt.Errorf("unsupported node type for canonical JSON: %T", n)
	}
}

func appendCanonicalMapping(b []byte, m *Mapping) ([]byte, error) {
	type pair struct {
		key   string
		value Node
	}
	pairs := make([]pair, 0, m.Len())
	for k, v := range m.All() {
		pairs = append(pairs, pair{key: norm.NFC.String(k), value: v})
	}
	slices.SortFunc(pairs, func(a, b pair) int { return compareUTF16(a.key, b.key) })

	b = append(b, '{')
	for i, p := range pairs {
		if i > 0 {
			if pairs[i-1].key == p.key {
				return nil, fmt.Errorf("keys collide after NFC normalization: %q", p.key)
			}
			b = append(b, ',')
		}
		b = appendCanonicalString(b, p.key)
		b = append(b, ':')
		var err error
		if b, err = appendCanonical(b, p.value); err != nil {
			return nil, fmt.Errorf("mapping[%q]: %w", p.key, err)
		}
	}
	return append(b, '}'), nil
}

// compareUTF16 orders strings by UTF-16 code units. Go's native string
// comparison uses UTF-8 bytes, which orders supplementary-plane characters
// differently.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

func appendCanonicalString(b []byte, s string) []byte {
	const hex = "0123456789abcdef"
	b = append(b, '"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		case '\b':
			b = append(b, '\\', 'b')
		case '\f':
			b = append(b, '\\', 'f')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		default:
			if r < 0x20 {
				b = append(b, '\\', 'u', '0', '0', hex[r>>4], hex[r&0xf])
				continue
			}
			b = utf8.AppendRune(b, r)
		}
	}
	return append(b, '"')
}

func canonicalNumber(n Number) (string, error) {
	if !IsValidNumber(string(n)) {
		return "", fmt.Errorf("invalid number %q", string(n))
	}
	if n.IsInteger() {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		if u, err := n.Uint64(); err == nil {
			return strconv.FormatUint(u, 10), nil
		}
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) {
		return "", fmt.Errorf("number %q out of float64 range", string(n))
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return string(Float(f, 64)), nil
}
