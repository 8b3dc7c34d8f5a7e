package ir

import (
	"iter"
	"math"
	"strconv"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindMapping
)

var kindNames = [...]string{
	KindNull:    "null",
	KindString:  "string",
	KindNumber:  "number",
	KindBool:    "boolean",
	KindArray:   "array",
	KindMapping: "mapping",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Node is a sealed interface for document tree values.
type Node interface {
	Kind() Kind
	node() // Sealed
}

// Null represents an absent value.
type Null struct{}

func (Null) node()      {}
func (Null) Kind() Kind { return KindNull }

// String is a text scalar.
type String string

func (String) node()      {}
func (String) Kind() Kind { return KindString }

// Number is a numeric scalar held in its lexical decimal form.
type Number string

func (Number) node()      {}
func (Number) Kind() Kind { return KindNumber }

// Bool is a boolean scalar.
type Bool bool

func (Bool) node()      {}
func (Bool) Kind() Kind { return KindBool }

// Array is an ordered sequence of nodes.
type Array []Node

func (Array) node()      {}
func (Array) Kind() Kind { return KindArray }

// IsScalar reports whether n is a String, Number or Bool.
func IsScalar(n Node) bool {
	switch n.(type) {
	case String, Number, Bool:
		return true
	}
	return false
}

// Int creates a Number from a signed integer.
func Int(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// Uint creates a Number from an unsigned integer.
func Uint(u uint64) Number {
	return Number(strconv.FormatUint(u, 10))
}

// Float creates a Number from a finite float with the shortest text that
// round-trips at the given bit size (32 or 64). Very large and very small
// magnitudes use exponent notation.
func Float(f float64, bitSize int) Number {
	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bitSize == 32 {
			abs = float64(float32(abs))
		}
		if abs < 1e-6 || abs >= 1e21 {
			format = 'e'
		}
	}
	b := strconv.AppendFloat(nil, f, format, -1, bitSize)
	if format == 'e' {
		// 1e-07 -> 1e-7
		if n := len(b); n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return Number(b)
}

// Int64 parses the number as a signed integer.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// Uint64 parses the number as an unsigned integer.
func (n Number) Uint64() (uint64, error) {
	return strconv.ParseUint(string(n), 10, 64)
}

// Float64 parses the number as a float.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// IsInteger reports whether the lexical form has no fraction or exponent.
func (n Number) IsInteger() bool {
	for i := 0; i < len(n); i++ {
		switch n[i] {
		case '.', 'e', 'E':
			return false
		}
	}
	return len(n) > 0
}

// IsValidNumber reports whether s matches the JSON number grammar
// (RFC 8259 section 6). All surfaces accept exactly this lexical space.
func IsValidNumber(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i >= len(s):
		return false
	case s[i] == '0':
		i++
	case s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if i >= len(s) || !isDigit(s[i]) {
			return false
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if i >= len(s) || !isDigit(s[i]) {
			return false
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Entry is a key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value Node
}

// E is a shorthand for Entry.
// Example: NewMapping(E("name", String("ada")), E("level", Int(5)))
func E(key string, value Node) Entry {
	return Entry{Key: key, Value: value}
}

// Mapping is an ordered sequence of uniquely keyed nodes. The zero value is
// an empty mapping ready to use.
type Mapping struct {
	entries []Entry
	index   map[string]int
}

func (*Mapping) node()      {}
func (*Mapping) Kind() Kind { return KindMapping }

// NewMapping creates a Mapping from entries. A repeated key replaces the
// earlier value and keeps its position.
func NewMapping(entries ...Entry) *Mapping {
	m := &Mapping{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

// Set appends key, or replaces its value in place if already present.
func (m *Mapping) Set(key string, value Node) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = value
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Node, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].Value, true
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, m.Len())
	for k := range m.All() {
		keys = append(keys, k)
	}
	return keys
}

// Entries returns a copy of the entries in insertion order.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// All iterates entries in insertion order.
func (m *Mapping) All() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		if m == nil {
			return
		}
		for _, e := range m.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Equal reports deep structural equality. Mapping order is significant and
// numbers compare by lexical form.
func Equal(a, b Node) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		bv, ok := b.(*Mapping)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		if av.Len() == 0 {
			return true
		}
		for i, e := range av.entries {
			other := bv.entries[i]
			if e.Key != other.Key || !Equal(e.Value, other.Value) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}
