package meta

import (
	"encoding"
	"reflect"
	"strconv"
)

// DiscriminantKey is the reserved mapping key that carries the concrete
// implementation of an interface-typed value. No field alias may use it.
const DiscriminantKey = "_type"

// Kind classifies how a type is traversed.
type Kind int

const (
	KindInvalid Kind = iota
	KindScalar
	KindEnum
	KindObject
	KindCollection
	KindMap
	KindArray
	KindInterface
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindScalar:     "scalar",
	KindEnum:       "enum",
	KindObject:     "object",
	KindCollection: "collection",
	KindMap:        "map",
	KindArray:      "array",
	KindInterface:  "interface",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Deref strips every pointer level from t.
func Deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// IsTextual reports whether values of t round-trip through their text form:
// T implements encoding.TextMarshaler and *T implements
// encoding.TextUnmarshaler.
func IsTextual(t reflect.Type) bool {
	return t.Kind() != reflect.Interface &&
		t.Implements(textMarshalerType) &&
		reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func isEnumBase(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String:
		return true
	}
	return false
}

// KindOf classifies t after stripping pointers. A named integer type is an
// enum only when its name table is registered or it is textual; otherwise it
// is a scalar and encodes as its number, as time.Duration does.
func (r *Registry) KindOf(t reflect.Type) Kind {
	t = Deref(t)
	if _, ok := r.Enum(t); ok {
		return KindEnum
	}
	if IsTextual(t) {
		if isEnumBase(t.Kind()) {
			return KindEnum
		}
		return KindScalar
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindScalar
	case reflect.Struct:
		return KindObject
	case reflect.Slice:
		return KindCollection
	case reflect.Array:
		return KindArray
	case reflect.Map:
		return KindMap
	case reflect.Interface:
		return KindInterface
	default:
		// chan, func, complex, uintptr, unsafe.Pointer
		return KindInvalid
	}
}
