package codec

import (
	"cmp"
	"encoding"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/ir"
	"github.com/roach88/playerdata/meta"
)

// Serialize converts v into a document tree.
//
// A root interface value is only written with its discriminant when passed
// by pointer (&shape); use Encode to get that automatically.
func (c *Codec) Serialize(v any) (ir.Node, error) {
	if v == nil {
		return ir.Null{}, nil
	}
	return c.encode(reflect.ValueOf(v), rootPath, 0)
}

// Encode serializes v with T as its declared type, so interface types keep
// their discriminant at the root.
func Encode[T any](c *Codec, v T) (ir.Node, error) {
	return c.encode(reflect.ValueOf(&v).Elem(), rootPath, 0)
}

func (c *Codec) encode(v reflect.Value, p path, depth int) (ir.Node, error) {
	if err := c.checkDepth(depth, p); err != nil {
		return nil, err
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ir.Null{}, nil
		}
		v = v.Elem()
	}

	t := v.Type()
	switch c.types.KindOf(t) {
	case meta.KindScalar:
		return encodeScalar(v, p)
	case meta.KindEnum:
		return c.encodeEnum(v, p)
	case meta.KindObject:
		return c.encodeObject(v, p, depth)
	case meta.KindCollection:
		if v.IsNil() {
			return ir.Null{}, nil
		}
		return c.encodeSequence(v, p, depth)
	case meta.KindArray:
		return c.encodeSequence(v, p, depth)
	case meta.KindMap:
		return c.encodeMap(v, p, depth)
	case meta.KindInterface:
		return c.encodeInterface(v, p, depth)
	default:
		return nil, fail(errs.CodeUnsupportedType, p, t, "cannot serialize %s", t)
	}
}

func encodeScalar(v reflect.Value, p path) (ir.Node, error) {
	t := v.Type()
	if meta.IsTextual(t) {
		s, err := marshalText(v, p)
		if err != nil {
			return nil, err
		}
		return ir.String(s), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return ir.Bool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ir.Int(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ir.Uint(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fail(errs.CodeInvalidValue, p, t, "non-finite float %v", f)
		}
		return ir.Float(f, t.Bits()), nil
	case reflect.String:
		return ir.String(v.String()), nil
	default:
		return nil, fail(errs.CodeUnsupportedType, p, t, "cannot serialize %s", t)
	}
}

func marshalText(v reflect.Value, p path) (string, error) {
	b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return "", errs.Wrap(errs.CodeInvalidValue, err, "marshal text").WithType(v.Type().String()).WithPath(string(p))
	}
	return string(b), nil
}

func (c *Codec) encodeEnum(v reflect.Value, p path) (ir.Node, error) {
	t := v.Type()
	if e, ok := c.types.Enum(t); ok {
		name, ok := e.Name(v)
		if !ok {
			return nil, fail(errs.CodeInvalidValue, p, t, "%v is not a registered constant of %s", v.Interface(), t)
		}
		return ir.String(name), nil
	}
	s, err := marshalText(v, p)
	if err != nil {
		return nil, err
	}
	return ir.String(s), nil
}

// addressable returns v itself when addressable, or an addressable copy.
// Unexported fields are reached by address, so objects need one.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}

func (c *Codec) encodeObject(v reflect.Value, p path, depth int) (*ir.Mapping, error) {
	d, err := c.types.Resolve(v.Type())
	if err != nil {
		return nil, at(err, p)
	}
	v = addressable(v)

	m := ir.NewMapping()
	for _, f := range d.Serializable() {
		node, err := c.encode(f.Value(v), p.field(f.Alias), depth+1)
		if err != nil {
			return nil, err
		}
		m.Set(f.Alias, node)
	}
	return m, nil
}

func (c *Codec) encodeSequence(v reflect.Value, p path, depth int) (ir.Node, error) {
	arr := make(ir.Array, v.Len())
	for i := range arr {
		node, err := c.encode(v.Index(i), p.index(i), depth+1)
		if err != nil {
			return nil, err
		}
		arr[i] = node
	}
	return arr, nil
}

func (c *Codec) encodeMap(v reflect.Value, p path, depth int) (ir.Node, error) {
	if v.IsNil() {
		return ir.Null{}, nil
	}

	type pair struct {
		key   string
		raw   reflect.Value
		value reflect.Value
	}
	pairs := make([]pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := c.keyString(iter.Key(), p)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{key: k, raw: iter.Key(), value: iter.Value()})
	}

	// Plain integer keys sort by value, everything else by rendered key.
	kt := v.Type().Key()
	_, named := c.types.Enum(kt)
	switch {
	case named || meta.IsTextual(kt):
		slices.SortFunc(pairs, func(a, b pair) int { return strings.Compare(a.key, b.key) })
	case isSignedKind(kt.Kind()):
		slices.SortFunc(pairs, func(a, b pair) int { return cmp.Compare(a.raw.Int(), b.raw.Int()) })
	case isUnsignedKind(kt.Kind()):
		slices.SortFunc(pairs, func(a, b pair) int { return cmp.Compare(a.raw.Uint(), b.raw.Uint()) })
	default:
		slices.SortFunc(pairs, func(a, b pair) int { return strings.Compare(a.key, b.key) })
	}

	m := ir.NewMapping()
	for i, kv := range pairs {
		if i > 0 && pairs[i-1].key == kv.key {
			return nil, fail(errs.CodeInvalidValue, p, v.Type(), "two map keys render as %q", kv.key)
		}
		node, err := c.encode(kv.value, p.key(kv.key), depth+1)
		if err != nil {
			return nil, err
		}
		m.Set(kv.key, node)
	}
	return m, nil
}

func (c *Codec) keyString(k reflect.Value, p path) (string, error) {
	t := k.Type()
	if e, ok := c.types.Enum(t); ok {
		name, ok := e.Name(k)
		if !ok {
			return "", fail(errs.CodeInvalidValue, p, t, "%v is not a registered constant of %s", k.Interface(), t)
		}
		return name, nil
	}
	if meta.IsTextual(t) {
		return marshalText(k, p)
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return "", fail(errs.CodeUnsupportedType, p, t, "map key type %s is not string, integer or textual", t)
	}
}

func (c *Codec) encodeInterface(v reflect.Value, p path, depth int) (ir.Node, error) {
	if v.IsNil() {
		return ir.Null{}, nil
	}
	concrete := v.Elem()
	disc, err := c.impls.Discriminant(v.Type(), concrete.Type())
	if err != nil {
		return nil, at(err, p)
	}

	inner := concrete
	for inner.Kind() == reflect.Pointer {
		if inner.IsNil() {
			return ir.Null{}, nil
		}
		inner = inner.Elem()
	}

	m := ir.NewMapping(ir.E(meta.DiscriminantKey, ir.String(disc)))
	if c.types.KindOf(inner.Type()) == meta.KindObject {
		body, err := c.encodeObject(inner, p, depth+1)
		if err != nil {
			return nil, err
		}
		for k, n := range body.All() {
			m.Set(k, n)
		}
		return m, nil
	}

	node, err := c.encode(inner, p.field(valueKey), depth+1)
	if err != nil {
		return nil, err
	}
	m.Set(valueKey, node)
	return m, nil
}

func isSignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
