package codec

import (
	"encoding"
	"math"
	"reflect"
	"strconv"

	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/ir"
	"github.com/roach88/playerdata/meta"
)

// Deserialize reconstructs a value from n into *target. target must be a
// non-nil pointer. The value is built fresh and stored only on success, so a
// failed call leaves *target untouched.
func (c *Codec) Deserialize(n ir.Node, target any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errs.New(errs.CodeUnsupportedType, "target must be a non-nil pointer, got %T", target)
	}
	fresh := reflect.New(rv.Elem().Type()).Elem()
	if err := c.decode(n, fresh, rootPath, 0); err != nil {
		return err
	}
	rv.Elem().Set(fresh)
	return nil
}

// Decode is the generic form of Deserialize.
func Decode[T any](c *Codec, n ir.Node) (T, error) {
	var out T
	err := c.Deserialize(n, &out)
	return out, err
}

func mismatch(n ir.Node, want string, p path, t reflect.Type) error {
	got := "nil"
	if n != nil {
		got = n.Kind().String()
	}
	return fail(errs.CodeTypeMismatch, p, t, "expected %s, got %s", want, got)
}

// decode fills dst, which must be settable.
func (c *Codec) decode(n ir.Node, dst reflect.Value, p path, depth int) error {
	if err := c.checkDepth(depth, p); err != nil {
		return err
	}
	if _, isNull := n.(ir.Null); isNull || n == nil {
		dst.SetZero()
		return nil
	}

	t := dst.Type()
	if t.Kind() == reflect.Pointer {
		elem := t.Elem()
		if elem.Kind() != reflect.Pointer && c.types.KindOf(elem) == meta.KindObject {
			ptr, err := c.decodeObject(n, elem, p, depth)
			if err != nil {
				return err
			}
			dst.Set(ptr)
			return nil
		}
		ptr := reflect.New(elem)
		if err := c.decode(n, ptr.Elem(), p, depth+1); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}

	switch c.types.KindOf(t) {
	case meta.KindScalar:
		return decodeScalar(n, dst, p)
	case meta.KindEnum:
		return c.decodeEnum(n, dst, p)
	case meta.KindObject:
		ptr, err := c.decodeObject(n, t, p, depth)
		if err != nil {
			return err
		}
		dst.Set(ptr.Elem())
		return nil
	case meta.KindCollection:
		return c.decodeCollection(n, dst, p, depth)
	case meta.KindArray:
		return c.decodeArray(n, dst, p, depth)
	case meta.KindMap:
		return c.decodeMap(n, dst, p, depth)
	case meta.KindInterface:
		return c.decodeInterface(n, dst, p, depth)
	default:
		return fail(errs.CodeUnsupportedType, p, t, "cannot deserialize %s", t)
	}
}

func decodeScalar(n ir.Node, dst reflect.Value, p path) error {
	t := dst.Type()
	if meta.IsTextual(t) {
		return unmarshalText(n, dst, p)
	}

	switch dst.Kind() {
	case reflect.Bool:
		b, ok := n.(ir.Bool)
		if !ok {
			return mismatch(n, "boolean", p, t)
		}
		dst.SetBool(bool(b))
	case reflect.String:
		s, ok := n.(ir.String)
		if !ok {
			return mismatch(n, "string", p, t)
		}
		dst.SetString(string(s))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		num, ok := n.(ir.Number)
		if !ok {
			return mismatch(n, "number", p, t)
		}
		i, err := parseInt(num)
		if err != nil || dst.OverflowInt(i) {
			return fail(errs.CodeInvalidValue, p, t, "%s does not fit %s", num, t)
		}
		dst.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		num, ok := n.(ir.Number)
		if !ok {
			return mismatch(n, "number", p, t)
		}
		u, err := parseUint(num)
		if err != nil || dst.OverflowUint(u) {
			return fail(errs.CodeInvalidValue, p, t, "%s does not fit %s", num, t)
		}
		dst.SetUint(u)
	case reflect.Float32, reflect.Float64:
		num, ok := n.(ir.Number)
		if !ok {
			return mismatch(n, "number", p, t)
		}
		f, err := strconv.ParseFloat(string(num), t.Bits())
		if err != nil {
			return fail(errs.CodeInvalidValue, p, t, "%s does not fit %s", num, t)
		}
		dst.SetFloat(f)
	default:
		return fail(errs.CodeUnsupportedType, p, t, "cannot deserialize %s", t)
	}
	return nil
}

// parseInt accepts integer lexemes and integral floats such as 3.0 or 1e3.
func parseInt(num ir.Number) (int64, error) {
	if i, err := num.Int64(); err == nil {
		return i, nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	return int64(f), nil
}

func parseUint(num ir.Number) (uint64, error) {
	if u, err := num.Uint64(); err == nil {
		return u, nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
		return 0, strconv.ErrRange
	}
	return uint64(f), nil
}

func unmarshalText(n ir.Node, dst reflect.Value, p path) error {
	t := dst.Type()
	s, ok := n.(ir.String)
	if !ok {
		return mismatch(n, "string", p, t)
	}
	ptr := reflect.New(t)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
		return errs.Wrap(errs.CodeInvalidValue, err, "unmarshal text %q", string(s)).WithType(t.String()).WithPath(string(p))
	}
	dst.Set(ptr.Elem())
	return nil
}

func (c *Codec) decodeEnum(n ir.Node, dst reflect.Value, p path) error {
	t := dst.Type()
	e, ok := c.types.Enum(t)
	if !ok {
		return unmarshalText(n, dst, p)
	}
	s, ok := n.(ir.String)
	if !ok {
		return mismatch(n, "enum name", p, t)
	}
	v, ok := e.Value(string(s))
	if !ok {
		return fail(errs.CodeInvalidValue, p, t, "unknown constant %q of %s", string(s), t)
	}
	dst.Set(v)
	return nil
}

// decodeObject builds a new t from a mapping and returns a pointer to it.
// A registered constructor receives its arguments first; every other
// serializable field present in the mapping is assigned afterwards.
func (c *Codec) decodeObject(n ir.Node, t reflect.Type, p path, depth int) (reflect.Value, error) {
	m, ok := n.(*ir.Mapping)
	if !ok {
		return reflect.Value{}, mismatch(n, "mapping", p, t)
	}
	d, err := c.types.Resolve(t)
	if err != nil {
		return reflect.Value{}, at(err, p)
	}

	var ptr reflect.Value
	covered := make([]bool, len(d.Fields))
	if ctor := d.Constructor; ctor != nil {
		args := make([]reflect.Value, len(ctor.Params))
		for i, param := range ctor.Params {
			f := &d.Fields[param.Field]
			child, ok := m.Get(f.Alias)
			if !ok {
				return reflect.Value{}, fail(errs.CodeMissingConstructorArgument, p, t,
					"no value for constructor parameter %q (key %q)", param.Name, f.Alias)
			}
			arg := reflect.New(param.Type).Elem()
			if err := c.decode(child, arg, p.field(f.Alias), depth+1); err != nil {
				return reflect.Value{}, err
			}
			args[i] = arg
			covered[param.Field] = true
		}
		ptr, err = ctor.Call(args)
		if err != nil {
			return reflect.Value{}, errs.Wrap(errs.CodeInvalidValue, err, "constructor failed").WithType(t.String()).WithPath(string(p))
		}
	} else {
		ptr = reflect.New(t)
	}

	obj := ptr.Elem()
	for i, f := range d.Serializable() {
		if covered[i] {
			continue
		}
		child, ok := m.Get(f.Alias)
		if !ok {
			continue
		}
		if err := c.decode(child, f.Value(obj), p.field(f.Alias), depth+1); err != nil {
			return reflect.Value{}, err
		}
	}
	return ptr, nil
}

func (c *Codec) decodeCollection(n ir.Node, dst reflect.Value, p path, depth int) error {
	arr, ok := n.(ir.Array)
	if !ok {
		return mismatch(n, "array", p, dst.Type())
	}
	s := reflect.MakeSlice(dst.Type(), len(arr), len(arr))
	for i, child := range arr {
		if err := c.decode(child, s.Index(i), p.index(i), depth+1); err != nil {
			return err
		}
	}
	dst.Set(s)
	return nil
}

func (c *Codec) decodeArray(n ir.Node, dst reflect.Value, p path, depth int) error {
	arr, ok := n.(ir.Array)
	if !ok {
		return mismatch(n, "array", p, dst.Type())
	}
	if len(arr) > dst.Len() {
		return fail(errs.CodeTypeMismatch, p, dst.Type(),
			"document has %d elements, array holds %d", len(arr), dst.Len())
	}
	for i := 0; i < dst.Len(); i++ {
		if i >= len(arr) {
			dst.Index(i).SetZero()
			continue
		}
		if err := c.decode(arr[i], dst.Index(i), p.index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// decodeMap builds a new map and replaces dst with it once every entry has
// decoded. A map a factory placed in dst is never written to.
func (c *Codec) decodeMap(n ir.Node, dst reflect.Value, p path, depth int) error {
	t := dst.Type()
	m, ok := n.(*ir.Mapping)
	if !ok {
		return mismatch(n, "mapping", p, t)
	}
	out := reflect.MakeMapWithSize(t, m.Len())

	for k, child := range m.All() {
		key, err := c.parseKey(k, t.Key(), p)
		if err != nil {
			return err
		}
		val := reflect.New(t.Elem()).Elem()
		if err := c.decode(child, val, p.key(k), depth+1); err != nil {
			return err
		}
		out.SetMapIndex(key, val)
	}
	dst.Set(out)
	return nil
}

func (c *Codec) parseKey(s string, t reflect.Type, p path) (reflect.Value, error) {
	key := reflect.New(t).Elem()
	if e, ok := c.types.Enum(t); ok {
		v, ok := e.Value(s)
		if !ok {
			return key, fail(errs.CodeInvalidValue, p.key(s), t, "unknown constant %q of %s", s, t)
		}
		key.Set(v)
		return key, nil
	}
	if meta.IsTextual(t) {
		err := unmarshalText(ir.String(s), key, p.key(s))
		return key, err
	}

	switch t.Kind() {
	case reflect.String:
		key.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil || key.OverflowInt(i) {
			return key, fail(errs.CodeInvalidValue, p.key(s), t, "map key %q does not fit %s", s, t)
		}
		key.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil || key.OverflowUint(u) {
			return key, fail(errs.CodeInvalidValue, p.key(s), t, "map key %q does not fit %s", s, t)
		}
		key.SetUint(u)
	default:
		return key, fail(errs.CodeUnsupportedType, p, t, "map key type %s is not string, integer or textual", t)
	}
	return key, nil
}

func (c *Codec) decodeInterface(n ir.Node, dst reflect.Value, p path, depth int) error {
	base := dst.Type()
	m, ok := n.(*ir.Mapping)
	if !ok {
		return mismatch(n, "mapping with "+meta.DiscriminantKey, p, base)
	}
	discNode, ok := m.Get(meta.DiscriminantKey)
	if !ok {
		return fail(errs.CodeUnknownImplementation, p, base, "missing %q key for %s", meta.DiscriminantKey, base)
	}
	disc, ok := discNode.(ir.String)
	if !ok {
		return mismatch(discNode, "string discriminant", p.field(meta.DiscriminantKey), base)
	}
	concrete, err := c.impls.Concrete(base, string(disc))
	if err != nil {
		return at(err, p)
	}

	val := reflect.New(concrete).Elem()
	if c.types.KindOf(concrete) == meta.KindObject {
		// The discriminant key is an unknown key to the object and is skipped.
		err = c.decode(m, val, p, depth+1)
	} else {
		child, ok := m.Get(valueKey)
		if !ok {
			child = ir.Null{}
		}
		err = c.decode(child, val, p.field(valueKey), depth+1)
	}
	if err != nil {
		return err
	}
	dst.Set(val)
	return nil
}
