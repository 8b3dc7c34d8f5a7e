package meta

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// TypeDescriptor is the cached metadata of one struct or interface type.
type TypeDescriptor struct {
	// Type is the described type, never a pointer.
	Type reflect.Type

	// Name is the display name used in errors.
	Name string

	// Fields lists serializable and non-serializable fields in
	// root-to-derived order.
	Fields []FieldDescriptor

	// Constructor is the registered instantiation function, or nil when
	// the zero value is the instantiation path.
	Constructor *ConstructorDescriptor

	// Abstract marks an interface type; its values need a discriminant.
	Abstract bool

	byAlias map[string]int
	byName  map[string]int
}

// FieldByAlias looks up a serializable field by its document key.
func (d *TypeDescriptor) FieldByAlias(alias string) (*FieldDescriptor, bool) {
	i, ok := d.byAlias[alias]
	if !ok {
		return nil, false
	}
	return &d.Fields[i], true
}

// FieldByName looks up a field by its declared Go name.
func (d *TypeDescriptor) FieldByName(name string) (*FieldDescriptor, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return &d.Fields[i], true
}

// Serializable iterates the fields that are written and read, in order.
func (d *TypeDescriptor) Serializable() iter.Seq2[int, *FieldDescriptor] {
	return func(yield func(int, *FieldDescriptor) bool) {
		for i := range d.Fields {
			if !d.Fields[i].Serializable {
				continue
			}
			if !yield(i, &d.Fields[i]) {
				return
			}
		}
	}
}

// FieldDescriptor describes one struct field.
type FieldDescriptor struct {
	// Name is the declared Go field name.
	Name string

	// Alias is the document key.
	Alias string

	Kind         Kind
	Serializable bool

	// Type is the declared field type, pointers included.
	Type reflect.Type

	// ElemType is the element type of collections, arrays and maps.
	ElemType reflect.Type

	// KeyType is the key type of maps.
	KeyType reflect.Type

	// Index is the reflect index path, through embedded structs.
	Index []int

	// Exported is false for tagged unexported fields, which are reached
	// without the usual reflect visibility checks.
	Exported bool
}

// Value returns the settable field of structVal, which must be an
// addressable value of the owning struct type.
func (f *FieldDescriptor) Value(structVal reflect.Value) reflect.Value {
	fv := structVal.FieldByIndex(f.Index)
	if !f.Exported {
		fv = reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Elem()
	}
	return fv
}

// ConstructorDescriptor is a registered instantiation function.
type ConstructorDescriptor struct {
	Func   reflect.Value
	Params []ParamDescriptor

	// ReturnsPointer is true when Func returns *T rather than T.
	ReturnsPointer bool

	// ReturnsError is true when Func has a trailing error result.
	ReturnsError bool
}

// ParamDescriptor binds a constructor parameter to the field it initializes.
type ParamDescriptor struct {
	Name string
	Type reflect.Type

	// Field is the index into TypeDescriptor.Fields; -1 until bound.
	Field int
}

var errNilConstructorResult = errors.New("constructor returned nil")

// Call invokes the constructor and returns a pointer to the new value.
func (c *ConstructorDescriptor) Call(args []reflect.Value) (reflect.Value, error) {
	out := c.Func.Call(args)
	if c.ReturnsError && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	result := out[0]
	if c.ReturnsPointer {
		if result.IsNil() {
			return reflect.Value{}, errNilConstructorResult
		}
		return result, nil
	}
	ptr := reflect.New(result.Type())
	ptr.Elem().Set(result)
	return ptr, nil
}

// EnumDescriptor is a registered name table for an enum type.
type EnumDescriptor struct {
	Type   reflect.Type
	names  map[any]string
	values map[string]reflect.Value
}

// Name returns the registered name of v.
func (e *EnumDescriptor) Name(v reflect.Value) (string, bool) {
	name, ok := e.names[v.Interface()]
	return name, ok
}

// Value returns the constant registered under name.
func (e *EnumDescriptor) Value(name string) (reflect.Value, bool) {
	v, ok := e.values[name]
	return v, ok
}
