package meta

import (
	"reflect"

	"github.com/roach88/playerdata/errs"
)

// RegisterEnum registers the name table of enum type T. Every constant that
// can appear in a document must be listed; names must be unique and
// non-empty.
//
//	meta.RegisterEnum(reg, map[Os]string{Windows: "WINDOWS", Unknown: "UNKNOWN"})
func RegisterEnum[T comparable](r *Registry, names map[T]string) error {
	t := reflect.TypeFor[T]()
	if !isEnumBase(t.Kind()) {
		return errs.New(errs.CodeInvalidDescriptor,
			"enum %s must have an integer or string underlying type", t).WithType(t.String())
	}

	e := &EnumDescriptor{
		Type:   t,
		names:  make(map[any]string, len(names)),
		values: make(map[string]reflect.Value, len(names)),
	}
	for v, name := range names {
		if name == "" {
			return errs.New(errs.CodeInvalidDescriptor, "enum %s has an empty name for %v", t, v).WithType(t.String())
		}
		if _, dup := e.values[name]; dup {
			return errs.New(errs.CodeInvalidDescriptor, "enum %s repeats name %q", t, name).WithType(t.String())
		}
		e.names[v] = name
		e.values[name] = reflect.ValueOf(v)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.enums[t]; dup {
		return errs.New(errs.CodeInvalidDescriptor, "enum %s already registered", t).WithType(t.String())
	}
	r.enums[t] = e
	return nil
}
