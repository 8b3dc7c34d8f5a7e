package meta

import (
	"reflect"

	"github.com/roach88/playerdata/errs"
)

var errorType = reflect.TypeFor[error]()

// RegisterConstructor designates fn as the instantiation path of the struct
// type it returns. fn must have the shape
//
//	func(p1 T1, ..., pn Tn) S
//	func(p1 T1, ..., pn Tn) (S, error)
//
// where S is a struct type or a pointer to one. params names the field each
// parameter initializes, in order; a name matches a field's Go name first and
// its alias second. The match is checked when the type is first resolved.
//
// A constructor without parameters acts as a factory: it replaces the zero
// value as the starting point, and every field is then read from the
// document.
func (r *Registry) RegisterConstructor(fn any, params ...string) error {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return errs.New(errs.CodeInvalidDescriptor, "constructor must be a non-nil func, got %T", fn)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return errs.New(errs.CodeInvalidDescriptor, "constructor %s must not be variadic", ft)
	}
	if ft.NumIn() != len(params) {
		return errs.New(errs.CodeInvalidDescriptor,
			"constructor %s takes %d parameters, %d names given", ft, ft.NumIn(), len(params))
	}

	ctor := &ConstructorDescriptor{Func: fv}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return errs.New(errs.CodeInvalidDescriptor, "constructor %s: second result must be error", ft)
		}
		ctor.ReturnsError = true
	default:
		return errs.New(errs.CodeInvalidDescriptor, "constructor %s must return S or (S, error)", ft)
	}

	target := ft.Out(0)
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
		ctor.ReturnsPointer = true
	}
	if target.Kind() != reflect.Struct {
		return errs.New(errs.CodeInvalidDescriptor, "constructor %s must return a struct or struct pointer", ft)
	}

	seen := make(map[string]bool, len(params))
	for i, name := range params {
		if name == "" || seen[name] {
			return errs.New(errs.CodeInvalidDescriptor,
				"constructor %s: parameter %d has empty or duplicate name %q", ft, i, name)
		}
		seen[name] = true
		ctor.Params = append(ctor.Params, ParamDescriptor{Name: name, Type: ft.In(i), Field: -1})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved(target) {
		return errs.New(errs.CodeInvalidDescriptor,
			"constructor for %s registered after first use", target).WithType(target.String())
	}
	if _, dup := r.ctors[target]; dup {
		return errs.New(errs.CodeInvalidDescriptor,
			"constructor for %s already registered", target).WithType(target.String())
	}
	r.ctors[target] = ctor
	return nil
}

// bindConstructor matches each parameter of raw to a serializable field of d.
func bindConstructor(d *TypeDescriptor, raw *ConstructorDescriptor) (*ConstructorDescriptor, error) {
	bound := *raw
	bound.Params = make([]ParamDescriptor, len(raw.Params))
	for i, p := range raw.Params {
		idx, ok := d.byName[p.Name]
		if !ok || !d.Fields[idx].Serializable {
			idx, ok = d.byAlias[p.Name]
		}
		if !ok || !d.Fields[idx].Serializable {
			return nil, errs.New(errs.CodeMissingConstructorArgument,
				"constructor parameter %q matches no serializable field", p.Name).WithType(d.Name)
		}
		p.Field = idx
		bound.Params[i] = p
	}
	return &bound, nil
}
