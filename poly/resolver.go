// Package poly maps interface-typed values to concrete implementations
// through string discriminants.
//
// Every interface type that appears as a field, element or root value gets
// its implementations registered before first use:
//
//	impls := poly.NewResolver()
//	_ = poly.Register[Shape, *Circle](impls, "circle")
//	_ = poly.Register[Shape, *Square](impls, "square")
//
// On write the codec asks for the discriminant of the runtime type; on read
// it asks for the concrete type behind a discriminant.
package poly

import (
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/playerdata/errs"
)

// Implementation is one registered (discriminant, concrete type) pair.
type Implementation struct {
	Discriminant string
	Type         reflect.Type
}

type baseEntry struct {
	byDiscriminant map[string]reflect.Type
	byType         map[reflect.Type]string
	sealed         bool
}

// Resolver is the implementation registry. Safe for concurrent use; lookups
// only take a read lock.
type Resolver struct {
	mu    sync.RWMutex
	bases map[reflect.Type]*baseEntry
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{bases: make(map[reflect.Type]*baseEntry)}
}

// Register adds concrete as the implementation of base named discriminant.
//
// Fails with AMBIGUOUS_IMPLEMENTATION when the discriminant is already
// taken by another type, or concrete is already registered under another
// discriminant. Registering the identical pair again is a no-op.
// Registering against a base that has already been looked up fails with
// INVALID_DESCRIPTOR.
func (r *Resolver) Register(base, concrete reflect.Type, discriminant string) error {
	switch {
	case base == nil || base.Kind() != reflect.Interface:
		return errs.New(errs.CodeInvalidDescriptor, "base %v is not an interface type", base)
	case concrete == nil || concrete.Kind() == reflect.Interface:
		return errs.New(errs.CodeInvalidDescriptor, "concrete %v is not a concrete type", concrete).WithType(base.String())
	case !concrete.Implements(base):
		return errs.New(errs.CodeInvalidDescriptor, "%s does not implement %s", concrete, base).WithType(base.String())
	case strings.TrimSpace(discriminant) == "":
		return errs.New(errs.CodeInvalidDescriptor, "empty discriminant for %s", concrete).WithType(base.String())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.bases[base]
	if e == nil {
		e = &baseEntry{
			byDiscriminant: make(map[string]reflect.Type),
			byType:         make(map[reflect.Type]string),
		}
		r.bases[base] = e
	}

	existing, taken := e.byDiscriminant[discriminant]
	if taken && existing == concrete {
		return nil
	}
	if e.sealed {
		return errs.New(errs.CodeInvalidDescriptor,
			"implementation %q registered after first use of %s", discriminant, base).WithType(base.String())
	}
	if taken {
		return errs.New(errs.CodeAmbiguousImplementation,
			"discriminant %q already names %s, cannot also name %s", discriminant, existing, concrete).WithType(base.String())
	}
	if prev, ok := e.byType[concrete]; ok {
		return errs.New(errs.CodeAmbiguousImplementation,
			"%s already registered as %q, cannot also be %q", concrete, prev, discriminant).WithType(base.String())
	}

	e.byDiscriminant[discriminant] = concrete
	e.byType[concrete] = discriminant
	return nil
}

// Register is the generic form of Resolver.Register.
func Register[Base, Concrete any](r *Resolver, discriminant string) error {
	return r.Register(reflect.TypeFor[Base](), reflect.TypeFor[Concrete](), discriminant)
}

// Discriminant returns the name under which concrete is registered for base.
func (r *Resolver) Discriminant(base, concrete reflect.Type) (string, error) {
	e := r.lookup(base)
	if e != nil {
		if d, ok := e.byType[concrete]; ok {
			return d, nil
		}
	}
	return "", errs.New(errs.CodeUnregisteredImplementation,
		"%s has no discriminant for %s", concrete, base).WithType(concrete.String())
}

// Concrete returns the type registered under discriminant for base.
func (r *Resolver) Concrete(base reflect.Type, discriminant string) (reflect.Type, error) {
	e := r.lookup(base)
	if e != nil {
		if t, ok := e.byDiscriminant[discriminant]; ok {
			return t, nil
		}
	}
	return nil, errs.New(errs.CodeUnknownImplementation,
		"no implementation of %s named %q", base, discriminant).WithType(base.String())
}

// Implementations lists the registrations of base, sorted by discriminant.
func (r *Resolver) Implementations(base reflect.Type) []Implementation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.bases[base]
	if e == nil {
		return nil
	}
	out := make([]Implementation, 0, len(e.byDiscriminant))
	for d, t := range e.byDiscriminant {
		out = append(out, Implementation{Discriminant: d, Type: t})
	}
	slices.SortFunc(out, func(a, b Implementation) int { return strings.Compare(a.Discriminant, b.Discriminant) })
	return out
}

// lookup returns the entry of base and seals it against late registration.
func (r *Resolver) lookup(base reflect.Type) *baseEntry {
	r.mu.RLock()
	e := r.bases[base]
	sealed := e == nil || e.sealed
	r.mu.RUnlock()
	if sealed {
		return e
	}

	r.mu.Lock()
	e.sealed = true
	r.mu.Unlock()
	return e
}
