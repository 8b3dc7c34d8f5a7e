package meta

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/playerdata/errs"
)

// DefaultTagKey is the struct tag key read by a Registry.
const DefaultTagKey = "playerdata"

// Registry resolves and caches type descriptors.
//
// Resolve is compute-once per type: concurrent first calls for the same type
// share one build and all callers receive the same *TypeDescriptor. Cached
// lookups take no lock.
type Registry struct {
	tagKey string

	cache sync.Map // reflect.Type -> *TypeDescriptor
	group singleflight.Group

	mu    sync.RWMutex
	ctors map[reflect.Type]*ConstructorDescriptor
	enums map[reflect.Type]*EnumDescriptor
}

// Option configures a Registry.
type Option func(*Registry)

// WithTagKey overrides the struct tag key (default "playerdata").
func WithTagKey(key string) Option {
	return func(r *Registry) {
		r.tagKey = key
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tagKey: DefaultTagKey,
		ctors:  make(map[reflect.Type]*ConstructorDescriptor),
		enums:  make(map[reflect.Type]*EnumDescriptor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the descriptor of t, building it on first use. Pointer
// types resolve to their element type. Interface types resolve to an
// Abstract descriptor without fields.
func (r *Registry) Resolve(t reflect.Type) (*TypeDescriptor, error) {
	if t == nil {
		return nil, errs.New(errs.CodeUnsupportedType, "cannot resolve nil type")
	}
	t = Deref(t)
	if d, ok := r.cache.Load(t); ok {
		return d.(*TypeDescriptor), nil
	}

	key := fmt.Sprintf("%s@%p", t, t)
	v, err, _ := r.group.Do(key, func() (any, error) {
		for {
			if d, ok := r.cache.Load(t); ok {
				return d, nil
			}
			d, seen, err := r.build(t)
			if err != nil {
				return nil, err
			}
			// RegisterConstructor checks the cache under the write lock, so
			// storing under the read lock either publishes a descriptor that
			// includes its constructor or makes the registration fail.
			r.mu.RLock()
			if r.ctors[t] != seen {
				r.mu.RUnlock()
				continue
			}
			actual, _ := r.cache.LoadOrStore(t, d)
			r.mu.RUnlock()
			return actual, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(*TypeDescriptor), nil
}

func (r *Registry) resolved(t reflect.Type) bool {
	_, ok := r.cache.Load(t)
	return ok
}

// Enum returns the registered name table of t, if any.
func (r *Registry) Enum(t reflect.Type) (*EnumDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enums[t]
	return e, ok
}

// build returns the descriptor of t together with the constructor
// registration it was bound to.
func (r *Registry) build(t reflect.Type) (*TypeDescriptor, *ConstructorDescriptor, error) {
	switch t.Kind() {
	case reflect.Interface:
		return &TypeDescriptor{Type: t, Name: t.String(), Abstract: true}, nil, nil
	case reflect.Struct:
	default:
		return nil, nil, errs.New(errs.CodeUnsupportedType, "%s is not a struct or interface", t).WithType(t.String())
	}

	fields, err := r.collectFields(t)
	if err != nil {
		return nil, nil, err
	}

	d := &TypeDescriptor{
		Type:    t,
		Name:    t.String(),
		Fields:  fields,
		byAlias: make(map[string]int, len(fields)),
		byName:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		d.byName[f.Name] = i
		if f.Serializable {
			d.byAlias[f.Alias] = i
		}
	}

	r.mu.RLock()
	raw := r.ctors[t]
	r.mu.RUnlock()
	if raw != nil {
		ctor, err := bindConstructor(d, raw)
		if err != nil {
			return nil, nil, err
		}
		d.Constructor = ctor
	}
	return d, raw, nil
}

// candidate is a field found while walking embedded structs.
type candidate struct {
	FieldDescriptor
	depth int
}

func (r *Registry) collectFields(t reflect.Type) ([]FieldDescriptor, error) {
	var found []candidate
	if err := r.walk(t, nil, 0, &found); err != nil {
		return nil, err
	}

	// Shallowest candidate per key wins; a tie at the same depth is an error.
	// Non-serializable fields are keyed by Go name so they never shadow
	// serializable ones.
	winner := make(map[string]int)
	ambiguous := make(map[string]bool)
	for i, c := range found {
		k := fieldKey(&c.FieldDescriptor)
		j, seen := winner[k]
		switch {
		case !seen || c.depth < found[j].depth:
			winner[k] = i
			delete(ambiguous, k)
		case c.depth == found[j].depth:
			ambiguous[k] = true
		}
	}
	if len(ambiguous) > 0 {
		keys := make([]string, 0, len(ambiguous))
		for k := range ambiguous {
			keys = append(keys, strings.TrimPrefix(k, "-"))
		}
		slices.Sort(keys)
		return nil, errs.New(errs.CodeInvalidDescriptor,
			"ambiguous field alias %q at equal embedding depth", keys[0]).WithType(t.String())
	}

	picked := make([]int, 0, len(winner))
	for _, i := range winner {
		picked = append(picked, i)
	}
	slices.Sort(picked)

	fields := make([]FieldDescriptor, len(picked))
	for n, i := range picked {
		fields[n] = found[i].FieldDescriptor
	}
	return fields, nil
}

func fieldKey(f *FieldDescriptor) string {
	if f.Serializable {
		return f.Alias
	}
	return "-" + f.Name
}

func (r *Registry) walk(t reflect.Type, index []int, depth int, out *[]candidate) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, tagged := sf.Tag.Lookup(r.tagKey)
		alias, _, _ := strings.Cut(tag, ",")
		path := append(slices.Clone(index), i)

		// Untagged embedded structs are the base types of t: flatten them.
		if sf.Anonymous && !tagged && sf.Type.Kind() == reflect.Struct && !IsTextual(sf.Type) {
			if err := r.walk(sf.Type, path, depth+1, out); err != nil {
				return err
			}
			continue
		}

		exported := sf.IsExported()
		if !exported && (!tagged || alias == "" || alias == "-") {
			continue
		}

		f := FieldDescriptor{
			Name:         sf.Name,
			Alias:        sf.Name,
			Serializable: alias != "-",
			Type:         sf.Type,
			Index:        path,
			Exported:     exported,
		}
		if alias != "" && alias != "-" {
			f.Alias = alias
		}

		f.Kind = r.KindOf(sf.Type)
		base := Deref(sf.Type)
		switch f.Kind {
		case KindCollection, KindArray:
			f.ElemType = base.Elem()
		case KindMap:
			f.ElemType = base.Elem()
			f.KeyType = base.Key()
		}

		if f.Serializable {
			if f.Alias == DiscriminantKey {
				return errs.New(errs.CodeInvalidDescriptor,
					"field %s uses reserved key %q", sf.Name, DiscriminantKey).WithType(t.String())
			}
			if f.Kind == KindInvalid {
				return errs.New(errs.CodeUnsupportedType,
					"field %s has unsupported type %s", sf.Name, sf.Type).WithType(t.String())
			}
		}

		*out = append(*out, candidate{FieldDescriptor: f, depth: depth})
	}
	return nil
}
