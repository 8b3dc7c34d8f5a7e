// Package playerdata persists application object graphs (save games,
// settings snapshots) as JSON, XML or YAML documents in a storage backend.
//
// A Store ties together a codec.Codec, which turns typed values into ir
// document trees and back, a document format, and a storage.Backend:
//
//	types, impls := meta.NewRegistry(), poly.NewResolver()
//	_ = poly.Register[Weapon, *Sword](impls, "sword")
//
//	data := playerdata.New(storage.NewLocalStore(dir),
//		playerdata.WithTypes(types),
//		playerdata.WithImplementations(impls),
//	)
//	err := data.WriteJSON(ctx, save, "slot1.json")
//	...
//	var loaded SaveGame
//	err = data.ReadJSON(ctx, "slot1.json", &loaded)
//
// Writes serialize and render before touching storage, so a value that
// cannot be encoded never leaves a file behind. Reading a name that was
// never written fails with errs.CodeFileNotFound.
package playerdata

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/playerdata/codec"
	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/ir"
	"github.com/roach88/playerdata/meta"
	"github.com/roach88/playerdata/poly"
	"github.com/roach88/playerdata/storage"
)

// DefaultIndent is the indentation used for written documents unless
// WithIndent says otherwise.
const DefaultIndent = 2

// ErrListUnsupported is returned by List when the backend cannot enumerate
// its names.
var ErrListUnsupported = errors.New("storage backend does not support listing")

// Store reads and writes typed values as documents.
type Store struct {
	backend  storage.Backend
	types    *meta.Registry
	impls    *poly.Resolver
	log      *zap.Logger
	indent   int
	maxDepth int
	codec    *codec.Codec
}

// Option configures a Store.
type Option func(*Store)

// WithTypes shares a type registry, typically one with enums and
// constructors already registered.
func WithTypes(types *meta.Registry) Option {
	return func(s *Store) { s.types = types }
}

// WithImplementations shares the registry of interface implementations.
func WithImplementations(impls *poly.Resolver) Option {
	return func(s *Store) { s.impls = impls }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithIndent sets the indentation width of written documents; 0 writes
// compact JSON and XML.
func WithIndent(width int) Option {
	return func(s *Store) {
		if width >= 0 {
			s.indent = width
		}
	}
}

// WithMaxDepth bounds value nesting in both directions.
func WithMaxDepth(depth int) Option {
	return func(s *Store) { s.maxDepth = depth }
}

// New returns a Store on backend.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		log:      zap.NewNop(),
		indent:   DefaultIndent,
		maxDepth: codec.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.types == nil {
		s.types = meta.NewRegistry()
	}
	if s.impls == nil {
		s.impls = poly.NewResolver()
	}
	s.codec = codec.New(s.types, s.impls, codec.WithMaxDepth(s.maxDepth))
	return s
}

// Codec returns the codec the store serializes with.
func (s *Store) Codec() *codec.Codec { return s.codec }

// Backend returns the underlying storage.
func (s *Store) Backend() storage.Backend { return s.backend }

func (s *Store) WriteJSON(ctx context.Context, v any, name string) error {
	return s.Write(ctx, JSON, v, name)
}

func (s *Store) ReadJSON(ctx context.Context, name string, target any) error {
	return s.Read(ctx, JSON, name, target)
}

func (s *Store) WriteXML(ctx context.Context, v any, name string) error {
	return s.Write(ctx, XML, v, name)
}

func (s *Store) ReadXML(ctx context.Context, name string, target any) error {
	return s.Read(ctx, XML, name, target)
}

func (s *Store) WriteYAML(ctx context.Context, v any, name string) error {
	return s.Write(ctx, YAML, v, name)
}

func (s *Store) ReadYAML(ctx context.Context, name string, target any) error {
	return s.Read(ctx, YAML, name, target)
}

// Write serializes v and stores it under name in format f.
func (s *Store) Write(ctx context.Context, f Format, v any, name string) error {
	n, err := s.codec.Serialize(v)
	if err != nil {
		s.warn("serialize failed", f, name, err)
		return err
	}
	return s.WriteDocument(ctx, f, n, name)
}

// WriteDocument renders n in format f and stores it under name.
func (s *Store) WriteDocument(ctx context.Context, f Format, n ir.Node, name string) error {
	start := time.Now()
	data, err := f.Render(n, s.indent)
	if err != nil {
		s.warn("render failed", f, name, err)
		return err
	}
	if err := s.backend.Write(ctx, name, data); err != nil {
		s.warn("storage write failed", f, name, err)
		return errors.Wrapf(err, "write %s", name)
	}
	s.log.Debug("wrote document",
		zap.String("name", name),
		zap.Stringer("format", f),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Read loads name in format f into target, which must be a non-nil
// pointer. On failure target is left as it was.
func (s *Store) Read(ctx context.Context, f Format, name string, target any) error {
	n, err := s.ReadDocument(ctx, f, name)
	if err != nil {
		return err
	}
	if err := s.codec.Deserialize(n, target); err != nil {
		s.warn("deserialize failed", f, name, err)
		return err
	}
	return nil
}

// ReadAs loads name in format f as a T.
func ReadAs[T any](ctx context.Context, s *Store, f Format, name string) (T, error) {
	var zero T
	n, err := s.ReadDocument(ctx, f, name)
	if err != nil {
		return zero, err
	}
	v, err := codec.Decode[T](s.codec, n)
	if err != nil {
		s.warn("deserialize failed", f, name, err)
		return zero, err
	}
	return v, nil
}

// ReadDocument loads and parses name without decoding it into a type.
func (s *Store) ReadDocument(ctx context.Context, f Format, name string) (ir.Node, error) {
	start := time.Now()
	data, err := s.backend.Read(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errs.Wrap(errs.CodeFileNotFound, err, "no document named %q", name)
		}
		s.warn("storage read failed", f, name, err)
		return nil, errors.Wrapf(err, "read %s", name)
	}
	n, err := f.Parse(data)
	if err != nil {
		s.warn("parse failed", f, name, err)
		return nil, err
	}
	s.log.Debug("read document",
		zap.String("name", name),
		zap.Stringer("format", f),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}

// HasFile reports whether a document is stored under name.
func (s *Store) HasFile(ctx context.Context, name string) (bool, error) {
	return s.backend.Exists(ctx, name)
}

// Delete removes name; a missing name is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.backend.Delete(ctx, name); err != nil {
		return errors.Wrapf(err, "delete %s", name)
	}
	s.log.Debug("deleted document", zap.String("name", name))
	return nil
}

// Wipe removes every stored document.
func (s *Store) Wipe(ctx context.Context) error {
	if err := s.backend.Wipe(ctx); err != nil {
		s.log.Warn("wipe failed", zap.Error(err))
		return errors.Wrap(err, "wipe")
	}
	s.log.Debug("wiped store")
	return nil
}

// List returns the stored names when the backend implements
// storage.Lister.
func (s *Store) List(ctx context.Context) ([]string, error) {
	l, ok := s.backend.(storage.Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	return l.List(ctx)
}

// Digest returns the content digest of v's document tree. Two values have
// the same digest exactly when they serialize to equal trees, whatever
// format they are later written in.
func (s *Store) Digest(v any) (string, error) {
	n, err := s.codec.Serialize(v)
	if err != nil {
		return "", err
	}
	return ir.Digest(n)
}

func (s *Store) warn(msg string, f Format, name string, err error) {
	s.log.Warn(msg,
		zap.String("name", name),
		zap.Stringer("format", f),
		zap.String("code", string(errs.CodeOf(err))),
		zap.Error(err),
	)
}
