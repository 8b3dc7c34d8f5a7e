package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const tempSuffix = ".tmp"

// LocalStore is a Backend rooted at a directory on the local filesystem.
// Names map to files below the root; missing parent directories are
// created on write.
type LocalStore struct {
	root string
}

// NewLocalStore returns a LocalStore rooted at root. The directory does not
// have to exist yet.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root returns the directory the store writes below.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func (s *LocalStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := checkCall(ctx, name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		// A directory under the name is not a file either.
		if isDirectory(s.path(name)) {
			return nil, errors.Wrapf(ErrNotFound, "%s is a directory", name)
		}
		return nil, err
	}
	return data, nil
}

// Write writes data to a temporary file next to the target and renames it
// into place.
func (s *LocalStore) Write(ctx context.Context, name string, data []byte) (err error) {
	if err := checkCall(ctx, name); err != nil {
		return err
	}
	target := s.path(name)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", name)
	}

	tmpName := filepath.Join(dir, "."+filepath.Base(target)+"."+uuid.NewString()+tempSuffix)
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", name)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", name)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	if err = os.Rename(tmpName, target); err != nil {
		return errors.Wrapf(err, "replace %s", name)
	}

	// Best effort: make the rename durable.
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := checkCall(ctx, name); err != nil {
		return false, err
	}
	info, err := os.Stat(s.path(name))
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := checkCall(ctx, name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "delete %s", name)
	}
	return nil
}

// Wipe removes everything below the root but keeps the root directory.
func (s *LocalStore) Wipe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "wipe")
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return errors.Wrapf(err, "wipe %s", e.Name())
		}
	}
	return nil
}

// List walks the root and returns the names of all regular files, skipping
// temporary files left behind by interrupted writes.
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() || isTempFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list")
	}
	sort.Strings(names)
	return names, nil
}

func isTempFile(base string) bool {
	return strings.HasPrefix(base, ".") && strings.HasSuffix(base, tempSuffix)
}

func isDirectory(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

var (
	_ Backend = (*LocalStore)(nil)
	_ Lister  = (*LocalStore)(nil)
)
