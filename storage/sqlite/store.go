// Package sqlite provides a storage.Backend that keeps every document as a
// row in a single SQLite database file.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Each row carries the SHA-256 of its contents; Read refuses rows whose
// contents no longer match.
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/playerdata/storage"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - files(name, data)
// 1 - added checksum and size columns
const currentSchemaVersion = 1

// ErrChecksumMismatch is returned when stored contents fail verification.
var ErrChecksumMismatch = errors.New("stored checksum does not match contents")

// Store is a storage.Backend backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path, applying
// pragmas and migrations. Safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect to database")
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply pragmas")
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "execute %q", pragma)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "execute schema")
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "get user_version")
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}
	return nil
}

// migrateToV1 adds the checksum and size columns to databases created
// without them and fills them in for existing rows.
func migrateToV1(db *sql.DB) error {
	cols, err := columns(db, "files")
	if err != nil {
		return errors.Wrap(err, "migrate to v1")
	}
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "migrate to v1")
	}
	defer tx.Rollback() //nolint:errcheck

	if !cols["checksum"] {
		if _, err := tx.Exec(`ALTER TABLE files ADD COLUMN checksum TEXT NOT NULL DEFAULT ''`); err != nil {
			return errors.Wrap(err, "migrate to v1: add checksum")
		}
	}
	if !cols["size"] {
		if _, err := tx.Exec(`ALTER TABLE files ADD COLUMN size INTEGER NOT NULL DEFAULT 0`); err != nil {
			return errors.Wrap(err, "migrate to v1: add size")
		}
	}

	rows, err := tx.Query(`SELECT name, data FROM files WHERE checksum = '' ORDER BY name`)
	if err != nil {
		return errors.Wrap(err, "migrate to v1: scan rows")
	}
	type row struct {
		name string
		data []byte
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.name, &r.data); err != nil {
			rows.Close()
			return errors.Wrap(err, "migrate to v1: scan rows")
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "migrate to v1: scan rows")
	}

	for _, r := range pending {
		if _, err := tx.Exec(`UPDATE files SET checksum = ?, size = ? WHERE name = ?`,
			checksum(r.data), len(r.data), r.name); err != nil {
			return errors.Wrapf(err, "migrate to v1: backfill %s", r.name)
		}
	}
	return errors.Wrap(tx.Commit(), "migrate to v1: commit")
}

func columns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	var (
		data []byte
		sum  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, checksum FROM files WHERE name = ?`, name,
	).Scan(&data, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(storage.ErrNotFound, "%s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	if sum != checksum(data) {
		return nil, errors.Wrapf(ErrChecksumMismatch, "%s", name)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Write upserts name in a single statement, which SQLite applies atomically.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (name, data, checksum, size) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			checksum = excluded.checksum,
			size = excluded.size
	`, name, data, checksum(data), len(data))
	return errors.Wrapf(err, "write %s", name)
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := storage.ValidateName(name); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM files WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "exists %s", name)
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE name = ?`, name)
	return errors.Wrapf(err, "delete %s", name)
}

func (s *Store) Wipe(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files`)
	return errors.Wrap(err, "wipe")
}

// List returns all names in binary collation order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM files ORDER BY name COLLATE BINARY ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "list")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "list")
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return errors.Wrapf(err, "query %s", name)
	}
	if value != expected {
		return errors.Newf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

var (
	_ storage.Backend = (*Store)(nil)
	_ storage.Lister  = (*Store)(nil)
)
