// Package sqlite is the concrete Store implementation: row models with
// to/from-domain converters, one repository-style file per aggregate, and
// a DB wiring type that satisfies store.Store. Structured the way the
// teacher lays out infrastructure/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a *sql.DB plus every repository, and is the concrete type that
// satisfies store.Store (see sqlite.go).
type DB struct {
	conn *sql.DB
}

// NewDB opens (creating if absent) the SQLite database at path, backs up
// an existing file to path+".bak" before applying any pending migrations,
// and aborts if the on-disk schema is newer than this binary knows about
// (spec 6's migration story).
func NewDB(path string) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		if _, err := os.Stat(path); err == nil {
			if err := backupFile(path, path+".bak"); err != nil {
				return nil, fmt.Errorf("pre-migration backup: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	conn.SetMaxOpenConns(1) // single-writer-friendly: serialize at the connection pool level

	if err := migrateUp(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := SeedAgentStates(context.Background(), db, domain.AllBeeNames()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("seed agent state: %w", err)
	}
	return db, nil
}

func backupFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// latestSchemaVersion must track the highest-numbered migration file
// shipped with this binary. NewDB refuses to start against a database
// whose recorded version is newer, per spec 6's migration story.
const latestSchemaVersion = 1

func migrateUp(conn *sql.DB) error {
	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if version, dirty, err := m.Version(); err == nil && !dirty && version > latestSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d); refusing to start", version, latestSchemaVersion)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
