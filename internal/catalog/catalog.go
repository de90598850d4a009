/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog keeps a queryable index of every frame sidecar under a
// directory tree. The sidecars stay the source of truth; the catalog is
// derived from them and can be deleted and rebuilt at any time.
//
// The default backend is an embedded SQLite file at <dir>/.pickture/catalog.sqlite.
// A shared PostgreSQL database can be used instead through the pgx driver.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"

	applog "pickture/internal/log"
	"pickture/internal/version"
)

const (
	// DirName holds per-directory derived data next to the images.
	DirName  = ".pickture"
	FileName = "catalog.sqlite"

	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"

	// schemaVersion tracks the catalog schema. Bump it together with a migration step.
	schemaVersion = 2
)

// Options selects the backend.
type Options struct {
	Driver string // DriverSQLite (default) or DriverPgx
	// Path is the sqlite file; required for sqlite.
	Path string
	// DSN is the PostgreSQL connection string; required for pgx.
	DSN string
	// Password is applied to the pgx connection when the DSN carries none.
	Password string
}

// Entry summarizes one indexed image.
type Entry struct {
	Path           string
	OriginFilename string
	OriginWidth    int
	OriginHeight   int
	FrameCount     int
	UpdatedAt      time.Time
}

// Catalog is a handle on an open catalog database. It is safe for concurrent use.
type Catalog struct {
	db     *sql.DB
	driver string
	path   string
}

// DefaultPath returns the embedded catalog location for an image directory.
func DefaultPath(dir string) string {
	return filepath.Join(dir, DirName, FileName)
}

// Open connects to the catalog and makes sure its schema is current.
// A sqlite file that cannot be opened as a database is backed up and recreated.
func Open(ctx context.Context, opt Options) (*Catalog, error) {
	driver := strings.ToLower(strings.TrimSpace(opt.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	l := applog.WithOperation(applog.WithComponent("catalog"), "open").With(slog.String("driver", driver))
	switch driver {
	case DriverSQLite:
		if strings.TrimSpace(opt.Path) == "" {
			return nil, errors.New("catalog path is required")
		}
		c, err := openSQLite(ctx, opt.Path)
		if err == nil {
			l.Debug("catalog ready", slog.String("path", opt.Path))
			return c, nil
		}
		if _, statErr := os.Stat(opt.Path); statErr != nil {
			return nil, err
		}
		l.Warn("catalog unusable, rebuilding", slog.String("path", opt.Path), slog.Any("err", err))
		backupFile(opt.Path)
		_ = os.Remove(opt.Path)
		_ = os.Remove(opt.Path + "-wal")
		_ = os.Remove(opt.Path + "-shm")
		return openSQLite(ctx, opt.Path)
	case DriverPgx:
		return openPgx(ctx, opt)
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", opt.Driver)
	}
}

func openSQLite(ctx context.Context, path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	var chk string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check;").Scan(&chk); err != nil || !strings.EqualFold(chk, "ok") {
		_ = db.Close()
		if err == nil {
			err = errors.New(chk)
		}
		return nil, fmt.Errorf("quick_check: %w", err)
	}
	c := &Catalog{db: db, driver: DriverSQLite, path: path}
	if err := c.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func openPgx(ctx context.Context, opt Options) (*Catalog, error) {
	if strings.TrimSpace(opt.DSN) == "" {
		return nil, errors.New("catalog dsn is required for pgx")
	}
	cfg, err := pgx.ParseConfig(opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.Password == "" && opt.Password != "" {
		cfg.Password = opt.Password
	}
	db := stdlib.OpenDB(*cfg)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	c := &Catalog{db: db, driver: DriverPgx}
	if err := c.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Driver reports the backend in use.
func (c *Catalog) Driver() string { return c.driver }

// rebind converts ? placeholders to $n for PostgreSQL.
func (c *Catalog) rebind(q string) string {
	if c.driver != DriverPgx {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c *Catalog) ensureSchema(ctx context.Context) error {
	// Portable DDL: accepted by both SQLite and PostgreSQL.
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			path            TEXT PRIMARY KEY,
			origin_filename TEXT NOT NULL,
			origin_width    INTEGER NOT NULL,
			origin_height   INTEGER NOT NULL,
			frame_count     INTEGER NOT NULL,
			updated_at      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS frames (
			image_path TEXT    NOT NULL REFERENCES images(path) ON DELETE CASCADE,
			frame_id   INTEGER NOT NULL,
			x          INTEGER NOT NULL,
			y          INTEGER NOT NULL,
			width      INTEGER NOT NULL,
			height     INTEGER NOT NULL,
			PRIMARY KEY(image_path, frame_id)
		)`,
	}
	for _, q := range ddl {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure catalog schema: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database: start at 1 and let migrate bring it up
		if _, err := c.db.ExecContext(ctx, c.rebind(`INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`), 1, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
		cur = 1
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := c.db.ExecContext(ctx, c.rebind(`UPDATE version SET app=?, updated_at=? WHERE id=1`), appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	if cur < schemaVersion {
		if err := c.migrate(ctx, cur); err != nil {
			return err
		}
	}
	return nil
}

// migrate applies the steps after from, up to schemaVersion.
func (c *Catalog) migrate(ctx context.Context, from int) error {
	for next := from + 1; next <= schemaVersion; next++ {
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_images_updated ON images(updated_at)`}
		}
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, c.rebind(`UPDATE version SET schema=?, updated_at=? WHERE id=1`), next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
	}
	return nil
}

// backupFile copies the current catalog into a timestamped backup in <dir>/backups.
func backupFile(path string) {
	bdir := filepath.Join(filepath.Dir(path), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if data, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
