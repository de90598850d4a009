/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pickture/internal/domain"
	applog "pickture/internal/log"
	"pickture/internal/storage"
)

// Put replaces the catalog entry for imagePath with doc. A nil or frameless
// document removes the entry, mirroring the sidecar policy.
func (c *Catalog) Put(ctx context.Context, imagePath string, doc *domain.Document) error {
	if doc.Empty() {
		return c.Delete(ctx, imagePath)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	if err := c.putTx(ctx, tx, imagePath, doc); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put: %w", err)
	}
	return nil
}

func (c *Catalog) putTx(ctx context.Context, tx *sql.Tx, imagePath string, doc *domain.Document) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, c.rebind(`INSERT INTO images (path, origin_filename, origin_width, origin_height, frame_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			origin_filename = excluded.origin_filename,
			origin_width    = excluded.origin_width,
			origin_height   = excluded.origin_height,
			frame_count     = excluded.frame_count,
			updated_at      = excluded.updated_at`),
		imagePath, doc.OriginFilename, doc.OriginWidth, doc.OriginHeight, len(doc.Frames), now); err != nil {
		return fmt.Errorf("upsert image: %w", err)
	}
	if _, err := tx.ExecContext(ctx, c.rebind(`DELETE FROM frames WHERE image_path = ?`), imagePath); err != nil {
		return fmt.Errorf("clear frames: %w", err)
	}
	ins := c.rebind(`INSERT INTO frames (image_path, frame_id, x, y, width, height) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, f := range doc.Frames {
		if _, err := tx.ExecContext(ctx, ins, imagePath, f.ID, f.X, f.Y, f.Width, f.Height); err != nil {
			return fmt.Errorf("insert frame %d: %w", f.ID, err)
		}
	}
	return nil
}

// Delete removes the entry for imagePath. Missing entries are not an error.
func (c *Catalog) Delete(ctx context.Context, imagePath string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	if err := c.deleteTx(ctx, tx, `= ?`, imagePath); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// deleteTx removes images (and their frames) matching "path <cond>".
func (c *Catalog) deleteTx(ctx context.Context, tx *sql.Tx, cond string, arg string) error {
	if _, err := tx.ExecContext(ctx, c.rebind(`DELETE FROM frames WHERE image_path `+cond), arg); err != nil {
		return fmt.Errorf("delete frames: %w", err)
	}
	if _, err := tx.ExecContext(ctx, c.rebind(`DELETE FROM images WHERE path `+cond), arg); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// List returns the entries whose path starts with dirPrefix, ordered by path.
// An empty prefix lists everything.
func (c *Catalog) List(ctx context.Context, dirPrefix string) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(`SELECT path, origin_filename, origin_width, origin_height, frame_count, updated_at
		FROM images WHERE path LIKE ? ESCAPE '\' ORDER BY path`), likePrefix(dirPrefix))
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.Path, &e.OriginFilename, &e.OriginWidth, &e.OriginHeight, &e.FrameCount, &ts); err != nil {
			return nil, err
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Frames returns the indexed frames of one image ordered by id.
func (c *Catalog) Frames(ctx context.Context, imagePath string) ([]domain.FrameItem, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(`SELECT frame_id, x, y, width, height FROM frames WHERE image_path = ? ORDER BY frame_id`), imagePath)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.FrameItem
	for rows.Next() {
		var f domain.FrameItem
		if err := rows.Scan(&f.ID, &f.X, &f.Y, &f.Width, &f.Height); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Rebuild drops every entry under dir and re-indexes all sidecars found below it.
// Unreadable sidecars are logged and skipped. It returns the number of indexed images.
func (c *Catalog) Rebuild(ctx context.Context, dir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "rebuild").With(slog.String("dir", dir))
	abs, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrPathNormalization, err)
	}
	type found struct {
		image string
		doc   *domain.Document
	}
	var docs []found
	walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), storage.SidecarExt) {
			return nil
		}
		doc, lerr := storage.Load(p)
		if lerr != nil {
			l.Warn("skipping unreadable sidecar", slog.String("path", p), slog.Any("err", lerr))
			return nil
		}
		if doc.Empty() {
			return nil
		}
		docs = append(docs, found{image: imageForSidecar(p), doc: doc})
		return ctx.Err()
	})
	if walkErr != nil {
		return 0, fmt.Errorf("scan %s: %w", abs, walkErr)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rebuild: %w", err)
	}
	if err := c.deleteTx(ctx, tx, `LIKE ? ESCAPE '\'`, likePrefix(abs+string(filepath.Separator))); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	for _, f := range docs {
		if err := c.putTx(ctx, tx, f.image, f.doc); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rebuild: %w", err)
	}
	l.Info("catalog rebuilt", slog.Int("images", len(docs)))
	return len(docs), nil
}

// imageForSidecar finds the image a sidecar belongs to: a sibling with the same
// base name and any other extension, or the default image extension.
func imageForSidecar(sidecar string) string {
	base := strings.TrimSuffix(sidecar, filepath.Ext(sidecar))
	matches, _ := filepath.Glob(escapeGlob(base) + ".*")
	sort.Strings(matches)
	for _, m := range matches {
		if strings.EqualFold(filepath.Ext(m), storage.SidecarExt) {
			continue
		}
		if st, err := os.Stat(m); err == nil && st.Mode().IsRegular() {
			return m
		}
	}
	return base + storage.ImageExt
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	if filepath.Separator == '\\' {
		// backslash is the separator on Windows and cannot escape
		return s
	}
	return r.Replace(s)
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// SchemaVersion returns the schema version recorded in the catalog.
func (c *Catalog) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}
