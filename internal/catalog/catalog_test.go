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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pickture/internal/domain"
	"pickture/internal/storage"
)

func openTemp(t *testing.T) (*Catalog, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(context.Background(), Options{Path: DefaultPath(dir)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, dir
}

func doc(frames ...domain.FrameItem) *domain.Document {
	return &domain.Document{OriginFilename: "photo.jpg", OriginWidth: 800, OriginHeight: 600, Frames: frames}
}

func TestOpenCreatesSchema(t *testing.T) {
	c, dir := openTemp(t)
	require.Equal(t, DriverSQLite, c.Driver())
	v, err := c.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, schemaVersion, v)
	_, err = os.Stat(filepath.Join(dir, DirName, FileName))
	require.NoError(t, err)

	// reopening keeps the version
	require.NoError(t, c.Close())
	c2, err := Open(context.Background(), Options{Driver: "SQLITE", Path: DefaultPath(dir)})
	require.NoError(t, err)
	defer c2.Close()
	v, err = c2.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, schemaVersion, v)
}

func TestPutListFramesDelete(t *testing.T) {
	c, dir := openTemp(t)
	ctx := context.Background()
	img := filepath.Join(dir, "photo.jpg")

	require.NoError(t, c.Put(ctx, img, doc(
		domain.FrameItem{X: 100, Y: 100, Width: 250, Height: 250, ID: 1},
		domain.FrameItem{X: 0, Y: 0, Width: 10, Height: 10, ID: 0},
	)))
	entries, err := c.List(ctx, dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, img, entries[0].Path)
	require.Equal(t, 2, entries[0].FrameCount)
	require.WithinDuration(t, time.Now(), entries[0].UpdatedAt, time.Minute)

	frames, err := c.Frames(ctx, img)
	require.NoError(t, err)
	require.Equal(t, []domain.FrameItem{
		{X: 0, Y: 0, Width: 10, Height: 10, ID: 0},
		{X: 100, Y: 100, Width: 250, Height: 250, ID: 1},
	}, frames)

	// replacing drops stale frames
	require.NoError(t, c.Put(ctx, img, doc(domain.FrameItem{X: 1, Y: 2, Width: 3, Height: 4, ID: 5})))
	frames, err = c.Frames(ctx, img)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, 5, frames[0].ID)

	// empty document removes the entry
	require.NoError(t, c.Put(ctx, img, doc()))
	entries, err = c.List(ctx, "")
	require.NoError(t, err)
	require.Empty(t, entries)
	frames, err = c.Frames(ctx, img)
	require.NoError(t, err)
	require.Empty(t, frames)
}

func TestListPrefixIsLiteral(t *testing.T) {
	c, _ := openTemp(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "/a_b/x.jpg", doc(domain.FrameItem{ID: 0, Width: 1, Height: 1})))
	require.NoError(t, c.Put(ctx, "/axb/y.jpg", doc(domain.FrameItem{ID: 0, Width: 1, Height: 1})))
	entries, err := c.List(ctx, "/a_b/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "/a_b/x.jpg", entries[0].Path)
}

func TestRebuildFromSidecars(t *testing.T) {
	c, dir := openTemp(t)
	ctx := context.Background()

	sub := filepath.Join(dir, "trip")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "beach.png"), []byte("png"), 0o644))
	require.NoError(t, storage.Save(doc(domain.FrameItem{X: 1, Y: 1, Width: 5, Height: 5, ID: 0}), filepath.Join(sub, "beach.pck")))
	require.NoError(t, storage.Save(doc(domain.FrameItem{X: 2, Y: 2, Width: 5, Height: 5, ID: 3}), filepath.Join(dir, "photo.pck")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pck"), []byte("garbage"), 0o644))

	// stale entry under dir is dropped, entries elsewhere survive
	require.NoError(t, c.Put(ctx, filepath.Join(dir, "gone.jpg"), doc(domain.FrameItem{ID: 0, Width: 1, Height: 1})))
	require.NoError(t, c.Put(ctx, "/elsewhere/keep.jpg", doc(domain.FrameItem{ID: 0, Width: 1, Height: 1})))

	n, err := c.Rebuild(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	entries, err := c.List(ctx, dir)
	require.NoError(t, err)
	paths := []string{}
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	require.ElementsMatch(t, []string{filepath.Join(dir, "photo.jpg"), filepath.Join(sub, "beach.png")}, paths)

	all, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestOpenRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := DefaultPath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("THIS IS NOT SQLITE, JUST A LONG ENOUGH BLOB OF TEXT TO LOOK LIKE A HEADER"), 0o644))

	c, err := Open(context.Background(), Options{Path: path})
	require.NoError(t, err)
	defer c.Close()
	v, err := c.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, schemaVersion, v)

	baks, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "backups", FileName+".*.bak"))
	require.NotEmpty(t, baks)
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	require.Error(t, err)
	_, err = Open(context.Background(), Options{Driver: "pgx"})
	require.Error(t, err)
	_, err = Open(context.Background(), Options{Driver: "mysql", Path: "x"})
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Catalog{driver: DriverPgx}
	require.Equal(t, "a = $1 AND b IN ($2, $3)", pg.rebind("a = ? AND b IN (?, ?)"))
	lite := &Catalog{driver: DriverSQLite}
	require.Equal(t, "a = ?", lite.rebind("a = ?"))
}

// Runs against a real PostgreSQL when PICKTURE_TEST_PG_DSN is set.
func TestPostgresCatalog(t *testing.T) {
	dsn := os.Getenv("PICKTURE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PICKTURE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	c, err := Open(ctx, Options{Driver: DriverPgx, DSN: dsn})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer c.Close()
	img := "/pickture-test/" + time.Now().Format("150405.000000") + "/photo.jpg"
	require.NoError(t, c.Put(ctx, img, doc(domain.FrameItem{X: 1, Y: 2, Width: 3, Height: 4, ID: 0})))
	t.Cleanup(func() { _ = c.Delete(ctx, img) })
	frames, err := c.Frames(ctx, img)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	entries, err := c.List(ctx, filepath.Dir(img))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
