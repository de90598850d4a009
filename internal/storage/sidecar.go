/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"pickture/internal/domain"
	applog "pickture/internal/log"
)

const (
	// SidecarExt is the extension of the frame document stored next to each image.
	SidecarExt = ".pck"
	// ImageExt is what a sidecar path is rewritten to when it is opened as an image.
	ImageExt = ".jpg"
)

// ErrPathNormalization reports a path that cannot be made absolute.
var ErrPathNormalization = errors.New("path normalization failed")

// SidecarPath maps an image path to its sidecar path by replacing the extension.
func SidecarPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + SidecarExt
}

// NormalizeImagePath makes path absolute and rewrites a sidecar extension to ImageExt.
func NormalizeImagePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathNormalization)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathNormalization, err)
	}
	if ext := filepath.Ext(abs); strings.EqualFold(ext, SidecarExt) {
		abs = strings.TrimSuffix(abs, ext) + ImageExt
	}
	return abs, nil
}

// Save persists doc at path. A nil or frameless document removes any existing
// sidecar instead of writing one. Writes go to a temp file in the same
// directory that is renamed over path, so a failed save leaves the previous
// file intact.
func Save(doc *domain.Document, path string) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "sidecar_save").With(slog.String("path", path))
	if doc.Empty() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove empty sidecar: %w", err)
		} else if err == nil {
			l.Debug("removed sidecar without frames")
		}
		return nil
	}
	var buf bytes.Buffer
	if err := Encode(&buf, *doc); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, buf.Bytes()); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp sidecar: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		// Windows refuses to rename over an existing file
		if _, serr := os.Stat(path); serr == nil {
			_ = os.Remove(path)
			err = os.Rename(temp, path)
		}
		if err != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace sidecar: %w", err)
		}
	}
	l.Debug("sidecar saved", slog.Int("frames", len(doc.Frames)), slog.Int("bytes", buf.Len()))
	return nil
}

// Load reads the sidecar at path. A missing file yields (nil, nil). A file that
// cannot be decoded yields (nil, *CodecError) so callers can log it and carry on
// with an empty registry.
func Load(path string) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open sidecar: %w", err)
	}
	defer func() { _ = f.Close() }()
	doc, err := Decode(f)
	if err != nil {
		var ce *CodecError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
