/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pickture/internal/domain"
	applog "pickture/internal/log"
)

// Clipboard is the system clipboard as seen by the exporter.
type Clipboard interface {
	SetImage(img image.Image) error
	SetFileList(paths []string) error
}

// TempFileName returns "{imagebase}_{frameid}{ext}" for an exported frame.
func TempFileName(imagePath string, frameID int, format Format) string {
	base := filepath.Base(imagePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_" + strconv.Itoa(frameID) + strings.ToLower(format.Ext())
}

// Exporter crops frames out of one source image and delivers them.
type Exporter struct {
	// TempDir receives exported files; empty means os.TempDir().
	TempDir   string
	Options   Options
	Clipboard Clipboard
}

// CopyPixels puts the cropped frame on the clipboard as image data.
func (e *Exporter) CopyPixels(img image.Image, frame domain.FrameItem) error {
	if e.Clipboard == nil {
		return fmt.Errorf("copy pixels: no clipboard")
	}
	sub, err := Crop(img, frame.Bounds())
	if err != nil {
		return err
	}
	return e.Clipboard.SetImage(sub)
}

// ExportFile encodes the cropped frame into the temp directory and returns the file path.
func (e *Exporter) ExportFile(img image.Image, imagePath string, frame domain.FrameItem, format Format) (string, error) {
	dir := e.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return e.WriteFile(img, frame, format, filepath.Join(dir, TempFileName(imagePath, frame.ID, format)))
}

// WriteFile encodes the cropped frame to outPath, creating parent directories.
func (e *Exporter) WriteFile(img image.Image, frame domain.FrameItem, format Format, outPath string) (string, error) {
	sub, err := Crop(img, frame.Bounds())
	if err != nil {
		return "", err
	}
	data, _, err := Encode(sub, format, e.Options)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	applog.WithOperation(applog.WithComponent("export"), "write_file").Debug("frame exported",
		slog.Int("frame", frame.ID), slog.String("format", format.String()), slog.String("path", outPath))
	return outPath, nil
}

// CopyFile exports the frame to a temp file and puts that file on the clipboard.
func (e *Exporter) CopyFile(img image.Image, imagePath string, frame domain.FrameItem, format Format) (string, error) {
	if e.Clipboard == nil {
		return "", fmt.Errorf("copy file: no clipboard")
	}
	path, err := e.ExportFile(img, imagePath, frame, format)
	if err != nil {
		return "", err
	}
	if err := e.Clipboard.SetFileList([]string{path}); err != nil {
		return path, fmt.Errorf("set clipboard file list: %w", err)
	}
	return path, nil
}
