/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"fmt"
	"image"
	"log/slog"

	"pickture/internal/domain"
	"pickture/internal/export"
)

// Action is something the user asked to do with one frame.
type Action int

const (
	ActionCopyPixels Action = iota
	ActionCopyFile
	ActionRemove
	ActionExportFile
)

func (a Action) String() string {
	switch a {
	case ActionCopyPixels:
		return "copy_pixels"
	case ActionCopyFile:
		return "copy_file"
	case ActionRemove:
		return "remove"
	case ActionExportFile:
		return "export_file"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// FrameEvent is sent by the display surface for a frame.
// Format applies to file actions; zero means the configured default.
// OutPath is used by ActionExportFile; empty means the temp directory.
type FrameEvent struct {
	ID      int
	Action  Action
	Format  export.Format
	OutPath string
}

// Dispatch performs ev against the open image. File actions return the written path.
// The frame geometry is snapshotted from the display surface first. Encoding
// runs outside the controller lock; the decoded image is read-only.
func (c *Controller) Dispatch(ev FrameEvent) (string, error) {
	if ev.Action == ActionRemove {
		return "", c.RemoveFrame(ev.ID)
	}

	c.mu.Lock()
	if c.state != Open {
		c.mu.Unlock()
		return "", ErrNotOpen
	}
	frame, err := c.reg.SnapshotRectangle(ev.ID)
	img := c.pic.Image
	imagePath := c.reg.ImagePath
	c.mu.Unlock()
	if err != nil {
		return "", err
	}

	format := ev.Format
	if format == 0 {
		format = c.opt.DefaultFormat
	}
	l := c.log.With(slog.Int("frame", ev.ID), slog.String("action", ev.Action.String()))
	path, err := c.run(ev, img, imagePath, frame, format)
	if err != nil {
		l.ErrorContext(c.ctx, "frame action failed", slog.Any("err", err))
		return path, err
	}
	l.InfoContext(c.ctx, "frame action done", slog.String("path", path))
	return path, nil
}

func (c *Controller) run(ev FrameEvent, img image.Image, imagePath string, frame domain.FrameItem, format export.Format) (string, error) {
	switch ev.Action {
	case ActionCopyPixels:
		return "", c.exporter.CopyPixels(img, frame)
	case ActionCopyFile:
		return c.exporter.CopyFile(img, imagePath, frame, format)
	case ActionExportFile:
		if ev.OutPath != "" {
			return c.exporter.WriteFile(img, frame, format, ev.OutPath)
		}
		return c.exporter.ExportFile(img, imagePath, frame, format)
	default:
		return "", fmt.Errorf("unknown frame action %v", ev.Action)
	}
}
