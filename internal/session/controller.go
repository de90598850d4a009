/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session drives one viewer window: which image is open, its frame
// registry, and when the registry is persisted.
//
// Every transition goes through Controller. Opening another image (directly or
// by navigation) and closing always persist the current registry first, which
// either writes the sidecar or deletes it when no frames remain.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"pickture/internal/config"
	"pickture/internal/domain"
	"pickture/internal/export"
	"pickture/internal/frames"
	"pickture/internal/geometry"
	applog "pickture/internal/log"
	"pickture/internal/picture"
	"pickture/internal/storage"
)

// State of a Controller.
type State int

const (
	Closed State = iota
	Open
	// Failed means the last open attempt could not decode its image.
	Failed
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrNotOpen is returned by operations that need an open image.
	ErrNotOpen = errors.New("no image open")
	// ErrNoSiblings is reported when navigation has fewer than two candidates.
	// Navigate treats it as a no-op and only logs it.
	ErrNoSiblings = errors.New("fewer than two sibling images")
)

// Indexer receives every persisted document, e.g. the frame catalog.
type Indexer interface {
	Put(ctx context.Context, imagePath string, doc *domain.Document) error
}

// Options configures a Controller.
type Options struct {
	FrameSize     int
	Extension     string
	Sort          bool
	ScaleFactor   float64
	Export        export.Options
	DefaultFormat export.Format
	TempDir       string
	Clipboard     export.Clipboard
	Catalog       Indexer
	Logger        *slog.Logger
}

// OptionsFromConfig maps the user configuration onto controller options.
// Clipboard and Catalog are left for the caller to wire.
func OptionsFromConfig(cfg config.AppConfig) Options {
	f, err := export.ParseFormat(cfg.Export.DefaultFormat)
	if err != nil {
		f = export.FormatPNG
	}
	return Options{
		FrameSize:     cfg.Frames.DefaultSize,
		Extension:     cfg.Navigation.Extension,
		Sort:          cfg.Navigation.Sort,
		ScaleFactor:   cfg.Display.ScaleFactor,
		DefaultFormat: f,
		TempDir:       cfg.Export.TempDir,
		Export: export.Options{
			JPEGQuality:  cfg.Export.JPEGQuality,
			WebPQuality:  cfg.Export.WebPQuality,
			WebPLossless: cfg.Export.WebPLossless,
		},
	}
}

// Controller is the state machine over the currently open image.
// All methods are safe for concurrent use; mutations and persistence are serialized.
type Controller struct {
	mu sync.Mutex

	id  string
	ctx context.Context
	log *slog.Logger
	opt Options

	state    State
	pic      *picture.Picture
	reg      *frames.Registry
	provider frames.GeometryProvider
	loadErr  error
	exporter *export.Exporter
}

// New returns a closed controller.
func New(opt Options) *Controller {
	def := config.Defaults()
	if opt.FrameSize <= 0 {
		opt.FrameSize = def.Frames.DefaultSize
	}
	if opt.Extension == "" {
		opt.Extension = def.Navigation.Extension
	}
	if opt.ScaleFactor <= 0 || opt.ScaleFactor > 1 {
		opt.ScaleFactor = def.Display.ScaleFactor
	}
	if opt.DefaultFormat == 0 {
		opt.DefaultFormat = export.FormatPNG
	}
	id := uuid.NewString()
	l := opt.Logger
	if l == nil {
		l = applog.WithComponent("session")
	}
	return &Controller{
		id:  id,
		ctx: applog.ContextWithSession(context.Background(), id),
		log: l,
		opt: opt,
		exporter: &export.Exporter{
			TempDir:   opt.TempDir,
			Options:   opt.Export,
			Clipboard: opt.Clipboard,
		},
	}
}

// ID identifies this controller in logs.
func (c *Controller) ID() string { return c.id }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ImagePath returns the absolute path of the open image, "" when none is open.
func (c *Controller) ImagePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reg == nil {
		return ""
	}
	return c.reg.ImagePath
}

// Picture returns the decoded open image, nil when none is open.
func (c *Controller) Picture() *picture.Picture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pic
}

// LoadError reports why the sidecar of the open image could not be read, if it could not.
func (c *Controller) LoadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// SetGeometryProvider attaches the display surface whose frame geometry is
// pulled at save and export time. It survives image changes.
func (c *Controller) SetGeometryProvider(p frames.GeometryProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = p
	if c.reg != nil {
		c.reg.SetGeometryProvider(p)
	}
}

// Open persists the current image's frames, then opens path. A ".pck" path is
// redirected to the matching image. When the image cannot be decoded the
// controller ends up Failed and the error is returned. An unreadable sidecar
// does not fail the open; it starts an empty registry and is kept in LoadError.
func (c *Controller) Open(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked(path)
}

func (c *Controller) openLocked(path string) error {
	if err := c.persistLocked(); err != nil {
		return fmt.Errorf("persist before open: %w", err)
	}
	abs, err := storage.NormalizeImagePath(path)
	if err != nil {
		c.failLocked()
		return err
	}
	l := applog.WithImage(c.log, abs)
	pic, err := picture.Open(abs)
	if err != nil {
		c.failLocked()
		l.ErrorContext(c.ctx, "open image failed", slog.Any("err", err))
		return err
	}

	reg := frames.New(abs, pic.Width, pic.Height)
	var loadErr error
	doc, err := storage.Load(storage.SidecarPath(abs))
	switch {
	case err != nil:
		loadErr = err
		l.ErrorContext(c.ctx, "sidecar unreadable, starting without frames", slog.Any("err", err))
	case doc != nil:
		reg = frames.FromDocument(abs, *doc)
		if doc.OriginWidth != pic.Width || doc.OriginHeight != pic.Height {
			l.WarnContext(c.ctx, "sidecar was saved for a different image size",
				slog.Int("doc_w", doc.OriginWidth), slog.Int("doc_h", doc.OriginHeight),
				slog.Int("img_w", pic.Width), slog.Int("img_h", pic.Height))
		}
		reg.ImageWidth, reg.ImageHeight = pic.Width, pic.Height
	}
	reg.SetGeometryProvider(c.provider)

	c.pic = pic
	c.reg = reg
	c.loadErr = loadErr
	c.state = Open
	l.InfoContext(c.ctx, "image opened", slog.Int("frames", reg.Len()), slog.Int("w", pic.Width), slog.Int("h", pic.Height))
	return nil
}

func (c *Controller) failLocked() {
	c.pic = nil
	c.reg = nil
	c.loadErr = nil
	c.state = Failed
}

// Close persists the current frames and releases the image.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.persistLocked()
	c.pic = nil
	c.reg = nil
	c.loadErr = nil
	c.state = Closed
	return err
}

// Save persists the current frames without changing state.
func (c *Controller) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

// persistLocked writes or deletes the sidecar of the open image and updates the catalog.
func (c *Controller) persistLocked() error {
	if c.state != Open || c.reg == nil {
		return nil
	}
	doc := c.reg.Document()
	path := c.reg.ImagePath
	if err := storage.Save(&doc, storage.SidecarPath(path)); err != nil {
		applog.WithImage(c.log, path).ErrorContext(c.ctx, "persist frames failed", slog.Any("err", err))
		return err
	}
	if c.opt.Catalog != nil {
		if err := c.opt.Catalog.Put(c.ctx, path, &doc); err != nil {
			applog.WithImage(c.log, path).WarnContext(c.ctx, "catalog update failed", slog.Any("err", err))
		}
	}
	return nil
}

// Document snapshots the open registry.
func (c *Controller) Document() (domain.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Open {
		return domain.Document{}, ErrNotOpen
	}
	return c.reg.Document(), nil
}

// Frames lists the frames of the open image in insertion order.
func (c *Controller) Frames() []domain.FrameItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reg == nil {
		return nil
	}
	return c.reg.List()
}

// PlaceFrame adds a default-sized frame centred on the image point (cx, cy).
func (c *Controller) PlaceFrame(cx, cy float64) (domain.FrameItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Open {
		return domain.FrameItem{}, ErrNotOpen
	}
	it := c.reg.PlaceFrame(cx, cy, c.opt.FrameSize)
	c.log.DebugContext(c.ctx, "frame placed", slog.Int("frame", it.ID), slog.Int("x", it.X), slog.Int("y", it.Y))
	return it, nil
}

// AddFrame adds a frame with explicit bounds and the lowest free id.
func (c *Controller) AddFrame(x, y, w, h int) (domain.FrameItem, error) {
	if w < 0 || h < 0 {
		return domain.FrameItem{}, fmt.Errorf("%w: negative frame size %dx%d", geometry.ErrInvalidGeometry, w, h)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Open {
		return domain.FrameItem{}, ErrNotOpen
	}
	it := domain.FrameItem{ID: c.reg.NextID(), X: x, Y: y, Width: w, Height: h}
	return c.reg.Add(&it), nil
}

// RemoveFrame deletes a frame; other ids stay as they are.
func (c *Controller) RemoveFrame(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Open {
		return ErrNotOpen
	}
	if err := c.reg.Remove(id); err != nil {
		return err
	}
	c.log.DebugContext(c.ctx, "frame removed", slog.Int("frame", id))
	return nil
}

// DisplaySize returns the window size for the open image on a screen of
// screenW×screenH, using the configured share of the screen and never upscaling.
func (c *Controller) DisplaySize(screenW, screenH float64) (float64, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pic == nil {
		return 0, 0, ErrNotOpen
	}
	return geometry.FitInto(float64(c.pic.Width), float64(c.pic.Height), screenW*c.opt.ScaleFactor, screenH*c.opt.ScaleFactor)
}
