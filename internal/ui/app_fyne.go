//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"pickture/internal/crash"
	"pickture/internal/domain"
	"pickture/internal/export"
	"pickture/internal/geometry"
	applog "pickture/internal/log"
	"pickture/internal/session"
	"pickture/internal/version"
)

// Fallback screen size used to size the window when the driver cannot report one.
const (
	defaultScreenW = 1920
	defaultScreenH = 1080
)

// Run opens imagePath in a viewer window and blocks until the window is closed.
// An empty path starts with a file chooser.
func Run(imagePath string, opt session.Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	fyneApp := app.NewWithID("pickture")
	prefs := fyneApp.Preferences()
	w := fyneApp.NewWindow("Pickture")

	opt.Clipboard = &fyneClipboard{cb: w.Clipboard(), dir: opt.TempDir}
	ctrl := session.New(opt)
	defer crash.Recover(ctrl)

	if imagePath != "" {
		if err := ctrl.Open(imagePath); err != nil {
			return fmt.Errorf("open %s: %w", imagePath, err)
		}
	}

	fc := NewFrameCanvas()
	ctrl.SetGeometryProvider(fc)

	showError := func(err error) {
		l.Error("ui action failed", slog.Any("err", err))
		dialog.ShowError(err, w)
	}

	// show syncs window and canvas with the controller after open or navigation.
	show := func() {
		pic := ctrl.Picture()
		if pic == nil {
			fc.SetPicture(nil, nil)
			w.SetTitle("Pickture")
			return
		}
		fc.SetPicture(pic.Image, ctrl.Frames())
		w.SetTitle(filepath.Base(ctrl.ImagePath()))
		addRecentImage(prefs, ctrl.ImagePath())
		if err := ctrl.LoadError(); err != nil {
			dialog.ShowError(fmt.Errorf("frames could not be loaded: %w", err), w)
		}
		sw := prefs.FloatWithFallback("screen.width", defaultScreenW)
		sh := prefs.FloatWithFallback("screen.height", defaultScreenH)
		if dw, dh, err := ctrl.DisplaySize(sw, sh); err == nil {
			w.Resize(fyne.NewSize(float32(dw), float32(dh)))
		}
	}

	openPath := func(path string) {
		if err := ctrl.Open(path); err != nil {
			showError(err)
		}
		show()
	}

	dispatch := func(id int, action session.Action, format export.Format) {
		if _, err := ctrl.Dispatch(session.FrameEvent{ID: id, Action: action, Format: format}); err != nil {
			showError(err)
			return
		}
		if action == session.ActionRemove {
			fc.RemoveFrame(id)
		}
	}

	frameMenu := func(id int) *fyne.Menu {
		copyAs := fyne.NewMenuItem("Copy as file", nil)
		var items []*fyne.MenuItem
		for _, f := range []export.Format{export.FormatPNG, export.FormatJPEG, export.FormatBMP} {
			f := f
			items = append(items, fyne.NewMenuItem(strings.ToUpper(f.String()), func() { dispatch(id, session.ActionCopyFile, f) }))
		}
		copyAs.ChildMenu = fyne.NewMenu("", items...)
		return fyne.NewMenu("",
			fyne.NewMenuItem("Copy pixels", func() { dispatch(id, session.ActionCopyPixels, 0) }),
			copyAs,
			fyne.NewMenuItem("Export", func() {
				p, err := ctrl.Dispatch(session.FrameEvent{ID: id, Action: session.ActionExportFile})
				if err != nil {
					showError(err)
					return
				}
				dialog.ShowInformation("Exported", p, w)
			}),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Remove", func() { dispatch(id, session.ActionRemove, 0) }),
		)
	}

	fc.OnPlace = func(x, y float64) {
		it, err := ctrl.PlaceFrame(x, y)
		if err != nil {
			if !errors.Is(err, session.ErrNotOpen) {
				showError(err)
			}
			return
		}
		fc.AddFrame(it)
	}
	fc.OnMenu = func(id int, pos fyne.Position) {
		widget.ShowPopUpMenuAtPosition(frameMenu(id), w.Canvas(), pos)
	}

	navigate := func(d session.Direction) {
		if err := ctrl.Navigate(d); err != nil {
			showError(err)
		}
		show()
	}
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyLeft:
			navigate(session.Left)
		case fyne.KeyRight:
			navigate(session.Right)
		case fyne.KeyDelete, fyne.KeyBackspace:
			if id := fc.Selected(); id != domain.UnassignedID {
				dispatch(id, session.ActionRemove, 0)
			}
		}
	})

	openItem := fyne.NewMenuItem("Open…", func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				showError(err)
				return
			}
			if rc == nil {
				return
			}
			_ = rc.Close()
			openPath(rc.URI().Path())
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}))
		fd.Show()
	})
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = fyne.NewMenu("")
	refreshRecent := func() {
		var items []*fyne.MenuItem
		for _, p := range loadRecentImages(prefs) {
			p := p
			items = append(items, fyne.NewMenuItem(filepath.Base(p), func() { openPath(p) }))
		}
		recentItem.ChildMenu.Items = items
	}
	refreshRecent()
	saveItem := fyne.NewMenuItem("Save Frames", func() {
		if err := ctrl.Save(); err != nil && !errors.Is(err, session.ErrNotOpen) {
			showError(err)
		}
	})
	prevItem := fyne.NewMenuItem("Previous Image", func() { navigate(session.Left) })
	nextItem := fyne.NewMenuItem("Next Image", func() { navigate(session.Right) })
	aboutItem := fyne.NewMenuItem("About Pickture", func() {
		dialog.ShowInformation("About", "Pickture "+version.String(), w)
	})
	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File", openItem, recentItem, saveItem),
		fyne.NewMenu("View", prevItem, nextItem),
		fyne.NewMenu("About", aboutItem),
	))

	w.SetContent(fc)
	w.SetCloseIntercept(func() {
		if err := ctrl.Close(); err != nil {
			l.Error("close failed", slog.Any("err", err))
		}
		w.Close()
	})

	if imagePath != "" {
		show()
		refreshRecent()
	}
	w.Show()
	if imagePath == "" {
		openItem.Action()
	}
	fyneApp.Run()
	return nil
}

// FrameCanvas shows an image scaled to fit with its frames drawn on top.
// Frames can be placed by tapping, moved by dragging and resized from their
// bottom-right corner. It is the display surface the registry snapshots from.
type FrameCanvas struct {
	widget.BaseWidget

	mu       sync.Mutex
	img      image.Image
	imgW     int
	imgH     int
	frames   []frameView
	selected int

	dragIdx    int
	dragResize bool

	OnPlace func(x, y float64)
	OnMenu  func(id int, pos fyne.Position)
}

// NewFrameCanvas returns an empty canvas.
func NewFrameCanvas() *FrameCanvas {
	fc := &FrameCanvas{selected: domain.UnassignedID, dragIdx: -1}
	fc.ExtendBaseWidget(fc)
	return fc
}

// SetPicture replaces the shown image and its frames.
func (f *FrameCanvas) SetPicture(img image.Image, items []domain.FrameItem) {
	f.mu.Lock()
	f.img = img
	f.imgW, f.imgH = 0, 0
	if img != nil {
		b := img.Bounds()
		f.imgW, f.imgH = b.Dx(), b.Dy()
	}
	f.frames = frameViews(items)
	f.selected = domain.UnassignedID
	f.dragIdx = -1
	f.mu.Unlock()
	f.Refresh()
}

func (f *FrameCanvas) AddFrame(it domain.FrameItem) {
	f.mu.Lock()
	f.frames = append(f.frames, frameViews([]domain.FrameItem{it})...)
	f.selected = it.ID
	f.mu.Unlock()
	f.Refresh()
}

func (f *FrameCanvas) RemoveFrame(id int) {
	f.mu.Lock()
	for i := range f.frames {
		if f.frames[i].id == id {
			f.frames = append(f.frames[:i], f.frames[i+1:]...)
			break
		}
	}
	if f.selected == id {
		f.selected = domain.UnassignedID
	}
	f.dragIdx = -1
	f.mu.Unlock()
	f.Refresh()
}

// Selected returns the id of the selected frame or domain.UnassignedID.
func (f *FrameCanvas) Selected() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

// FrameGeometry reports the frame's current on-screen rectangle in image pixels.
func (f *FrameCanvas) FrameGeometry(id int) (geometry.Rect, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fv := range f.frames {
		if fv.id == id {
			return fv.rect, true
		}
	}
	return geometry.Rect{}, false
}

func (f *FrameCanvas) view() view {
	sz := f.Size()
	return fitView(f.imgW, f.imgH, float64(sz.Width), float64(sz.Height))
}

// Tapped selects the frame under the pointer or places a new one.
func (f *FrameCanvas) Tapped(e *fyne.PointEvent) {
	f.mu.Lock()
	if f.img == nil {
		f.mu.Unlock()
		return
	}
	x, y := f.view().toImage(float64(e.Position.X), float64(e.Position.Y))
	if i := hitTest(f.frames, x, y); i >= 0 {
		f.selected = f.frames[i].id
		f.mu.Unlock()
		f.Refresh()
		return
	}
	inside := x >= 0 && y >= 0 && x < float64(f.imgW) && y < float64(f.imgH)
	f.mu.Unlock()
	if inside && f.OnPlace != nil {
		f.OnPlace(x, y)
	}
}

// TappedSecondary opens the frame menu when the pointer is over a frame.
func (f *FrameCanvas) TappedSecondary(e *fyne.PointEvent) {
	f.mu.Lock()
	x, y := f.view().toImage(float64(e.Position.X), float64(e.Position.Y))
	i := hitTest(f.frames, x, y)
	id := domain.UnassignedID
	if i >= 0 {
		id = f.frames[i].id
		f.selected = id
	}
	f.mu.Unlock()
	if id == domain.UnassignedID || f.OnMenu == nil {
		return
	}
	f.Refresh()
	f.OnMenu(id, e.AbsolutePosition)
}

func (f *FrameCanvas) Dragged(e *fyne.DragEvent) {
	f.mu.Lock()
	v := f.view()
	if f.dragIdx < 0 {
		sx, sy := float64(e.Position.X-e.Dragged.DX), float64(e.Position.Y-e.Dragged.DY)
		x, y := v.toImage(sx, sy)
		f.dragIdx = hitTest(f.frames, x, y)
		if f.dragIdx < 0 {
			for i := len(f.frames) - 1; i >= 0; i-- {
				if onResizeHandle(v, f.frames[i].rect, sx, sy) {
					f.dragIdx = i
					break
				}
			}
		}
		if f.dragIdx < 0 {
			f.mu.Unlock()
			return
		}
		f.dragResize = onResizeHandle(v, f.frames[f.dragIdx].rect, sx, sy)
		f.selected = f.frames[f.dragIdx].id
	}
	dx, dy := float64(e.Dragged.DX)/v.scale, float64(e.Dragged.DY)/v.scale
	r := &f.frames[f.dragIdx].rect
	if f.dragResize {
		r.W = max(1, r.W+dx)
		r.H = max(1, r.H+dy)
	} else {
		r.X += dx
		r.Y += dy
	}
	f.mu.Unlock()
	f.Refresh()
}

func (f *FrameCanvas) DragEnd() {
	f.mu.Lock()
	f.dragIdx = -1
	f.dragResize = false
	f.mu.Unlock()
}

// CreateRenderer builds the image and one outline rectangle per frame; the
// renderer positions them manually.
func (f *FrameCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	r := &frameCanvasRenderer{fc: f, bg: bg, img: img}
	r.sync()
	return r
}

var (
	frameStroke    = color.NRGBA{R: 255, G: 64, B: 64, A: 255}
	selectedStroke = color.NRGBA{R: 64, G: 160, B: 255, A: 255}
)

type frameCanvasRenderer struct {
	fc      *FrameCanvas
	bg      *canvas.Rectangle
	img     *canvas.Image
	rects   []*canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *frameCanvasRenderer) Destroy()                     {}
func (r *frameCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *frameCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }
func (r *frameCanvasRenderer) Refresh() {
	r.sync()
	r.Layout(r.fc.Size())
	canvas.Refresh(r.fc)
}

// sync matches the outline rectangles to the current frames and the image to the picture.
func (r *frameCanvasRenderer) sync() {
	r.fc.mu.Lock()
	n := len(r.fc.frames)
	if r.img.Image != r.fc.img {
		r.img.Image = r.fc.img
		r.img.Refresh()
	}
	r.fc.mu.Unlock()
	for len(r.rects) < n {
		rc := canvas.NewRectangle(color.Transparent)
		rc.StrokeWidth = 2
		r.rects = append(r.rects, rc)
	}
	r.rects = r.rects[:n]
	r.objects = append(r.objects[:0], r.bg, r.img)
	for _, rc := range r.rects {
		r.objects = append(r.objects, rc)
	}
}

func (r *frameCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	r.fc.mu.Lock()
	defer r.fc.mu.Unlock()
	v := fitView(r.fc.imgW, r.fc.imgH, float64(size.Width), float64(size.Height))
	r.img.Hidden = r.fc.img == nil
	whole := v.toScreen(geometry.R(0, 0, float64(r.fc.imgW), float64(r.fc.imgH)))
	r.img.Move(fyne.NewPos(float32(whole.X), float32(whole.Y)))
	r.img.Resize(fyne.NewSize(float32(whole.W), float32(whole.H)))

	for i, rc := range r.rects {
		if i >= len(r.fc.frames) {
			rc.Hide()
			continue
		}
		fv := r.fc.frames[i]
		s := v.toScreen(fv.rect)
		rc.StrokeColor = frameStroke
		if fv.id == r.fc.selected {
			rc.StrokeColor = selectedStroke
		}
		rc.Move(fyne.NewPos(float32(s.X), float32(s.Y)))
		rc.Resize(fyne.NewSize(float32(s.W), float32(s.H)))
		rc.Show()
	}
}

// fyneClipboard adapts the window clipboard, which only carries text. Pixels
// are offered as the path of a PNG written to dir.
type fyneClipboard struct {
	cb  fyne.Clipboard
	dir string
}

func (c *fyneClipboard) SetImage(img image.Image) error {
	data, _, err := export.Encode(img, export.FormatPNG, export.DefaultOptions())
	if err != nil {
		return err
	}
	dir := c.dir
	if dir == "" {
		dir = os.TempDir()
	}
	p := filepath.Join(dir, fmt.Sprintf("pickture_clip_%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	c.cb.SetContent(p)
	return nil
}

func (c *fyneClipboard) SetFileList(paths []string) error {
	c.cb.SetContent(strings.Join(paths, "\n"))
	return nil
}

// Recent image persistence helpers
const recentPrefsKey = "recent.images"
const recentMax = 10

func loadRecentImages(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentImages(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentImage(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentImages(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentImages(p, out)
}
