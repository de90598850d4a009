//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests exercise the Fyne widgets with the fyne test driver. They are
// gated behind the "fyne" build tag so headless CI does not need Fyne.
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"image"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"pickture/internal/domain"
	"pickture/internal/geometry"
)

func newTestCanvas(t *testing.T) *FrameCanvas {
	t.Helper()
	test.NewApp()
	fc := NewFrameCanvas()
	fc.SetPicture(image.NewNRGBA(image.Rect(0, 0, 800, 600)), []domain.FrameItem{{ID: 0, X: 100, Y: 100, Width: 200, Height: 200}})
	fc.Resize(fyne.NewSize(400, 300))
	return fc
}

func TestFrameCanvas_TapPlacesInImageCoordinates(t *testing.T) {
	fc := newTestCanvas(t)
	var gotX, gotY float64
	fc.OnPlace = func(x, y float64) { gotX, gotY = x, y }
	fc.Tapped(&fyne.PointEvent{Position: fyne.NewPos(300, 250)})
	if gotX != 600 || gotY != 500 {
		t.Fatalf("OnPlace(%v,%v), want (600,500)", gotX, gotY)
	}
}

func TestFrameCanvas_TapSelectsFrame(t *testing.T) {
	fc := newTestCanvas(t)
	fc.OnPlace = func(x, y float64) { t.Fatalf("unexpected place at %v,%v", x, y) }
	fc.Tapped(&fyne.PointEvent{Position: fyne.NewPos(100, 100)})
	if fc.Selected() != 0 {
		t.Fatalf("Selected = %d", fc.Selected())
	}
}

func TestFrameCanvas_DragMovesFrame(t *testing.T) {
	fc := newTestCanvas(t)
	fc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(110, 110)}, Dragged: fyne.NewDelta(10, 10)})
	fc.DragEnd()
	r, ok := fc.FrameGeometry(0)
	if !ok {
		t.Fatal("frame 0 missing")
	}
	if r != geometry.R(120, 120, 200, 200) {
		t.Fatalf("FrameGeometry = %+v", r)
	}
}

func TestFrameCanvas_RendererTracksFrames(t *testing.T) {
	fc := newTestCanvas(t)
	r := test.WidgetRenderer(fc).(*frameCanvasRenderer)
	if got := len(r.Objects()); got != 3 {
		t.Fatalf("objects = %d, want background, image, one frame", got)
	}
	fc.AddFrame(domain.FrameItem{ID: 1, X: 0, Y: 0, Width: 10, Height: 10})
	if got := len(r.Objects()); got != 4 {
		t.Fatalf("objects after add = %d", got)
	}
	fc.RemoveFrame(0)
	fc.RemoveFrame(1)
	if got := len(r.Objects()); got != 2 {
		t.Fatalf("objects after remove = %d", got)
	}
	rc := r.img
	if rc.Size().Width != 400 || rc.Position().Y != 0 {
		t.Fatalf("image laid out at %v size %v", rc.Position(), rc.Size())
	}
}
