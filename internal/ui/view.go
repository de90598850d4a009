/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"math"

	"pickture/internal/domain"
	"pickture/internal/geometry"
)

// view maps image pixel coordinates to widget coordinates: the image is
// scaled to fit the widget and centred.
type view struct {
	scale      float64
	offX, offY float64
}

func fitView(imgW, imgH int, w, h float64) view {
	if imgW <= 0 || imgH <= 0 || w <= 0 || h <= 0 {
		return view{scale: 1}
	}
	s := math.Min(w/float64(imgW), h/float64(imgH))
	return view{
		scale: s,
		offX:  (w - float64(imgW)*s) / 2,
		offY:  (h - float64(imgH)*s) / 2,
	}
}

func (v view) toImage(x, y float64) (float64, float64) {
	return (x - v.offX) / v.scale, (y - v.offY) / v.scale
}

func (v view) toScreen(r geometry.Rect) geometry.Rect {
	return geometry.Rect{X: r.X*v.scale + v.offX, Y: r.Y*v.scale + v.offY, W: r.W * v.scale, H: r.H * v.scale}
}

// frameView is a frame as currently shown, in image coordinates. It holds
// fractional geometry while the user drags; the registry rounds on snapshot.
type frameView struct {
	id   int
	rect geometry.Rect
}

func frameViews(items []domain.FrameItem) []frameView {
	out := make([]frameView, 0, len(items))
	for _, it := range items {
		out = append(out, frameView{id: it.ID, rect: geometry.R(float64(it.X), float64(it.Y), float64(it.Width), float64(it.Height))})
	}
	return out
}

// hitTest returns the index of the topmost frame containing the image point, -1 if none.
func hitTest(fs []frameView, x, y float64) int {
	for i := len(fs) - 1; i >= 0; i-- {
		if fs[i].rect.Contains(x, y) {
			return i
		}
	}
	return -1
}

// resizeHandle is the grab size of the bottom-right resize corner, in widget units.
const resizeHandle = 12.0

func onResizeHandle(v view, r geometry.Rect, sx, sy float64) bool {
	s := v.toScreen(r)
	return sx >= s.X+s.W-resizeHandle && sx <= s.X+s.W+resizeHandle &&
		sy >= s.Y+s.H-resizeHandle && sy <= s.Y+s.H+resizeHandle
}
