/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

// Basic 2D geometry shared by the registry, the extractor and the display surface.
// Screen geometry is float64; pixel geometry is int and produced by Round.

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidGeometry reports degenerate scaling inputs (zero, negative or NaN sizes).
var ErrInvalidGeometry = errors.New("invalid geometry")

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by its top-left corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// Centered returns a w×h rectangle centred on (cx, cy).
func Centered(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w*0.5, Y: cy - h*0.5, W: w, H: h}
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && y >= r.Y && x <= r.X+r.W && y <= r.Y+r.H
}

// Intersect returns the overlap of r and o; the zero Rect when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.X+r.W, o.X+o.W)
	y1 := math.Min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Round converts to integer pixel coordinates, rounding half away from zero.
// Negative sizes collapse to zero.
func (r Rect) Round() image.Rectangle {
	x := int(math.Round(r.X))
	y := int(math.Round(r.Y))
	w := int(math.Round(r.W))
	h := int(math.Round(r.H))
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return image.Rect(x, y, x+w, y+h)
}

// FitInto returns the largest size with the aspect ratio of natural that fits into max.
// Sizes that already fit are returned unchanged; the result is never upscaled.
func FitInto(naturalW, naturalH, maxW, maxH float64) (float64, float64, error) {
	if !positive(naturalW) || !positive(naturalH) {
		return 0, 0, fmt.Errorf("%w: natural size %gx%g", ErrInvalidGeometry, naturalW, naturalH)
	}
	if !positive(maxW) || !positive(maxH) {
		return 0, 0, fmt.Errorf("%w: bounds %gx%g", ErrInvalidGeometry, maxW, maxH)
	}
	scale := math.Min(maxW/naturalW, maxH/naturalH)
	if scale >= 1 {
		return naturalW, naturalH, nil
	}
	return naturalW * scale, naturalH * scale, nil
}

// FitSize is FitInto for Size values.
func FitSize(natural, bounds Size) (Size, error) {
	w, h, err := FitInto(natural.W, natural.H, bounds.W, bounds.H)
	return Size{W: w, H: h}, err
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }
