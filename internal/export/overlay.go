/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"pickture/internal/domain"
)

// OverlayColor is the default stroke of frame outlines.
var OverlayColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

// RenderOverlay returns a copy of img with every frame outlined and labelled
// with its id, clipped to the image.
func RenderOverlay(img image.Image, frames []domain.FrameItem, col color.Color, width int) *image.NRGBA {
	if col == nil {
		col = OverlayColor
	}
	if width <= 0 {
		width = 2
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	src := image.NewUniform(col)
	for _, f := range frames {
		r := f.Bounds().Sub(b.Min)
		strokeRect(out, r, width, src)
		drawLabel(out, r, width, strconv.Itoa(f.ID), src)
	}
	return out
}

// drawLabel writes text on a filled tab inside the top-left corner of r.
func drawLabel(img *image.NRGBA, r image.Rectangle, width int, text string, src image.Image) {
	if r.Empty() {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.White), Face: face}
	m := face.Metrics()
	tw := d.MeasureString(text).Ceil()
	th := m.Ascent.Ceil() + m.Descent.Ceil()
	tab := image.Rect(r.Min.X, r.Min.Y, r.Min.X+tw+2*width, r.Min.Y+th+width)
	draw.Draw(img, tab, src, image.Point{}, draw.Src)
	d.Dot = fixed.P(r.Min.X+width, r.Min.Y+m.Ascent.Ceil())
	d.DrawString(text)
}

func strokeRect(img *image.NRGBA, r image.Rectangle, width int, src image.Image) {
	if r.Empty() {
		return
	}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		// draw.Draw clips to the destination bounds
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}
