/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model persisted next to every image: a set of
// rectangular pick frames plus the origin metadata of the image they belong to.
// Both the XML sidecar and the JSON projection are driven by the struct tags below.

import (
	"encoding/xml"
	"image"
	"sort"
)

// UnassignedID marks a frame that has not been given an id by a registry yet.
// It is never written to a valid document.
const UnassignedID = -1

// FrameItem is one rectangular region in image pixel coordinates.
// X and Y may be negative when a frame was dragged past the image origin.
type FrameItem struct {
	X      int `xml:"X,attr" json:"x"`
	Y      int `xml:"Y,attr" json:"y"`
	Width  int `xml:"Width,attr" json:"width"`
	Height int `xml:"Height,attr" json:"height"`
	ID     int `xml:"Id,attr" json:"id"`
}

// NewFrameItem returns an unassigned frame with the given bounds.
func NewFrameItem(x, y, w, h int) FrameItem {
	return FrameItem{X: x, Y: y, Width: w, Height: h, ID: UnassignedID}
}

// Bounds returns the frame as an image rectangle.
func (f FrameItem) Bounds() image.Rectangle {
	return image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height)
}

// Document is the serializable snapshot of a frame registry.
type Document struct {
	XMLName        xml.Name    `xml:"PicktureDocument" json:"-"`
	OriginFilename string      `xml:"OriginFilename,attr" json:"originFilename"`
	OriginWidth    int         `xml:"OriginWidth,attr" json:"originWidth"`
	OriginHeight   int         `xml:"OriginHeight,attr" json:"originHeight"`
	Frames         []FrameItem `xml:"Frames>PickFrameItem" json:"frames"`
}

// Empty reports whether the document carries no frames. Empty documents are not persisted.
func (d *Document) Empty() bool { return d == nil || len(d.Frames) == 0 }

// Equal compares origin metadata and frames; frame order is ignored.
func (d Document) Equal(o Document) bool {
	if d.OriginFilename != o.OriginFilename || d.OriginWidth != o.OriginWidth || d.OriginHeight != o.OriginHeight {
		return false
	}
	if len(d.Frames) != len(o.Frames) {
		return false
	}
	a := SortedFrames(d.Frames)
	b := SortedFrames(o.Frames)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SortedFrames returns a copy of frames ordered by id, then position.
func SortedFrames(frames []FrameItem) []FrameItem {
	out := make([]FrameItem, len(frames))
	copy(out, frames)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		if out[i].Width != out[j].Width {
			return out[i].Width < out[j].Width
		}
		return out[i].Height < out[j].Height
	})
	return out
}
