/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package frames holds the in-memory set of pick frames placed over one image.
//
// A Registry owns its FrameItem values; callers get copies. Geometry edited on
// a display surface is pulled in lazily through a GeometryProvider when a
// frame is snapshotted, never pushed on every visual change.
package frames

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"pickture/internal/domain"
	"pickture/internal/geometry"
)

// ErrRegionNotFound is returned for operations on an id the registry does not hold.
var ErrRegionNotFound = errors.New("region not found")

// DefaultFrameSize is the edge length in pixels of interactively placed frames.
const DefaultFrameSize = 250

// GeometryProvider reports the current on-image geometry of a frame as shown
// by a display surface. ok is false when the surface does not know the id.
type GeometryProvider interface {
	FrameGeometry(id int) (r geometry.Rect, ok bool)
}

// Registry is the ordered set of frames for one open image.
// It is not safe for concurrent use; the session serializes access.
type Registry struct {
	ImagePath   string
	ImageWidth  int
	ImageHeight int

	items    []domain.FrameItem
	index    map[int]int
	provider GeometryProvider
}

// New returns an empty registry bound to an image.
func New(imagePath string, width, height int) *Registry {
	return &Registry{ImagePath: imagePath, ImageWidth: width, ImageHeight: height, index: map[int]int{}}
}

// SetGeometryProvider registers the display surface used by SnapshotRectangle. nil detaches it.
func (r *Registry) SetGeometryProvider(p GeometryProvider) { r.provider = p }

// Add inserts a frame. With a non-nil existing item the frame is stored verbatim,
// id included. With nil a fresh frame is allocated with the lowest free id.
func (r *Registry) Add(existing *domain.FrameItem) domain.FrameItem {
	var it domain.FrameItem
	if existing != nil {
		it = *existing
	} else {
		it = domain.FrameItem{ID: r.NextID()}
	}
	if r.index == nil {
		r.index = map[int]int{}
	}
	r.index[it.ID] = len(r.items)
	r.items = append(r.items, it)
	return it
}

// NextID returns the smallest non-negative id not held by any frame.
func (r *Registry) NextID() int {
	// at most len(items) ids are taken, so a free one exists in [0, len]
	for i := 0; ; i++ {
		if _, taken := r.index[i]; !taken {
			return i
		}
	}
}

// PlaceFrame allocates a new size×size frame centred on the image point (cx, cy).
// A non-positive size falls back to DefaultFrameSize.
func (r *Registry) PlaceFrame(cx, cy float64, size int) domain.FrameItem {
	if size <= 0 {
		size = DefaultFrameSize
	}
	half := float64(size) / 2
	it := domain.FrameItem{
		ID:     r.NextID(),
		X:      int(math.Round(cx - half)),
		Y:      int(math.Round(cy - half)),
		Width:  size,
		Height: size,
	}
	return r.Add(&it)
}

// Remove deletes the frame with id. Other ids are left untouched.
func (r *Registry) Remove(id int) error {
	pos, ok := r.index[id]
	if !ok {
		return fmt.Errorf("remove frame %d: %w", id, ErrRegionNotFound)
	}
	r.items = append(r.items[:pos], r.items[pos+1:]...)
	r.reindex()
	return nil
}

// Update replaces the stored geometry of an existing frame.
func (r *Registry) Update(it domain.FrameItem) error {
	pos, ok := r.index[it.ID]
	if !ok {
		return fmt.Errorf("update frame %d: %w", it.ID, ErrRegionNotFound)
	}
	r.items[pos] = it
	return nil
}

// Clear removes all frames.
func (r *Registry) Clear() {
	r.items = nil
	r.index = map[int]int{}
}

// Get returns a copy of the frame with id.
func (r *Registry) Get(id int) (domain.FrameItem, bool) {
	pos, ok := r.index[id]
	if !ok {
		return domain.FrameItem{}, false
	}
	return r.items[pos], true
}

func (r *Registry) Len() int { return len(r.items) }

// List returns the frames in insertion order.
func (r *Registry) List() []domain.FrameItem {
	out := make([]domain.FrameItem, len(r.items))
	copy(out, r.items)
	return out
}

// SnapshotRectangle refreshes a frame's geometry from the provider, rounded to
// whole pixels, and returns the stored result. Without a provider, or when the
// provider does not know the id, the stored geometry is returned as is.
func (r *Registry) SnapshotRectangle(id int) (domain.FrameItem, error) {
	pos, ok := r.index[id]
	if !ok {
		return domain.FrameItem{}, fmt.Errorf("snapshot frame %d: %w", id, ErrRegionNotFound)
	}
	if r.provider == nil {
		return r.items[pos], nil
	}
	g, ok := r.provider.FrameGeometry(id)
	if !ok {
		return r.items[pos], nil
	}
	pr := g.Round()
	it := &r.items[pos]
	it.X, it.Y = pr.Min.X, pr.Min.Y
	it.Width, it.Height = pr.Dx(), pr.Dy()
	return *it, nil
}

// Document snapshots every frame and projects the registry into a Document.
func (r *Registry) Document() domain.Document {
	for _, it := range r.items {
		_, _ = r.SnapshotRectangle(it.ID)
	}
	doc := domain.Document{
		OriginWidth:  r.ImageWidth,
		OriginHeight: r.ImageHeight,
		Frames:       r.List(),
	}
	if r.ImagePath != "" {
		doc.OriginFilename = filepath.Base(r.ImagePath)
	}
	return doc
}

// FromDocument rebuilds a registry for imagePath, inserting each frame verbatim.
// Origin dimensions come from the document; callers that decoded the image may
// overwrite them with the actual size.
func FromDocument(imagePath string, doc domain.Document) *Registry {
	r := New(imagePath, doc.OriginWidth, doc.OriginHeight)
	for i := range doc.Frames {
		r.Add(&doc.Frames[i])
	}
	return r
}

func (r *Registry) reindex() {
	r.index = make(map[int]int, len(r.items))
	for i, it := range r.items {
		r.index[it.ID] = i
	}
}
