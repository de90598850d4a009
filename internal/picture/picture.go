/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package picture decodes the image a session works on.
package picture

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrImageDecode reports unreadable or corrupt image data.
var ErrImageDecode = errors.New("image decode failed")

// Picture is a decoded image. The pixel grid is never modified after decoding
// and may be shared by concurrent exports.
type Picture struct {
	Path   string
	Image  image.Image
	Width  int
	Height int
}

// Open decodes the image file at path, applying EXIF orientation.
func Open(path string) (*Picture, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageDecode, path, err)
	}
	return newPicture(path, img), nil
}

// Decode reads an image from r.
func Decode(r io.Reader) (*Picture, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return newPicture("", img), nil
}

func newPicture(path string, img image.Image) *Picture {
	b := img.Bounds()
	return &Picture{Path: path, Image: img, Width: b.Dx(), Height: b.Dy()}
}

// Bounds returns the pixel rectangle of the picture.
func (p *Picture) Bounds() image.Rectangle { return p.Image.Bounds() }
