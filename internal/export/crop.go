/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export cuts pick frames out of a decoded image and encodes the
// result for the clipboard or a file.
//
// Crop and Encode are stateless and safe for concurrent use on the same
// source image; Exporter adds temp-file naming and clipboard hand-off.
package export

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyRegion is returned when a frame does not overlap the image at all.
var ErrEmptyRegion = errors.New("region does not overlap image")

// Crop copies the part of img covered by r. r is clamped to the image bounds
// first, so the result may be smaller than requested but never reads outside img.
// The returned image has its origin at (0, 0).
func Crop(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	clamped := r.Canon().Intersect(img.Bounds())
	if clamped.Empty() {
		return nil, fmt.Errorf("crop %v of %v: %w", r, img.Bounds(), ErrEmptyRegion)
	}
	return imaging.Crop(img, clamped), nil
}
