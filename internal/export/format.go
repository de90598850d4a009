/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is a supported export encoding. The zero value means "not chosen".
type Format int

const (
	FormatBMP Format = iota + 1
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatTIFF
	FormatWebP
	FormatPDF
)

var formatNames = map[Format]string{
	FormatBMP:  "bmp",
	FormatJPEG: "jpeg",
	FormatPNG:  "png",
	FormatGIF:  "gif",
	FormatTIFF: "tiff",
	FormatWebP: "webp",
	FormatPDF:  "pdf",
}

var formatExts = map[Format]string{
	FormatBMP:  ".bmp",
	FormatJPEG: ".jpg",
	FormatPNG:  ".png",
	FormatGIF:  ".gif",
	FormatTIFF: ".tif",
	FormatWebP: ".webp",
	FormatPDF:  ".pdf",
}

// Formats lists every supported format in menu order.
func Formats() []Format {
	return []Format{FormatPNG, FormatJPEG, FormatBMP, FormatGIF, FormatTIFF, FormatWebP, FormatPDF}
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the canonical lower-case filename extension, dot included.
func (f Format) Ext() string { return formatExts[f] }

// ParseFormat accepts a format name or extension, case-insensitive ("jpg", ".TIF", "webp").
func ParseFormat(s string) (Format, error) {
	n := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	switch n {
	case "jpg", "jpe":
		return FormatJPEG, nil
	case "tif":
		return FormatTIFF, nil
	case "dib":
		return FormatBMP, nil
	}
	for f, name := range formatNames {
		if name == n {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unsupported export format %q", s)
}

// Options tunes the lossy encoders. Zero values fall back to DefaultOptions.
type Options struct {
	JPEGQuality  int
	WebPQuality  int
	WebPLossless bool
}

func DefaultOptions() Options {
	return Options{JPEGQuality: 95, WebPQuality: 90}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = d.JPEGQuality
	}
	if o.WebPQuality <= 0 || o.WebPQuality > 100 {
		o.WebPQuality = d.WebPQuality
	}
	return o
}

// Encode converts img to format and returns the bytes with the format's extension.
func Encode(img image.Image, format Format, opt Options) ([]byte, string, error) {
	opt = opt.normalized()
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: opt.JPEGQuality})
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatGIF:
		err = gif.Encode(&buf, img, &gif.Options{NumColors: 256})
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Lossless: opt.WebPLossless, Quality: float32(opt.WebPQuality)})
	case FormatPDF:
		err = encodePDF(&buf, img)
	default:
		return nil, "", fmt.Errorf("encode: unsupported format %v", format)
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), format.Ext(), nil
}
