/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package picture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 80, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func TestOpenJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	writeJPEG(t, path, 80, 60)
	p, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 80, p.Width)
	require.Equal(t, 60, p.Height)
	require.Equal(t, path, p.Path)
}

func TestDecodeBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 7, 3))))
	p, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 7, 3), p.Bounds())
}

func TestCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err := Open(path)
	require.ErrorIs(t, err, ErrImageDecode)

	_, err = Decode(strings.NewReader(""))
	require.ErrorIs(t, err, ErrImageDecode)

	_, err = Open(filepath.Join(t.TempDir(), "missing.jpg"))
	require.ErrorIs(t, err, ErrImageDecode)
}
