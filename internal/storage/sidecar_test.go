/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pickture/internal/domain"
)

func photoDoc() *domain.Document {
	return &domain.Document{
		OriginFilename: "photo.jpg",
		OriginWidth:    800,
		OriginHeight:   600,
		Frames:         []domain.FrameItem{{X: 100, Y: 100, Width: 250, Height: 250, ID: 0}},
	}
}

func gz(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := io.WriteString(zw, s); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestSidecarPath(t *testing.T) {
	cases := map[string]string{
		"/a/photo.jpg":      "/a/photo.pck",
		"/a/photo.JPG":      "/a/photo.pck",
		"/a/archive.tar.gz": "/a/archive.tar.pck",
		"/a/noext":          "/a/noext.pck",
	}
	for in, want := range cases {
		if got := SidecarPath(in); got != want {
			t.Fatalf("SidecarPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeImagePath(t *testing.T) {
	dir := t.TempDir()
	got, err := NormalizeImagePath(filepath.Join(dir, "photo.pck"))
	if err != nil {
		t.Fatalf("NormalizeImagePath: %v", err)
	}
	if got != filepath.Join(dir, "photo.jpg") {
		t.Fatalf("got %q", got)
	}
	rel, err := NormalizeImagePath("photo.png")
	if err != nil {
		t.Fatalf("NormalizeImagePath relative: %v", err)
	}
	if !filepath.IsAbs(rel) || filepath.Base(rel) != "photo.png" {
		t.Fatalf("relative path not made absolute: %q", rel)
	}
	if _, err := NormalizeImagePath("  "); !errors.Is(err, ErrPathNormalization) {
		t.Fatalf("empty path error = %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.pck")
	want := photoDoc()
	want.Frames = append(want.Frames, domain.FrameItem{X: -20, Y: 5, Width: 10, Height: 0, ID: 4})
	if err := Save(want, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || !got.Equal(*want) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
	// no temp files left behind
	ents, _ := os.ReadDir(filepath.Dir(path))
	if len(ents) != 1 {
		t.Fatalf("expected only the sidecar in dir, got %d entries", len(ents))
	}
}

func TestSavedBytesAreGzipXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.pck")
	if err := Save(photoDoc(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("not gzip: %v", err)
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	s := string(plain)
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<PicktureDocument OriginFilename="photo.jpg" OriginWidth="800" OriginHeight="600">`,
		`<PickFrameItem X="100" Y="100" Width="250" Height="250" Id="0">`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("sidecar missing %q:\n%s", want, s)
		}
	}
}

func TestSaveEmptyDeletesSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.pck")
	if err := Save(photoDoc(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	empty := photoDoc()
	empty.Frames = nil
	if err := Save(empty, path); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("sidecar should be gone, stat err = %v", err)
	}
	// second delete is a no-op
	if err := Save(nil, path); err != nil {
		t.Fatalf("Save nil on missing file: %v", err)
	}
}

func TestLoadMissingIsNoDocument(t *testing.T) {
	doc, err := Load(filepath.Join(t.TempDir(), "absent.pck"))
	if doc != nil || err != nil {
		t.Fatalf("Load missing = %v, %v; want nil, nil", doc, err)
	}
}

func TestLoadCorruptIsCodecError(t *testing.T) {
	dir := t.TempDir()
	cases := map[string][]byte{
		"garbage":      []byte("definitely not gzip"),
		"notxml":       gz(t, "hello"),
		"wrongroot":    gz(t, `<Other/>`),
		"missingattr":  gz(t, `<PicktureDocument><Frames><PickFrameItem X="1" Y="2" Width="3" Id="0"/></Frames></PicktureDocument>`),
		"negativeid":   gz(t, `<PicktureDocument><Frames><PickFrameItem X="1" Y="2" Width="3" Height="4" Id="-1"/></Frames></PicktureDocument>`),
		"duplicateid":  gz(t, `<PicktureDocument><Frames><PickFrameItem X="1" Y="2" Width="3" Height="4" Id="0"/><PickFrameItem X="1" Y="2" Width="3" Height="4" Id="0"/></Frames></PicktureDocument>`),
		"nonnumeric":   gz(t, `<PicktureDocument><Frames><PickFrameItem X="a" Y="2" Width="3" Height="4" Id="0"/></Frames></PicktureDocument>`),
		"negativesize": gz(t, `<PicktureDocument><Frames><PickFrameItem X="1" Y="2" Width="-3" Height="4" Id="0"/></Frames></PicktureDocument>`),
	}
	for name, data := range cases {
		path := filepath.Join(dir, name+".pck")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		doc, err := Load(path)
		if doc != nil {
			t.Fatalf("%s: expected no document, got %+v", name, doc)
		}
		var ce *CodecError
		if !errors.As(err, &ce) || !errors.Is(err, ErrDocumentCodec) {
			t.Fatalf("%s: error = %v, want CodecError", name, err)
		}
		if ce.Path != path {
			t.Fatalf("%s: CodecError.Path = %q", name, ce.Path)
		}
	}
}

func TestDecodeAcceptsSelfClosingFrames(t *testing.T) {
	data := gz(t, `<?xml version="1.0"?>
<PicktureDocument OriginFilename="a.jpg" OriginWidth="10" OriginHeight="20">
  <Frames>
    <PickFrameItem X="1" Y="2" Width="3" Height="4" Id="5" />
  </Frames>
</PicktureDocument>`)
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := domain.FrameItem{X: 1, Y: 2, Width: 3, Height: 4, ID: 5}
	if len(doc.Frames) != 1 || doc.Frames[0] != want || doc.OriginHeight != 20 {
		t.Fatalf("Decode = %+v", doc)
	}
}

func TestEncodeRejectsUnassignedID(t *testing.T) {
	doc := photoDoc()
	doc.Frames[0].ID = domain.UnassignedID
	if err := Encode(io.Discard, *doc); err == nil {
		t.Fatalf("expected error for unassigned id")
	}
}
