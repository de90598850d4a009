/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bufio"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"pickture/internal/domain"
)

// ErrDocumentCodec is matched by every CodecError.
var ErrDocumentCodec = errors.New("document codec error")

// CodecError reports a sidecar that exists but cannot be decompressed or parsed.
type CodecError struct {
	Path string
	Err  error
}

func (e *CodecError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode document: %v", e.Err)
	}
	return fmt.Sprintf("decode document %s: %v", e.Path, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

func (e *CodecError) Is(target error) bool { return target == ErrDocumentCodec }

// wire types mirror domain.Document but keep attributes optional so that
// missing fields can be told apart from zero values.
type wireDocument struct {
	XMLName        xml.Name    `xml:"PicktureDocument"`
	OriginFilename string      `xml:"OriginFilename,attr"`
	OriginWidth    int         `xml:"OriginWidth,attr"`
	OriginHeight   int         `xml:"OriginHeight,attr"`
	Frames         []wireFrame `xml:"Frames>PickFrameItem"`
}

type wireFrame struct {
	X      *int `xml:"X,attr"`
	Y      *int `xml:"Y,attr"`
	Width  *int `xml:"Width,attr"`
	Height *int `xml:"Height,attr"`
	ID     *int `xml:"Id,attr"`
}

// Encode writes doc as gzip-compressed XML. Frames must carry assigned ids.
func Encode(w io.Writer, doc domain.Document) error {
	for _, f := range doc.Frames {
		if f.ID < 0 {
			return fmt.Errorf("encode document: frame with unassigned id %d", f.ID)
		}
	}
	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := io.WriteString(zw, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(zw)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

// Decode reads a gzip-compressed XML document. Any failure is a *CodecError.
func Decode(r io.Reader) (*domain.Document, error) {
	zr, err := gzip.NewReader(bufio.NewReader(r))
	if err != nil {
		return nil, &CodecError{Err: fmt.Errorf("gunzip: %w", err)}
	}
	defer func() { _ = zr.Close() }()

	var wd wireDocument
	if err := xml.NewDecoder(zr).Decode(&wd); err != nil {
		return nil, &CodecError{Err: fmt.Errorf("parse xml: %w", err)}
	}
	doc := &domain.Document{
		OriginFilename: wd.OriginFilename,
		OriginWidth:    wd.OriginWidth,
		OriginHeight:   wd.OriginHeight,
		Frames:         make([]domain.FrameItem, 0, len(wd.Frames)),
	}
	seen := make(map[int]struct{}, len(wd.Frames))
	for i, wf := range wd.Frames {
		if wf.X == nil || wf.Y == nil || wf.Width == nil || wf.Height == nil || wf.ID == nil {
			return nil, &CodecError{Err: fmt.Errorf("frame %d: missing attribute", i)}
		}
		f := domain.FrameItem{X: *wf.X, Y: *wf.Y, Width: *wf.Width, Height: *wf.Height, ID: *wf.ID}
		if f.ID < 0 {
			return nil, &CodecError{Err: fmt.Errorf("frame %d: negative id %d", i, f.ID)}
		}
		if f.Width < 0 || f.Height < 0 {
			return nil, &CodecError{Err: fmt.Errorf("frame %d: negative size %dx%d", i, f.Width, f.Height)}
		}
		if _, dup := seen[f.ID]; dup {
			return nil, &CodecError{Err: fmt.Errorf("frame %d: duplicate id %d", i, f.ID)}
		}
		seen[f.ID] = struct{}{}
		doc.Frames = append(doc.Frames, f)
	}
	return doc, nil
}
