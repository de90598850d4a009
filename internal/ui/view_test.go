/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"testing"

	"pickture/internal/domain"
	"pickture/internal/geometry"
)

func TestFitViewCentres(t *testing.T) {
	v := fitView(800, 600, 400, 400)
	if v.scale != 0.5 || v.offX != 0 || v.offY != 50 {
		t.Fatalf("fitView = %+v", v)
	}
	x, y := v.toImage(200, 200)
	if x != 400 || y != 300 {
		t.Fatalf("toImage = %v,%v", x, y)
	}
	s := v.toScreen(geometry.R(100, 100, 250, 250))
	if s != geometry.R(50, 100, 125, 125) {
		t.Fatalf("toScreen = %+v", s)
	}
	if d := fitView(0, 10, 10, 10); d.scale != 1 {
		t.Fatalf("degenerate view = %+v", d)
	}
}

func TestHitTestPrefersTopmost(t *testing.T) {
	fs := frameViews([]domain.FrameItem{
		{ID: 0, X: 0, Y: 0, Width: 100, Height: 100},
		{ID: 1, X: 50, Y: 50, Width: 100, Height: 100},
	})
	if i := hitTest(fs, 75, 75); fs[i].id != 1 {
		t.Fatalf("hitTest overlap = %d", i)
	}
	if i := hitTest(fs, 10, 10); fs[i].id != 0 {
		t.Fatalf("hitTest = %d", i)
	}
	if i := hitTest(fs, 500, 500); i != -1 {
		t.Fatalf("hitTest miss = %d", i)
	}
}

func TestOnResizeHandle(t *testing.T) {
	v := view{scale: 1}
	r := geometry.R(10, 10, 100, 100)
	if !onResizeHandle(v, r, 108, 109) {
		t.Fatalf("corner not detected")
	}
	if onResizeHandle(v, r, 50, 50) {
		t.Fatalf("centre reported as corner")
	}
}
