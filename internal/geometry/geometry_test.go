/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"errors"
	"image"
	"math"
	"testing"
)

func TestFitIntoNeverUpscales(t *testing.T) {
	cases := [][4]float64{
		{800, 600, 800, 600},
		{800, 600, 1920, 1080},
		{1, 1, 2, 2},
		{300, 1000, 300, 1000.5},
	}
	for _, c := range cases {
		w, h, err := FitInto(c[0], c[1], c[2], c[3])
		if err != nil {
			t.Fatalf("FitInto%v error: %v", c, err)
		}
		if w != c[0] || h != c[1] {
			t.Fatalf("FitInto%v = %gx%g, want natural size", c, w, h)
		}
	}
}

func TestFitIntoPreservesAspect(t *testing.T) {
	cases := [][4]float64{
		{4000, 3000, 1728, 972},
		{1000, 4000, 1728, 972},
		{5000, 100, 200, 200},
		{1920, 1080, 1920, 1000},
	}
	for _, c := range cases {
		w, h, err := FitInto(c[0], c[1], c[2], c[3])
		if err != nil {
			t.Fatalf("FitInto%v error: %v", c, err)
		}
		if w > c[2]+1e-9 || h > c[3]+1e-9 {
			t.Fatalf("FitInto%v = %gx%g exceeds bounds", c, w, h)
		}
		if math.Abs(w/h-c[0]/c[1]) > 1e-9 {
			t.Fatalf("FitInto%v aspect %g, want %g", c, w/h, c[0]/c[1])
		}
		// one side must touch the bound
		if math.Abs(w-c[2]) > 1e-9 && math.Abs(h-c[3]) > 1e-9 {
			t.Fatalf("FitInto%v = %gx%g is not the largest fit", c, w, h)
		}
	}
}

func TestFitIntoRejectsDegenerateInput(t *testing.T) {
	bad := [][4]float64{
		{0, 600, 100, 100},
		{800, -1, 100, 100},
		{800, 600, 0, 100},
		{math.NaN(), 600, 100, 100},
		{math.Inf(1), 600, 100, 100},
	}
	for _, c := range bad {
		if _, _, err := FitInto(c[0], c[1], c[2], c[3]); !errors.Is(err, ErrInvalidGeometry) {
			t.Fatalf("FitInto%v error = %v, want ErrInvalidGeometry", c, err)
		}
	}
}

func TestRectRound(t *testing.T) {
	got := R(99.5, 100.4, 250.2, 249.6).Round()
	want := image.Rect(100, 100, 350, 350)
	if got != want {
		t.Fatalf("Round = %v, want %v", got, want)
	}
	if got := R(-10.6, -3, -5, 2).Round(); got.Dx() != 0 || got.Min.X != -11 {
		t.Fatalf("Round negative = %v", got)
	}
}

func TestCentered(t *testing.T) {
	r := Centered(225, 225, 250, 250)
	if r.X != 100 || r.Y != 100 || !r.Contains(225, 225) {
		t.Fatalf("Centered = %+v", r)
	}
}

func TestIntersect(t *testing.T) {
	a := R(0, 0, 100, 100)
	if got := a.Intersect(R(50, 60, 100, 100)); got != R(50, 60, 50, 40) {
		t.Fatalf("Intersect = %+v", got)
	}
	if got := a.Intersect(R(200, 0, 10, 10)); !got.Empty() {
		t.Fatalf("disjoint Intersect = %+v, want empty", got)
	}
}
