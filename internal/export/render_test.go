/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"reflect"
	"testing"

	"menuboard/internal/domain"
)

func TestSelectPages(t *testing.T) {
	if got := selectPages(3, nil); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("all pages: %v", got)
	}
	if got := selectPages(3, []int{3, 0, 1, 3, 7}); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("filtered pages: %v", got)
	}
}

func TestFitBox(t *testing.T) {
	frame := box{X: 0, Y: 0, W: 200, H: 100}
	if got := fitBox(frame, 100, 100, domain.FitContain); got != (box{X: 50, Y: 0, W: 100, H: 100}) {
		t.Fatalf("contain: %+v", got)
	}
	if got := fitBox(frame, 100, 100, domain.FitCover); got != (box{X: 0, Y: -50, W: 200, H: 200}) {
		t.Fatalf("cover: %+v", got)
	}
}

func TestInsideShape(t *testing.T) {
	b := box{W: 100, H: 100}
	cases := []struct {
		shape domain.Shape
		x, y  float64
		want  bool
	}{
		{domain.ShapeRect, 1, 1, true},
		{domain.ShapeRect, 101, 1, false},
		{domain.ShapeCircle, 50, 50, true},
		{domain.ShapeCircle, 2, 2, false},
		{domain.ShapeRounded, 1, 1, false},
		{domain.ShapeRounded, 20, 1, true},
		{domain.ShapeTriangle, 50, 5, true},
		{domain.ShapeTriangle, 5, 5, false},
		{domain.ShapeDiamond, 50, 50, true},
		{domain.ShapeDiamond, 10, 10, false},
	}
	for _, c := range cases {
		if got := insideShape(c.shape, 18, b, c.x, c.y); got != c.want {
			t.Fatalf("%s at (%v,%v): got %v", c.shape, c.x, c.y, got)
		}
	}
}

func TestDecodeDataURLAndColors(t *testing.T) {
	b, err := decodeDataURL("data:text/plain,a%20b")
	if err != nil || string(b) != "a b" {
		t.Fatalf("percent payload: %q %v", b, err)
	}
	if _, err := decodeDataURL("data:image/png;base64"); err == nil {
		t.Fatalf("expected malformed data URL error")
	}
	if c := parseColor("#0f8"); c.R != 0 || c.G != 0xff || c.B != 0x88 {
		t.Fatalf("short hex: %+v", c)
	}
	if c := parseColor("bogus"); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Fatalf("fallback should be white: %+v", c)
	}
}
