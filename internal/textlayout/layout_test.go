/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "testing"

func TestWordWrap_Naive(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	box := l.Layout("Hello world from Go", FontSpec{}, 50)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	if box.Width <= 0 || box.Height <= 0 {
		t.Fatalf("expected positive box size: %+v", box)
	}
	for _, ln := range box.Lines {
		if ln.Width > 50 && len(ln.Text) > 5 {
			t.Fatalf("line %q wider than box: %v", ln.Text, ln.Width)
		}
	}
}

func TestWordWrap_Newlines(t *testing.T) {
	box := NewWordWrap(BasicProvider{}).Layout("a\n\nb", FontSpec{}, 0)
	if len(box.Lines) != 3 || box.Lines[1].Text != "" || box.Lines[2].Text != "b" {
		t.Fatalf("unexpected lines: %+v", box.Lines)
	}
	// basicfont is 7px per glyph, 13px per line
	if box.Lines[0].Width != 7 || box.Height != 3*13 {
		t.Fatalf("unexpected metrics: width=%v height=%v", box.Lines[0].Width, box.Height)
	}
}

func TestMeasure_Deterministic(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, FontSpec{}, "ABC")
	w2, _ := Measure(BasicProvider{}, FontSpec{}, "A")
	if w1 != 3*w2 || h1 <= 0 {
		t.Fatalf("expected linear advance, got w1=%v w2=%v h1=%v", w1, w2, h1)
	}
}

func TestOTProviderUsesGoFonts(t *testing.T) {
	p := &OTProvider{Lib: DefaultLibrary()}
	_, m := p.Resolve(FontSpec{Family: FamilySans, SizePx: 40, Bold: true})
	if m.Ascent < 30 || m.Ascent > 45 {
		t.Fatalf("unexpected ascent for 40px face: %v", m.Ascent)
	}
	wBold, _ := Measure(p, FontSpec{Family: FamilySans, SizePx: 40, Bold: true}, "Menu")
	wMono, _ := Measure(p, FontSpec{Family: FamilyMono, SizePx: 40}, "Menu")
	if wBold <= 0 || wMono <= 0 || wBold == wMono {
		t.Fatalf("families should measure differently: bold=%v mono=%v", wBold, wMono)
	}
	if _, ok := DefaultLibrary().Bytes(FontSpec{Family: "unknown"}); !ok {
		t.Fatalf("unknown family should fall back to sans")
	}
	if FamilyFor(`ui-monospace, Menlo`) != FamilyMono || FamilyFor("Pretendard, sans-serif") != FamilySans {
		t.Fatalf("font stack mapping")
	}
}
