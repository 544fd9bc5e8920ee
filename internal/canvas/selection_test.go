/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"reflect"
	"testing"
)

func TestSelectionClickOrder(t *testing.T) {
	var s Selection
	s.Press("a", false)
	s.Press("b", true)
	s.Press("c", true)
	if !reflect.DeepEqual(s.IDs(), []string{"a", "b", "c"}) {
		t.Fatalf("click order mismatch: %v", s.IDs())
	}
	if p, ok := s.Primary(); !ok || p != "a" {
		t.Fatalf("primary should be the first click, got %q", p)
	}
	s.Press("a", true)
	if p, _ := s.Primary(); p != "b" || s.Has("a") {
		t.Fatalf("toggle should remove a, primary b: %v", s.IDs())
	}
	s.Press("c", false)
	if !reflect.DeepEqual(s.IDs(), []string{"c"}) {
		t.Fatalf("plain click should replace: %v", s.IDs())
	}
}

func TestSelectionPruneAndGesture(t *testing.T) {
	var s Selection
	s.Set([]string{"a", "b", "a"})
	if s.Len() != 2 {
		t.Fatalf("set should dedupe: %v", s.IDs())
	}
	s.Prune(Items{box("b", 0, 0, 1, 1, 1)})
	if !reflect.DeepEqual(s.IDs(), []string{"b"}) {
		t.Fatalf("prune mismatch: %v", s.IDs())
	}
	s.BeginGesture()
	if s.BackgroundClick() || s.Len() != 1 {
		t.Fatalf("gesture should guard selection")
	}
	s.EndGesture()
	if !s.BackgroundClick() || s.Len() != 0 {
		t.Fatalf("background click should clear")
	}
	if _, ok := s.Primary(); ok {
		t.Fatalf("empty selection has no primary")
	}
}
