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

func arrangeFixture() Items {
	return Items{
		box("a", 10, 100, 100, 40, 1),
		box("b", 50, 20, 200, 60, 2),
		box("c", 300, 300, 10, 10, 3),
	}
}

func TestAlignHorizontal(t *testing.T) {
	s := arrangeFixture()
	ids := []string{"a", "b"}

	left := s.Align(ids, AlignLeft)
	if left[0].X != 10 || left[1].X != 10 || left[2].X != 300 {
		t.Fatalf("align left mismatch: %d %d %d", left[0].X, left[1].X, left[2].X)
	}
	right := s.Align(ids, AlignRight)
	if right[0].X != 150 || right[1].X != 50 {
		t.Fatalf("align right mismatch: %d %d", right[0].X, right[1].X)
	}
	center := s.Align(ids, AlignCenter) // bounds 10..250, mid 130
	if center[0].X != 80 || center[1].X != 30 {
		t.Fatalf("align center mismatch: %d %d", center[0].X, center[1].X)
	}
}

func TestAlignVertical(t *testing.T) {
	s := arrangeFixture()
	ids := []string{"a", "b"}
	top := s.Align(ids, AlignTop)
	if top[0].Y != 20 || top[1].Y != 20 {
		t.Fatalf("align top mismatch: %d %d", top[0].Y, top[1].Y)
	}
	bottom := s.Align(ids, AlignBottom) // max bottom 140
	if bottom[0].Y != 100 || bottom[1].Y != 80 {
		t.Fatalf("align bottom mismatch: %d %d", bottom[0].Y, bottom[1].Y)
	}
	middle := s.Align(ids, AlignMiddle) // bounds 20..140, mid 80
	if middle[0].Y != 60 || middle[1].Y != 50 {
		t.Fatalf("align middle mismatch: %d %d", middle[0].Y, middle[1].Y)
	}
}

func TestAlignNeedsTwoAndRespectsLock(t *testing.T) {
	s := arrangeFixture()
	if got := s.Align([]string{"a"}, AlignLeft); !reflect.DeepEqual(got, s) {
		t.Fatalf("single selection must be a no-op")
	}
	if got := s.Align([]string{"a", "missing"}, AlignLeft); !reflect.DeepEqual(got, s) {
		t.Fatalf("unknown ids do not count toward the minimum")
	}
	s[0].Locked = true
	got := s.Align([]string{"a", "b"}, AlignLeft)
	if got[0].X != 10 || got[1].X != 10 {
		t.Fatalf("locked item contributes bounds but stays: %d %d", got[0].X, got[1].X)
	}
	got = s.Align([]string{"a", "b"}, AlignRight)
	if got[0].X != 10 {
		t.Fatalf("locked item must not move")
	}
}

func TestZOrder(t *testing.T) {
	s := arrangeFixture()
	fwd := s.BringForward([]string{"b", "a"})
	if fwd[0].Z != 4 || fwd[1].Z != 5 || fwd[2].Z != 3 {
		t.Fatalf("bring forward mismatch: %d %d %d", fwd[0].Z, fwd[1].Z, fwd[2].Z)
	}
	s[0].Z = 0
	back := s.SendBackward([]string{"a", "b"})
	if back[0].Z != 0 || back[1].Z != 1 || back[2].Z != 3 {
		t.Fatalf("send backward mismatch: %d %d %d", back[0].Z, back[1].Z, back[2].Z)
	}
}

func TestGroupUngroupAndLock(t *testing.T) {
	s := arrangeFixture()
	if _, gid := s.Group([]string{"a"}); gid != "" {
		t.Fatalf("group needs two items")
	}
	g, gid := s.Group([]string{"a", "c"})
	if gid == "" || g[0].GroupID != gid || g[2].GroupID != gid || g[1].GroupID != "" {
		t.Fatalf("group mismatch: %q %q %q", g[0].GroupID, g[1].GroupID, g[2].GroupID)
	}
	members := g.GroupMembers([]string{"c"})
	if !reflect.DeepEqual(members, []string{"c", "a"}) {
		t.Fatalf("group members mismatch: %v", members)
	}
	u := g.Ungroup([]string{"a", "c"})
	if u[0].GroupID != "" || u[2].GroupID != "" {
		t.Fatalf("ungroup should clear tags")
	}
	l := s.Lock([]string{"a", "b"}, true)
	if !l[0].Locked || !l[1].Locked || l[2].Locked {
		t.Fatalf("lock mismatch")
	}
	if ul := l.Lock([]string{"a"}, false); ul[0].Locked {
		t.Fatalf("unlock must always apply")
	}
}

func TestParseEdge(t *testing.T) {
	if e, err := ParseEdge("middle"); err != nil || e != AlignMiddle {
		t.Fatalf("parse middle: %v %v", e, err)
	}
	if _, err := ParseEdge("diagonal"); err == nil {
		t.Fatalf("unknown edge should fail")
	}
}
