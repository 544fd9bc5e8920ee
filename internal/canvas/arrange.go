/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"fmt"

	"menuboard/internal/domain"
	"menuboard/internal/geometry"
)

// Edge names an alignment target.
type Edge string

const (
	AlignLeft   Edge = "left"
	AlignCenter Edge = "center"
	AlignRight  Edge = "right"
	AlignTop    Edge = "top"
	AlignMiddle Edge = "middle"
	AlignBottom Edge = "bottom"
)

// ParseEdge validates an alignment name.
func ParseEdge(s string) (Edge, error) {
	switch e := Edge(s); e {
	case AlignLeft, AlignCenter, AlignRight, AlignTop, AlignMiddle, AlignBottom:
		return e, nil
	}
	return "", fmt.Errorf("%w: alignment %q", domain.ErrValidation, s)
}

// Align lines up the items named by ids. Fewer than two ids is a no-op.
// Bounds include locked items, but locked items are not moved.
func (s Items) Align(ids []string, edge Edge) Items {
	sel := s.Pick(ids)
	if len(sel) < 2 {
		return s.Clone()
	}
	rects := make([]geometry.Rect, len(sel))
	for i, it := range sel {
		rects[i] = geometry.RectOf(it)
	}
	b, _ := geometry.Bounds(rects)

	set := idSet(ids)
	out := s.Clone()
	for i := range out {
		it := &out[i]
		if _, ok := set[it.ID]; !ok || it.Locked {
			continue
		}
		switch edge {
		case AlignLeft:
			it.X = int(b.X)
		case AlignRight:
			it.X = int(b.Right()) - it.W
		case AlignCenter:
			it.X = geometry.Round(b.CenterX() - float64(it.W)/2)
		case AlignTop:
			it.Y = int(b.Y)
		case AlignBottom:
			it.Y = int(b.Bottom()) - it.H
		case AlignMiddle:
			it.Y = geometry.Round(b.CenterY() - float64(it.H)/2)
		}
	}
	return out
}

// BringForward stacks the items named by ids above everything else, keeping
// their relative collection order (max+1, max+2, ...). Locked items stay.
func (s Items) BringForward(ids []string) Items {
	set := idSet(ids)
	out := s.Clone()
	z := s.MaxZ()
	for i := range out {
		if _, ok := set[out[i].ID]; ok && !out[i].Locked {
			z++
			out[i].Z = z
		}
	}
	return out
}

// SendBackward lowers each named item's z by one, floored at 0. Other items
// are not renumbered.
func (s Items) SendBackward(ids []string) Items {
	set := idSet(ids)
	out := s.Clone()
	for i := range out {
		if _, ok := set[out[i].ID]; ok && !out[i].Locked && out[i].Z > 0 {
			out[i].Z--
		}
	}
	return out
}

// Group tags the named items with a fresh shared group id. Fewer than two
// ids is a no-op. Group tags are labels, so locked items are tagged too.
func (s Items) Group(ids []string) (Items, string) {
	if len(s.Pick(ids)) < 2 {
		return s.Clone(), ""
	}
	gid := NewGroupID()
	return s.setGroup(ids, gid), gid
}

// Ungroup clears the group tag of the named items.
func (s Items) Ungroup(ids []string) Items { return s.setGroup(ids, "") }

func (s Items) setGroup(ids []string, gid string) Items {
	set := idSet(ids)
	out := s.Clone()
	for i := range out {
		if _, ok := set[out[i].ID]; ok {
			out[i].GroupID = gid
		}
	}
	return out
}

// Lock sets or clears the lock flag of the named items. Always allowed.
func (s Items) Lock(ids []string, locked bool) Items {
	out, _ := s.UpdateMany(ids, domain.LockPatch(locked))
	return out
}

// GroupMembers expands ids with every item sharing a group tag with them.
func (s Items) GroupMembers(ids []string) []string {
	set := idSet(ids)
	groups := map[string]struct{}{}
	for _, it := range s {
		if _, ok := set[it.ID]; ok && it.GroupID != "" {
			groups[it.GroupID] = struct{}{}
		}
	}
	out := make([]string, 0, len(ids))
	out = append(out, ids...)
	for _, it := range s {
		if _, inGroup := groups[it.GroupID]; inGroup && it.GroupID != "" {
			if _, already := set[it.ID]; !already {
				out = append(out, it.ID)
				set[it.ID] = struct{}{}
			}
		}
	}
	return out
}
