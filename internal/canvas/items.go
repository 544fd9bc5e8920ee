/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas implements the free-layout menu board editor: the item
// store, selection, gesture snapping, arrangement operations and the
// draft/commit controller. It is storage-agnostic; persistence is injected.
package canvas

import (
	"errors"
	"fmt"
	"sort"

	"menuboard/internal/domain"

	"github.com/samber/lo"
)

// ErrNotFound is returned when an operation names an id that does not exist.
var ErrNotFound = errors.New("item not found")

// DuplicateOffset is the visual shift applied to duplicated items.
const DuplicateOffset = 20

// Items is an ordered element collection. Every operation returns a new
// collection of deep copies; the receiver is never modified.
type Items []domain.Item

// Clone deep-copies the collection.
func (s Items) Clone() Items { return Items(domain.CloneItems(s)) }

// Find returns a copy of the item with id.
func (s Items) Find(id string) (domain.Item, bool) {
	it, ok := lo.Find(s, func(it domain.Item) bool { return it.ID == id })
	if !ok {
		return domain.Item{}, false
	}
	return it.Clone(), true
}

// IDs returns the ids in collection order.
func (s Items) IDs() []string {
	return lo.Map(s, func(it domain.Item, _ int) string { return it.ID })
}

// Pick returns copies of the items named by ids, in collection order.
func (s Items) Pick(ids []string) Items {
	set := idSet(ids)
	return lo.FilterMap(s, func(it domain.Item, _ int) (domain.Item, bool) {
		_, ok := set[it.ID]
		return it.Clone(), ok
	})
}

// MaxZ is the highest z in the collection, 0 when empty.
func (s Items) MaxZ() int { return domain.MaxZ(s) }

// PaintOrder returns the items sorted by z; ties keep insertion order.
func (s Items) PaintOrder() Items {
	out := s.Clone()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}

// Add appends it on top of the stack (z = max+1) and returns its id.
// A missing id is generated.
func (s Items) Add(it domain.Item) (Items, string) {
	it = it.Clone()
	if it.ID == "" {
		it.ID = domain.NewID()
	}
	it.Z = s.MaxZ() + 1
	out := append(s.Clone(), it)
	return out, it.ID
}

// AddText appends a text item with the defaults for role.
func (s Items) AddText(role domain.Role) (Items, string) { return s.Add(domain.NewText(role)) }

// AddImage appends an image item showing src.
func (s Items) AddImage(src string) (Items, string) { return s.Add(domain.NewImage(src)) }

// Update patches a single item. See UpdateMany for the locking rule.
func (s Items) Update(id string, p domain.Patch) (Items, error) {
	return s.UpdateMany([]string{id}, p)
}

// UpdateMany patches every item named by ids. Locked targets are skipped
// unless the patch is exactly a lock toggle. An invalid patch changes nothing.
func (s Items) UpdateMany(ids []string, p domain.Patch) (Items, error) {
	if err := p.Validate(); err != nil {
		return s.Clone(), err
	}
	set := idSet(ids)
	toggle := p.IsLockToggle()
	return lo.Map(s, func(it domain.Item, _ int) domain.Item {
		if _, ok := set[it.ID]; !ok || (it.Locked && !toggle) {
			return it.Clone()
		}
		return p.Apply(it)
	}), nil
}

// Remove deletes the items named by ids. Locked items stay.
func (s Items) Remove(ids []string) Items {
	set := idSet(ids)
	return lo.FilterMap(s, func(it domain.Item, _ int) (domain.Item, bool) {
		_, hit := set[it.ID]
		return it.Clone(), !hit || it.Locked
	})
}

// Move shifts the unlocked items named by ids by (dx, dy).
func (s Items) Move(ids []string, dx, dy int) Items {
	set := idSet(ids)
	return lo.Map(s, func(it domain.Item, _ int) domain.Item {
		c := it.Clone()
		if _, ok := set[it.ID]; ok && !it.Locked {
			c.X += dx
			c.Y += dy
		}
		return c
	})
}

// Duplicate appends a copy of each item named by ids, in collection order.
// Copies are offset by DuplicateOffset, get fresh ids, are unlocked and are
// stacked above everything (max+1, max+2, ...). Locked sources are copied too.
func (s Items) Duplicate(ids []string) (Items, []string) {
	src := s.Pick(ids)
	out := s.Clone()
	z := s.MaxZ()
	newIDs := make([]string, 0, len(src))
	for _, it := range src {
		z++
		it.ID = domain.NewID()
		it.X += DuplicateOffset
		it.Y += DuplicateOffset
		it.Z = z
		it.Locked = false
		out = append(out, it)
		newIDs = append(newIDs, it.ID)
	}
	return out, newIDs
}

// Replace swaps in a whole new collection with fresh ids, keeping group tags
// consistent: items sharing a tag still share one, but not the old one.
func Replace(items []domain.Item) Items {
	groups := map[string]string{}
	return lo.Map(items, func(it domain.Item, _ int) domain.Item {
		c := it.Clone()
		c.ID = domain.NewID()
		if c.GroupID != "" {
			g, ok := groups[c.GroupID]
			if !ok {
				g = NewGroupID()
				groups[c.GroupID] = g
			}
			c.GroupID = g
		}
		return c
	})
}

// NewGroupID returns a fresh group tag.
func NewGroupID() string { return "g_" + domain.NewID() }

// Validate checks every item and id uniqueness.
func (s Items) Validate() error {
	if err := domain.ValidateItems(s); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	return nil
}

func idSet(ids []string) map[string]struct{} {
	return lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
}
