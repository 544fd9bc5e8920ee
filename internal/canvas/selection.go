/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"slices"

	"github.com/samber/lo"
)

// Selection is an ordered set of item ids in click order. The first id is
// the primary selection, the one whose properties an inspector shows.
type Selection struct {
	ids []string
	// gesture is set while a drag or resize is in progress.
	gesture bool
}

// IDs returns a copy of the selected ids in click order.
func (s *Selection) IDs() []string { return slices.Clone(s.ids) }

// Len is the number of selected items.
func (s *Selection) Len() int { return len(s.ids) }

// Primary returns the first selected id.
func (s *Selection) Primary() (string, bool) {
	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[0], true
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool { return slices.Contains(s.ids, id) }

// Select replaces the selection with id.
func (s *Selection) Select(id string) { s.ids = []string{id} }

// Set replaces the selection with ids, dropping duplicates.
func (s *Selection) Set(ids []string) { s.ids = lo.Uniq(ids) }

// Toggle adds id at the end or removes it.
func (s *Selection) Toggle(id string) {
	if s.Has(id) {
		s.ids = lo.Without(s.ids, id)
		return
	}
	s.ids = append(s.ids, id)
}

// Press handles a click on an item; additive is the modifier key.
func (s *Selection) Press(id string, additive bool) {
	if additive {
		s.Toggle(id)
		return
	}
	s.Select(id)
}

// Clear empties the selection.
func (s *Selection) Clear() { s.ids = nil }

// BackgroundClick clears the selection unless a gesture is in progress.
// It reports whether the selection was cleared.
func (s *Selection) BackgroundClick() bool {
	if s.gesture {
		return false
	}
	s.Clear()
	return true
}

// Prune drops ids that no longer exist in items.
func (s *Selection) Prune(items Items) {
	set := idSet(items.IDs())
	s.ids = lo.Filter(s.ids, func(id string, _ int) bool {
		_, ok := set[id]
		return ok
	})
}

// BeginGesture marks a drag or resize as active.
func (s *Selection) BeginGesture() { s.gesture = true }

// EndGesture clears the gesture flag.
func (s *Selection) EndGesture() { s.gesture = false }

// InGesture reports whether a drag or resize is active.
func (s *Selection) InGesture() bool { return s.gesture }

// Reset clears both the selection and the gesture flag.
func (s *Selection) Reset() {
	s.ids = nil
	s.gesture = false
}
