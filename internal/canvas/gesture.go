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

// Drag and resize are reported by the front end only when they start and
// stop. Snapping happens on stop so intermediate frames never jitter.

// BeginGesture marks a drag or resize on id as active. While active, a
// background click does not clear the selection.
func (e *Editor) BeginGesture(id string) error {
	if err := e.requireEditing("gesture"); err != nil {
		return err
	}
	it, ok := e.draft.draft.Find(id)
	if !ok {
		return fmt.Errorf("gesture: %w: %s", ErrNotFound, id)
	}
	if it.Locked {
		return nil
	}
	if !e.sel.Has(id) {
		e.sel.Select(id)
	}
	e.sel.BeginGesture()
	return nil
}

// EndGesture clears the gesture flag without changing anything.
func (e *Editor) EndGesture() { e.sel.EndGesture() }

// DragStop finishes a drag of id at (x, y). The item's size before the
// gesture is used for snapping.
func (e *Editor) DragStop(id string, x, y float64) (geometry.SnapResult, error) {
	defer e.sel.EndGesture()
	it, err := e.gestureTarget("drag", id)
	if err != nil || it.Locked {
		return geometry.SnapResult{X: it.X, Y: it.Y}, err
	}
	res := e.snapper.Snap(e.draft.draft, id, x, y, float64(it.W), float64(it.H))
	err = e.Update(id, domain.Patch{X: domain.Ptr(res.X), Y: domain.Ptr(res.Y)})
	return res, err
}

// ResizeStop finishes a resize of id to the box (x, y, w, h). The final size
// is used for snapping and rounded to whole pixels.
func (e *Editor) ResizeStop(id string, x, y, w, h float64) (geometry.SnapResult, error) {
	defer e.sel.EndGesture()
	it, err := e.gestureTarget("resize", id)
	if err != nil || it.Locked {
		return geometry.SnapResult{X: it.X, Y: it.Y}, err
	}
	nw, nh := max(1, geometry.Round(w)), max(1, geometry.Round(h))
	res := e.snapper.Snap(e.draft.draft, id, x, y, float64(nw), float64(nh))
	err = e.Update(id, domain.Patch{
		X: domain.Ptr(res.X), Y: domain.Ptr(res.Y),
		W: domain.Ptr(nw), H: domain.Ptr(nh),
	})
	return res, err
}

func (e *Editor) gestureTarget(op, id string) (domain.Item, error) {
	if err := e.requireEditing(op); err != nil {
		return domain.Item{}, err
	}
	it, ok := e.draft.draft.Find(id)
	if !ok {
		return domain.Item{}, fmt.Errorf("%s: %w: %s", op, ErrNotFound, id)
	}
	return it, nil
}
