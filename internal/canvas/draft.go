/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"errors"
	"fmt"
)

// Mode is what the board UI currently shows.
type Mode int

const (
	// Viewing shows the last saved board without tools.
	Viewing Mode = iota
	// Editing shows the draft with tools and accepts mutations.
	Editing
	// Previewing shows the draft without tools; mutations are rejected.
	Previewing
)

func (m Mode) String() string {
	switch m {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Previewing:
		return "previewing"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MarshalText encodes the mode name for JSON responses.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// phase tracks the transient save/cancel steps.
type phase int

const (
	phaseIdle phase = iota
	phaseSaving
	phaseCancelling
)

var (
	// ErrWrongMode is returned when an operation is not allowed in the current mode.
	ErrWrongMode = errors.New("operation not allowed in current mode")
	// ErrBusy is returned when a save or cancel is already running.
	ErrBusy = errors.New("save or cancel in progress")
)

// Draft keeps the working copy apart from the last saved baseline.
type Draft struct {
	baseline Items
	draft    Items
	dirty    bool
	mode     Mode
	phase    phase
}

// NewDraft starts in Viewing with items as the baseline.
func NewDraft(items Items) *Draft {
	if items == nil {
		items = Items{}
	}
	return &Draft{baseline: items.Clone(), draft: items.Clone()}
}

func (d *Draft) Mode() Mode  { return d.mode }
func (d *Draft) Dirty() bool { return d.dirty }

// Active reports whether an editing session is open (Editing or Previewing).
func (d *Draft) Active() bool { return d.mode != Viewing }

// Current is what the board shows: the draft while a session is open, the
// baseline otherwise.
func (d *Draft) Current() Items {
	if d.Active() {
		return d.draft.Clone()
	}
	return d.baseline.Clone()
}

// Baseline returns the last saved collection.
func (d *Draft) Baseline() Items { return d.baseline.Clone() }

// Begin opens an editing session with a fresh copy of the baseline.
func (d *Draft) Begin() error {
	if d.phase != phaseIdle {
		return ErrBusy
	}
	if d.Active() {
		return fmt.Errorf("%w: already editing", ErrWrongMode)
	}
	d.draft = d.baseline.Clone()
	d.dirty = false
	d.mode = Editing
	return nil
}

// SetPreview switches between Editing and Previewing.
func (d *Draft) SetPreview(on bool) error {
	if !d.Active() {
		return fmt.Errorf("%w: not editing", ErrWrongMode)
	}
	if on {
		d.mode = Previewing
	} else {
		d.mode = Editing
	}
	return nil
}

// Apply replaces the draft with next and marks it dirty.
func (d *Draft) Apply(next Items) error {
	if d.mode != Editing || d.phase != phaseIdle {
		return fmt.Errorf("%w: %s", ErrWrongMode, d.mode)
	}
	d.draft = next.Clone()
	d.dirty = true
	return nil
}

// Save promotes the draft to baseline after persist succeeds. On error the
// session stays open with the draft and dirty flag untouched.
func (d *Draft) Save(persist func(Items) error) error {
	if d.phase != phaseIdle {
		return ErrBusy
	}
	if !d.Active() {
		return fmt.Errorf("%w: not editing", ErrWrongMode)
	}
	d.phase = phaseSaving
	defer func() { d.phase = phaseIdle }()
	next := d.draft.Clone()
	if persist != nil {
		if err := persist(next.Clone()); err != nil {
			return err
		}
	}
	d.baseline = next
	d.dirty = false
	d.mode = Viewing
	return nil
}

// Cancel discards the draft and returns to Viewing.
func (d *Draft) Cancel() error {
	if d.phase != phaseIdle {
		return ErrBusy
	}
	if !d.Active() {
		return fmt.Errorf("%w: not editing", ErrWrongMode)
	}
	d.phase = phaseCancelling
	defer func() { d.phase = phaseIdle }()
	d.draft = d.baseline.Clone()
	d.dirty = false
	d.mode = Viewing
	return nil
}

// Incoming applies an external update to both copies unless the draft has
// unsaved changes. It reports whether the update was taken.
func (d *Draft) Incoming(items Items) bool {
	if d.dirty {
		return false
	}
	if items == nil {
		items = Items{}
	}
	d.baseline = items.Clone()
	d.draft = items.Clone()
	return true
}
