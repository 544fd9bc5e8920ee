/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package reveal

import (
	"sync"
	"time"
)

const (
	SecretTaps    = 5
	TapWindow     = 2500 * time.Millisecond
	LongPressTime = 3000 * time.Millisecond
	AutoHideAfter = 5000 * time.Millisecond
)

// Revealer tracks whether the edit button is shown.
type Revealer struct {
	mu       sync.Mutex
	taps     int
	shown    bool
	editing  bool
	onChange func(shown bool)

	tapWindow *Countdown
	longPress *Countdown
	autoHide  *Countdown
}

// NewRevealer returns a hidden revealer. onChange, if set, is called after
// every visibility change, outside the revealer's lock.
func NewRevealer(clock Clock, onChange func(shown bool)) *Revealer {
	return &Revealer{
		onChange:  onChange,
		tapWindow: NewCountdown(clock),
		longPress: NewCountdown(clock),
		autoHide:  NewCountdown(clock),
	}
}

// Shown reports whether the edit button is visible.
func (r *Revealer) Shown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shown
}

// Tap counts a tap on the secret corner. SecretTaps taps within TapWindow of
// the first one reveal the button. Taps are ignored while editing.
func (r *Revealer) Tap() {
	r.mu.Lock()
	if r.editing {
		r.mu.Unlock()
		return
	}
	if r.taps == 0 {
		r.tapWindow.Start(TapWindow, r.resetTaps)
	}
	r.taps++
	if r.taps < SecretTaps {
		r.mu.Unlock()
		return
	}
	r.taps = 0
	r.tapWindow.Stop()
	changed := r.revealLocked()
	r.mu.Unlock()
	r.notify(changed, true)
}

func (r *Revealer) resetTaps() {
	r.mu.Lock()
	r.taps = 0
	r.mu.Unlock()
}

// PressStart begins a long press; holding for LongPressTime reveals the button.
func (r *Revealer) PressStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.editing {
		return
	}
	r.longPress.Start(LongPressTime, func() {
		r.mu.Lock()
		changed := r.revealLocked()
		r.mu.Unlock()
		r.notify(changed, true)
	})
}

// PressEnd cancels a long press in progress.
func (r *Revealer) PressEnd() {
	r.longPress.Stop()
}

// SetEditing tracks the board's edit mode. Entering editing keeps the button
// shown; leaving it hides the button immediately.
func (r *Revealer) SetEditing(editing bool) {
	r.mu.Lock()
	r.editing = editing
	var changed bool
	if editing {
		r.autoHide.Stop()
		changed = !r.shown
		r.shown = true
	} else {
		changed = r.hideLocked()
	}
	shown := r.shown
	r.mu.Unlock()
	r.notify(changed, shown)
}

// Hide hides the button and cancels pending reveal timers.
func (r *Revealer) Hide() {
	r.mu.Lock()
	changed := r.hideLocked()
	r.mu.Unlock()
	r.notify(changed, false)
}

// Close cancels every pending timer.
func (r *Revealer) Close() {
	r.tapWindow.Stop()
	r.longPress.Stop()
	r.autoHide.Stop()
}

func (r *Revealer) revealLocked() bool {
	changed := !r.shown
	r.shown = true
	if r.editing {
		return changed
	}
	r.autoHide.Start(AutoHideAfter, func() {
		r.mu.Lock()
		if r.editing {
			r.mu.Unlock()
			return
		}
		changed := r.shown
		r.shown = false
		r.mu.Unlock()
		r.notify(changed, false)
	})
	return changed
}

func (r *Revealer) hideLocked() bool {
	r.autoHide.Stop()
	r.longPress.Stop()
	changed := r.shown
	r.shown = false
	return changed
}

func (r *Revealer) notify(changed, shown bool) {
	if changed && r.onChange != nil {
		r.onChange(shown)
	}
}
