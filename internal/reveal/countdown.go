/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package reveal implements the hidden edit button of the public board:
// secret taps or a long press reveal it, and it hides itself again after a
// while unless the board is being edited. Timers are single-shot countdowns
// on an injectable Clock.
package reveal

import (
	"sync"
	"time"
)

// Timer is a pending single-shot callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real clock runs them on their own goroutine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Countdown holds at most one pending timer. Starting a new countdown cancels
// the previous one, and a callback of a cancelled countdown never runs even if
// its timer already fired.
type Countdown struct {
	mu    sync.Mutex
	clock Clock
	timer Timer
	gen   uint64
}

// NewCountdown returns an idle countdown on clock.
func NewCountdown(clock Clock) *Countdown {
	if clock == nil {
		clock = RealClock()
	}
	return &Countdown{clock: clock}
}

// Start schedules f after d, cancelling any pending callback.
func (c *Countdown) Start(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		if c.gen != gen || c.timer == nil {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.mu.Unlock()
		f()
	})
}

// Stop cancels the pending callback. It reports whether one was pending.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return false
	}
	c.timer.Stop()
	c.timer = nil
	c.gen++
	return true
}

// Pending reports whether a callback is scheduled.
func (c *Countdown) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}
