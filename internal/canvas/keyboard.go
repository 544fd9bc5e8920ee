/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

// Arrow key nudge distances in pixels.
const (
	NudgeStep      = 2
	NudgeStepShift = 10
)

// Key is a key press as reported by the browser (KeyboardEvent.key).
type Key struct {
	Name  string `json:"key"`
	Shift bool   `json:"shift,omitempty"`
}

// HandleKey applies editor shortcuts. Keys are ignored outside Editing.
// It reports whether the key was consumed.
func (e *Editor) HandleKey(k Key) (bool, error) {
	if e.Mode() != Editing {
		return false, nil
	}
	step := NudgeStep
	if k.Shift {
		step = NudgeStepShift
	}
	switch k.Name {
	case "Delete", "Backspace":
		if e.sel.Len() == 0 {
			return false, nil
		}
		return true, e.RemoveSelected()
	case "ArrowUp":
		return e.nudge(0, -step)
	case "ArrowDown":
		return e.nudge(0, step)
	case "ArrowLeft":
		return e.nudge(-step, 0)
	case "ArrowRight":
		return e.nudge(step, 0)
	case "Escape":
		return true, e.Cancel()
	}
	return false, nil
}

func (e *Editor) nudge(dx, dy int) (bool, error) {
	if e.sel.Len() == 0 {
		return false, nil
	}
	return true, e.MoveSelected(dx, dy)
}
