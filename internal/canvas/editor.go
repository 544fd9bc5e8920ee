/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"menuboard/internal/domain"
	"menuboard/internal/geometry"
	applog "menuboard/internal/log"
	"menuboard/internal/undo"
)

// Persister stores a committed item collection.
type Persister interface {
	PersistItems(ctx context.Context, items []domain.Item) error
}

// PersistFunc adapts a function to Persister.
type PersistFunc func(ctx context.Context, items []domain.Item) error

func (f PersistFunc) PersistItems(ctx context.Context, items []domain.Item) error {
	return f(ctx, items)
}

// Options configures an Editor. Zero values are usable.
type Options struct {
	// Key identifies the board for undo history and logs.
	Key  string
	Snap geometry.SnapOptions
	// History holds undo/redo snapshots; nil disables undo.
	History *undo.Manager
	Persist Persister
	// OnChange receives the draft after every mutation, for live preview.
	OnChange func(Items)
	Now      func() time.Time
	Logger   *slog.Logger
}

// Editor is the draft/commit controller with selection, snapping and undo.
// It is not safe for concurrent use; callers serialize access per board.
type Editor struct {
	draft   *Draft
	sel     Selection
	snapper geometry.Snapper
	opts    Options
	l       *slog.Logger
}

// NewEditor starts in Viewing with items as the saved baseline.
func NewEditor(items Items, opts Options) *Editor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Snap == (geometry.SnapOptions{}) {
		opts.Snap = geometry.DefaultSnapOptions()
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("canvas")
	}
	return &Editor{
		draft:   NewDraft(items),
		snapper: geometry.Snapper{Opts: opts.Snap},
		opts:    opts,
		l:       l.With(slog.String("board", opts.Key)),
	}
}

func (e *Editor) Mode() Mode  { return e.draft.Mode() }
func (e *Editor) Dirty() bool { return e.draft.Dirty() }

// Items is what the board currently shows.
func (e *Editor) Items() Items { return e.draft.Current() }

// Baseline is the last saved collection.
func (e *Editor) Baseline() Items { return e.draft.Baseline() }

// Selected returns the selected ids in click order.
func (e *Editor) Selected() []string { return e.sel.IDs() }

// InGesture reports whether a drag or resize is active.
func (e *Editor) InGesture() bool { return e.sel.InGesture() }

// SnapOptions returns the current snap settings.
func (e *Editor) SnapOptions() geometry.SnapOptions { return e.snapper.Opts }

// SetSnapOptions updates the snap settings; the grid size is clamped.
func (e *Editor) SetSnapOptions(o geometry.SnapOptions) {
	o.GridSize = geometry.ClampGridSize(o.GridSize)
	if o.Threshold <= 0 {
		o.Threshold = geometry.DefaultThreshold
	}
	e.snapper.Opts = o
}

// BeginEdit opens an editing session on a copy of the baseline.
func (e *Editor) BeginEdit() error {
	if err := e.draft.Begin(); err != nil {
		return err
	}
	e.sel.Reset()
	e.clearHistory()
	e.l.Debug("edit session started", slog.Int("items", len(e.draft.draft)))
	return nil
}

// SetPreview hides or shows the editing tools without ending the session.
func (e *Editor) SetPreview(on bool) error {
	if err := e.draft.SetPreview(on); err != nil {
		return err
	}
	if on {
		e.sel.EndGesture()
	}
	return nil
}

// Save persists the draft and makes it the baseline.
func (e *Editor) Save(ctx context.Context) error {
	err := e.draft.Save(func(items Items) error {
		if e.opts.Persist == nil {
			return nil
		}
		return e.opts.Persist.PersistItems(ctx, items)
	})
	if err != nil {
		e.l.Error("save failed", slog.Any("err", err))
		return fmt.Errorf("save board: %w", err)
	}
	e.leave()
	e.l.Info("board saved", slog.Int("items", len(e.draft.baseline)))
	return nil
}

// Cancel discards every drafted change, including added and removed items.
func (e *Editor) Cancel() error {
	if err := e.draft.Cancel(); err != nil {
		return err
	}
	e.leave()
	e.l.Debug("edit session cancelled")
	return nil
}

func (e *Editor) leave() {
	e.sel.Reset()
	e.clearHistory()
}

// Incoming takes an external update to the stored layout. It is ignored while
// the draft has unsaved changes.
func (e *Editor) Incoming(items []domain.Item) bool {
	if !e.draft.Incoming(Items(items)) {
		e.l.Debug("incoming update ignored, draft is dirty")
		return false
	}
	e.sel.Clear()
	return true
}

// mutate runs fn on the draft, records an undo snapshot and notifies the
// change listener. fn returning an error, or a result equal to the draft,
// leaves everything unchanged and the draft keeps its dirty state.
func (e *Editor) mutate(op string, fn func(Items) (Items, error)) error {
	if e.draft.Mode() != Editing {
		return fmt.Errorf("%s: %w: %s", op, ErrWrongMode, e.draft.Mode())
	}
	before := e.draft.draft
	next, err := fn(before.Clone())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sameItems(before, next) {
		return nil
	}
	e.pushHistory(before)
	if err := e.draft.Apply(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e.sel.Prune(next)
	e.notify()
	return nil
}

func sameItems(a, b Items) bool {
	return len(a) == len(b) && (len(a) == 0 || reflect.DeepEqual(a, b))
}

func (e *Editor) notify() {
	if e.opts.OnChange != nil {
		e.opts.OnChange(e.draft.Current())
	}
}

func (e *Editor) requireEditing(op string) error {
	if e.draft.Mode() != Editing {
		return fmt.Errorf("%s: %w: %s", op, ErrWrongMode, e.draft.Mode())
	}
	return nil
}

// AddText appends a text item and selects it.
func (e *Editor) AddText(role domain.Role) (string, error) {
	var id string
	err := e.mutate("add text", func(s Items) (Items, error) {
		var next Items
		next, id = s.AddText(role)
		return next, nil
	})
	if err != nil {
		return "", err
	}
	e.sel.Select(id)
	return id, nil
}

// AddImage appends an image item and selects it.
func (e *Editor) AddImage(src string) (string, error) {
	if src == "" {
		return "", fmt.Errorf("add image: %w: empty source", domain.ErrValidation)
	}
	var id string
	err := e.mutate("add image", func(s Items) (Items, error) {
		var next Items
		next, id = s.AddImage(src)
		return next, nil
	})
	if err != nil {
		return "", err
	}
	e.sel.Select(id)
	return id, nil
}

// Update patches one item.
func (e *Editor) Update(id string, p domain.Patch) error {
	return e.mutate("update", func(s Items) (Items, error) {
		if _, ok := s.Find(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return s.Update(id, p)
	})
}

// UpdateSelected patches every selected item.
func (e *Editor) UpdateSelected(p domain.Patch) error {
	ids := e.sel.IDs()
	if len(ids) == 0 {
		return nil
	}
	return e.mutate("update selection", func(s Items) (Items, error) { return s.UpdateMany(ids, p) })
}

// Remove deletes the named items; locked ones stay.
func (e *Editor) Remove(ids []string) error {
	return e.mutate("remove", func(s Items) (Items, error) { return s.Remove(ids), nil })
}

// RemoveSelected deletes the selection.
func (e *Editor) RemoveSelected() error {
	ids := e.sel.IDs()
	if len(ids) == 0 {
		return nil
	}
	return e.Remove(ids)
}

// MoveSelected nudges the selection, skipping locked items.
func (e *Editor) MoveSelected(dx, dy int) error {
	ids := e.sel.IDs()
	if len(ids) == 0 {
		return nil
	}
	return e.mutate("move", func(s Items) (Items, error) { return s.Move(ids, dx, dy), nil })
}

// DuplicateSelected copies the selection; the copies become the selection.
func (e *Editor) DuplicateSelected() ([]string, error) {
	ids := e.sel.IDs()
	if len(ids) == 0 {
		return nil, nil
	}
	var newIDs []string
	err := e.mutate("duplicate", func(s Items) (Items, error) {
		var next Items
		next, newIDs = s.Duplicate(ids)
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	e.sel.Set(newIDs)
	return newIDs, nil
}

// Align lines up the selection. Fewer than two selected is a no-op that does
// not mark the draft dirty.
func (e *Editor) Align(edge Edge) error {
	if err := e.requireEditing("align"); err != nil {
		return err
	}
	ids := e.sel.IDs()
	if len(ids) < 2 {
		return nil
	}
	return e.mutate("align", func(s Items) (Items, error) { return s.Align(ids, edge), nil })
}

// BringForward stacks the selection on top.
func (e *Editor) BringForward() error {
	ids := e.sel.IDs()
	if len(ids) == 0 {
		return e.requireEditing("bring forward")
	}
	return e.mutate("bring forward", func(s Items) (Items, error) { return s.BringForward(ids), nil })
}

// SendBackward lowers the selection by one step.
func (e *Editor) SendBackward() error {
	ids := e.sel.IDs()
	if len(ids) == 0 {
		return e.requireEditing("send backward")
	}
	return e.mutate("send backward", func(s Items) (Items, error) { return s.SendBackward(ids), nil })
}

// Group tags the selection with a fresh group id; needs two or more items.
func (e *Editor) Group() (string, error) {
	if err := e.requireEditing("group"); err != nil {
		return "", err
	}
	ids := e.sel.IDs()
	if len(ids) < 2 {
		return "", nil
	}
	var gid string
	err := e.mutate("group", func(s Items) (Items, error) {
		var next Items
		next, gid = s.Group(ids)
		return next, nil
	})
	return gid, err
}

// Ungroup clears the group tag of the selection.
func (e *Editor) Ungroup() error {
	ids := e.sel.IDs()
	if len(ids) == 0 {
		return e.requireEditing("ungroup")
	}
	return e.mutate("ungroup", func(s Items) (Items, error) { return s.Ungroup(ids), nil })
}

// SetLocked locks or unlocks the selection.
func (e *Editor) SetLocked(locked bool) error {
	ids := e.sel.IDs()
	if len(ids) == 0 {
		return e.requireEditing("lock")
	}
	return e.mutate("lock", func(s Items) (Items, error) { return s.Lock(ids, locked), nil })
}

// LoadItems replaces the draft with a copy of items carrying fresh ids, as
// when a preset is applied. The selection is cleared.
func (e *Editor) LoadItems(items []domain.Item) error {
	err := e.mutate("load items", func(Items) (Items, error) { return Replace(items), nil })
	if err != nil {
		return err
	}
	e.sel.Clear()
	return nil
}

// Select handles a click on an item; additive is the modifier key.
func (e *Editor) Select(id string, additive bool) error {
	if err := e.requireEditing("select"); err != nil {
		return err
	}
	if _, ok := e.draft.draft.Find(id); !ok {
		return fmt.Errorf("select: %w: %s", ErrNotFound, id)
	}
	e.sel.Press(id, additive)
	return nil
}

// SelectGroup selects id and every item sharing its group tag.
func (e *Editor) SelectGroup(id string) error {
	if err := e.Select(id, false); err != nil {
		return err
	}
	e.sel.Set(e.draft.draft.GroupMembers([]string{id}))
	return nil
}

// SetSelection replaces the selection; unknown ids are dropped.
func (e *Editor) SetSelection(ids []string) error {
	if err := e.requireEditing("select"); err != nil {
		return err
	}
	e.sel.Set(ids)
	e.sel.Prune(e.draft.draft)
	return nil
}

// ClearSelection empties the selection.
func (e *Editor) ClearSelection() { e.sel.Clear() }

// BackgroundClick clears the selection unless a gesture is active.
func (e *Editor) BackgroundClick() bool { return e.sel.BackgroundClick() }

// Undo reverts the last drafted mutation.
func (e *Editor) Undo() (bool, error) { return e.step("undo") }

// Redo re-applies the last undone mutation.
func (e *Editor) Redo() (bool, error) { return e.step("redo") }

func (e *Editor) step(op string) (bool, error) {
	if err := e.requireEditing(op); err != nil {
		return false, err
	}
	if e.opts.History == nil {
		return false, nil
	}
	cur, err := json.Marshal(e.draft.draft)
	if err != nil {
		return false, fmt.Errorf("%s: encode draft: %w", op, err)
	}
	var snap undo.Snapshot
	var ok bool
	if op == "undo" {
		snap, ok = e.opts.History.Undo(e.opts.Key, cur)
	} else {
		snap, ok = e.opts.History.Redo(e.opts.Key, cur)
	}
	if !ok {
		return false, nil
	}
	var items Items
	if err := json.Unmarshal(snap.Blob, &items); err != nil {
		return false, fmt.Errorf("%s: decode snapshot: %w", op, err)
	}
	if err := e.draft.Apply(items); err != nil {
		return false, err
	}
	e.sel.Prune(items)
	e.notify()
	return true, nil
}

func (e *Editor) pushHistory(before Items) {
	if e.opts.History == nil {
		return
	}
	b, err := json.Marshal(before)
	if err != nil {
		e.l.Warn("undo snapshot skipped", slog.Any("err", err))
		return
	}
	e.opts.History.PushSnapshot(undo.Snapshot{Key: e.opts.Key, Blob: b, TS: e.opts.Now()})
}

func (e *Editor) clearHistory() {
	if e.opts.History != nil {
		e.opts.History.Clear(e.opts.Key)
	}
}
