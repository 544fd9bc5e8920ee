/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	"menuboard/internal/reveal"
	"menuboard/internal/storage"
	"menuboard/internal/undo"
)

// manualClock runs scheduled callbacks only when Advance passes their deadline.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) reveal.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	keep := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	c.timers = keep
	c.mu.Unlock()
	for _, t := range due {
		t.stopped = true
		t.f()
	}
}

func newTestService(t *testing.T, store storage.Store) *Service {
	t.Helper()
	db, err := storage.OpenDB(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return New(store, db,
		WithHistory(undo.NewManager(undo.Config{MinInterval: -1})),
		WithClock(func() time.Time { clock = clock.Add(time.Second); return clock }),
	)
}

func TestNewBoardHasDefaultLayout(t *testing.T) {
	svc := newTestService(t, storage.NewMemory())
	b := svc.Open(context.Background(), "alice")
	l := b.Layout()
	if l.Mode != domain.ModeNone || l.TemplateID != nil || len(l.Items) != 0 {
		t.Fatalf("unexpected default layout: %+v", l)
	}
	if svc.Open(context.Background(), "alice") != b {
		t.Fatalf("board should be cached per user")
	}
}

func TestPickTemplatePersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	b := newTestService(t, store).Open(ctx, "alice")
	if err := b.PickTemplate(ctx, "t2"); err != nil {
		t.Fatalf("pick: %v", err)
	}
	err := b.PickTemplate(ctx, "T9")
	if !errors.Is(err, domain.ErrValidation) || !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected unknown template validation error, got %v", err)
	}

	reopened := newTestService(t, store).Open(ctx, "alice")
	l := reopened.Layout()
	if l.Mode != domain.ModeTemplate || l.TemplateID == nil || *l.TemplateID != "T2" {
		t.Fatalf("template not persisted: %+v", l)
	}
	if other := reopened.svc.Open(ctx, "bob").Layout(); other.Mode != domain.ModeNone {
		t.Fatalf("layouts must be scoped per user, bob got %+v", other)
	}
}

func TestCustomSaveStoresLayoutAndRevision(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := newTestService(t, store)
	b := svc.Open(ctx, "alice")
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("start custom: %v", err)
	}
	if err := b.PickTemplate(ctx, "T1"); !errors.Is(err, canvas.ErrWrongMode) {
		t.Fatalf("template pick during a session should fail with wrong mode, got %v", err)
	}
	var id string
	err := b.Edit(func(e *canvas.Editor) error {
		var err error
		if id, err = e.AddText(domain.RolePrice); err != nil {
			return err
		}
		return e.Save(ctx)
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	got, err := storage.LoadLayout(ctx, store, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Mode != domain.ModeCustom || len(got.Items) != 1 || got.Items[0].ID != id {
		t.Fatalf("unexpected stored layout: %+v", got)
	}
	revs, err := b.Revisions(ctx, 0)
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	if len(revs) != 1 || len(revs[0].Layout.Items) != 1 {
		t.Fatalf("expected one revision with one item, got %+v", revs)
	}

	// a second session restores the empty board from before the save
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := b.Edit(func(e *canvas.Editor) error { return e.Remove([]string{id}) }); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := b.Edit(func(e *canvas.Editor) error { return e.Save(ctx) }); err != nil {
		t.Fatalf("save: %v", err)
	}
	revs, _ = b.Revisions(ctx, 0)
	if len(revs) != 2 || len(revs[0].Layout.Items) != 0 {
		t.Fatalf("newest revision should be the empty board: %+v", revs)
	}
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := b.RestoreRevision(ctx, revs[1].ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n := len(b.Layout().Items); n != 1 {
		t.Fatalf("restored draft should hold one item, got %d", n)
	}
}

func TestAddImageBlobNeedsEditingAndResolves(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory())
	b := svc.Open(ctx, "alice")
	if _, err := b.AddImageBlob(ctx, []byte("png")); !errors.Is(err, canvas.ErrWrongMode) {
		t.Fatalf("expected wrong mode outside editing, got %v", err)
	}
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := b.AddImageBlob(ctx, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty upload, got %v", err)
	}
	id, err := b.AddImageBlob(ctx, []byte("png-bytes"))
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	var src string
	for _, it := range b.Layout().Items {
		if it.ID == id {
			src = it.Src
		}
	}
	if !strings.HasPrefix(src, BlobPrefix+"MENU_IMG_") || !strings.HasSuffix(src, ":alice") {
		t.Fatalf("unexpected image source %q", src)
	}
	data, err := b.Image(ctx, src)
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("image lookup: %q %v", data, err)
	}
	if _, err := svc.Open(ctx, "bob").Image(ctx, src); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("another user must not read the blob, got %v", err)
	}
	if _, err := b.Image(ctx, "data:image/png;base64,AA=="); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("data URLs are not blob references, got %v", err)
	}
}

func TestImageRejectsKeysScopedToLongerUsernames(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := newTestService(t, store)
	foreign := storage.UserScopedKey("mallory:alice", "MENU_IMG_abc")
	if err := store.SaveBlob(ctx, foreign, []byte("secret")); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	if _, err := svc.Open(ctx, "alice").Image(ctx, BlobPrefix+foreign); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("alice must not read %q, got %v", foreign, err)
	}
	if data, err := svc.Open(ctx, "mallory:alice").Image(ctx, BlobPrefix+foreign); err != nil || string(data) != "secret" {
		t.Fatalf("owner lookup: %q %v", data, err)
	}
	own := storage.UserScopedKey("alice", "MENU_BG")
	if err := store.SaveBlob(ctx, own, []byte("bg")); err != nil {
		t.Fatalf("seed background: %v", err)
	}
	if _, err := svc.Open(ctx, "alice").Image(ctx, BlobPrefix+own); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("only uploaded photos resolve as images, got %v", err)
	}
}

func TestEditButtonFollowsGesturesAndEditing(t *testing.T) {
	ctx := context.Background()
	clk := &manualClock{now: time.Unix(0, 0)}
	db, err := storage.OpenDB(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	b := New(storage.NewMemory(), db, WithRevealClock(clk)).Open(ctx, "alice")

	for i := 0; i < reveal.SecretTaps-1; i++ {
		b.Tap()
	}
	if b.EditButtonShown() {
		t.Fatalf("button shown before the fifth tap")
	}
	b.Tap()
	if !b.EditButtonShown() {
		t.Fatalf("five taps should reveal the button")
	}
	clk.Advance(reveal.AutoHideAfter)
	if b.EditButtonShown() {
		t.Fatalf("button should auto-hide while viewing")
	}

	b.PressStart()
	clk.Advance(reveal.LongPressTime)
	if !b.EditButtonShown() {
		t.Fatalf("long press should reveal the button")
	}
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("start custom: %v", err)
	}
	clk.Advance(2 * reveal.AutoHideAfter)
	if !b.EditButtonShown() {
		t.Fatalf("button must stay while editing")
	}
	if err := b.Edit(func(e *canvas.Editor) error { return e.Cancel() }); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if b.EditButtonShown() {
		t.Fatalf("leaving editing hides the button at once")
	}
}

func TestBackgroundAndIntroVideo(t *testing.T) {
	ctx := context.Background()
	b := newTestService(t, storage.NewMemory()).Open(ctx, "alice")
	if _, err := b.Background(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found before upload, got %v", err)
	}
	if err := b.SetBackground(ctx, []byte("bg")); err != nil {
		t.Fatalf("set bg: %v", err)
	}
	if err := b.SetIntroVideo(ctx, []byte("mp4")); err != nil {
		t.Fatalf("set video: %v", err)
	}
	if err := b.SetIntroVideo(ctx, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	bg, _ := b.Background(ctx)
	vid, _ := b.IntroVideo(ctx)
	if string(bg) != "bg" || string(vid) != "mp4" {
		t.Fatalf("media mismatch: %q %q", bg, vid)
	}
}

func TestReloadIgnoredWhileDirty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	b := newTestService(t, store).Open(ctx, "alice")
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	external := domain.Layout{Mode: domain.ModeCustom, Items: []domain.Item{domain.NewText(domain.RoleName)}}
	if err := storage.SaveLayout(ctx, store, "alice", external); err != nil {
		t.Fatalf("save external: %v", err)
	}
	taken, err := b.Reload(ctx)
	if err != nil || !taken {
		t.Fatalf("clean draft should take the update: %v %v", taken, err)
	}
	if len(b.Layout().Items) != 1 {
		t.Fatalf("draft should show the external item")
	}
	if err := b.Edit(func(e *canvas.Editor) error { _, err := e.AddText(domain.RolePrice); return err }); err != nil {
		t.Fatalf("add: %v", err)
	}
	taken, err = b.Reload(ctx)
	if err != nil || taken {
		t.Fatalf("dirty draft must ignore the update: %v %v", taken, err)
	}
	if len(b.Layout().Items) != 2 {
		t.Fatalf("draft changed by ignored update")
	}
}

func TestPagesFollowContent(t *testing.T) {
	ctx := context.Background()
	b := newTestService(t, storage.NewMemory()).Open(ctx, "alice")
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := b.Edit(func(e *canvas.Editor) error {
		id, err := e.AddText(domain.RoleName)
		if err != nil {
			return err
		}
		return e.Update(id, domain.Patch{Y: domain.Ptr(2800), H: domain.Ptr(200)})
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	m := b.Pages()
	if m.ContentHeight != 3000 || m.TotalPages != 2 || m.ScrollHeight != 4440 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	page, offset := b.Goto(5)
	if page != 2 || offset != 2240 {
		t.Fatalf("goto clamp: page=%d offset=%d", page, offset)
	}
	if err := b.Edit(func(e *canvas.Editor) error { return e.Cancel() }); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if p := b.CurrentPage(); p != 1 {
		t.Fatalf("page should clamp back to 1 after content shrank, got %d", p)
	}
}

func TestAutosaveWritesDirtyDraftOnly(t *testing.T) {
	svc := newTestService(t, storage.NewMemory())
	ctx := context.Background()
	b := svc.Open(ctx, "alice")
	if ok, err := b.Autosave(ctx); ok || err != nil {
		t.Fatalf("clean board autosave = %v, %v", ok, err)
	}
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("start custom: %v", err)
	}
	if err := b.Edit(func(e *canvas.Editor) error {
		_, err := e.AddText(domain.RolePrice)
		return err
	}); err != nil {
		t.Fatalf("add text: %v", err)
	}
	if ok, err := b.Autosave(ctx); !ok || err != nil {
		t.Fatalf("dirty board autosave = %v, %v", ok, err)
	}
	got, ok := b.Autosaved(ctx)
	if !ok || len(got.Items) != 1 || got.Mode != domain.ModeCustom {
		t.Fatalf("autosaved = %+v, %v", got, ok)
	}
	if l := svc.Open(ctx, "alice").Layout(); len(l.Items) != 1 {
		t.Fatalf("draft should stay open, got %d items", len(l.Items))
	}

	busy := make(chan error, 1)
	_ = b.Edit(func(*canvas.Editor) error {
		_, err := b.Autosave(ctx)
		busy <- err
		return nil
	})
	if err := <-busy; !errors.Is(err, ErrBoardBusy) {
		t.Fatalf("autosave under lock = %v, want ErrBoardBusy", err)
	}
}
