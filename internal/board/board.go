/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package board owns each user's menu board: the persisted layout, its media
// blobs and the editing session on top of it.
package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	"menuboard/internal/geometry"
	applog "menuboard/internal/log"
	"menuboard/internal/pagination"
	"menuboard/internal/reveal"
	"menuboard/internal/storage"
	"menuboard/internal/undo"
)

// BlobPrefix marks an image source that refers to a stored blob.
const BlobPrefix = "blob:"

// imageKeyPrefix names uploaded photos before user scoping.
const imageKeyPrefix = "MENU_IMG_"

// ErrUnknownTemplate is returned for a template id outside domain.Templates.
var ErrUnknownTemplate = errors.New("unknown template")

// Option configures a Service.
type Option func(*Service)

// WithHistory shares one undo manager across all boards.
func WithHistory(m *undo.Manager) Option { return func(s *Service) { s.history = m } }

// WithPages sets the page geometry used by Pages and Goto.
func WithPages(c pagination.Config) Option { return func(s *Service) { s.pages = c } }

// WithSnap sets the initial snap options of new editors.
func WithSnap(o geometry.SnapOptions) Option { return func(s *Service) { s.snap = o } }

// WithClock replaces time.Now for revision timestamps and undo coalescing.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithRevealClock schedules the edit button timers on c.
func WithRevealClock(c reveal.Clock) Option { return func(s *Service) { s.clock = c } }

// Service hands out one Board per user. Boards are cached for the life of the
// service so an editing session survives between requests.
type Service struct {
	store   storage.Store
	db      *sql.DB
	history *undo.Manager
	pages   pagination.Config
	snap    geometry.SnapOptions
	now     func() time.Time
	clock   reveal.Clock

	mu     sync.Mutex
	boards map[string]*Board
}

// New builds a Service. db may be nil, which disables revision history.
func New(store storage.Store, db *sql.DB, opts ...Option) *Service {
	s := &Service{
		store:  store,
		db:     db,
		pages:  pagination.Defaults(),
		snap:   geometry.DefaultSnapOptions(),
		now:    time.Now,
		clock:  reveal.RealClock(),
		boards: make(map[string]*Board),
	}
	for _, o := range opts {
		o(s)
	}
	if s.history == nil {
		s.history = undo.NewManager(undo.Config{MaxPerKey: 200})
	}
	return s
}

// Open returns the user's board, loading the stored layout on first use.
// An unreadable layout is logged and replaced by the default one.
func (s *Service) Open(ctx context.Context, user string) *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.boards[user]; ok {
		return b
	}
	l := applog.WithComponent("board")
	b := &Board{svc: s, user: user, key: "board:" + user, l: l}
	layout, err := storage.LoadLayout(ctx, s.store, user)
	if err != nil {
		l.WarnContext(b.Context(ctx), "stored layout unusable, using default", slog.Any("err", err))
	}
	b.layout = layout
	b.editor = canvas.NewEditor(canvas.Items(layout.Items), canvas.Options{
		Key:     b.key,
		Snap:    s.snap,
		History: s.history,
		Persist: canvas.PersistFunc(b.persistItems),
		Now:     s.now,
		Logger:  l,
	})
	b.reveal = reveal.NewRevealer(s.clock, func(shown bool) {
		l.Debug("edit button", slog.String("board", b.key), slog.Bool("shown", shown))
	})
	b.pager = pagination.NewPager(s.pages)
	b.pager.Recompute(layout.Items)
	s.boards[user] = b
	return b
}

// PageConfig is the page geometry boards are measured with.
func (s *Service) PageConfig() pagination.Config { return s.pages }

// Close forgets the cached board of user, discarding any open session.
func (s *Service) Close(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.boards[user]; ok {
		b.reveal.Close()
	}
	delete(s.boards, user)
	s.history.Clear("board:" + user)
}

// Boards lists the users with an open board.
func (s *Service) Boards() []*Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, b)
	}
	return out
}

// Board is one user's menu board. All methods serialize on the board mutex,
// so the single-threaded editor is never entered twice.
type Board struct {
	svc    *Service
	user   string
	key    string
	l      *slog.Logger
	mu     sync.Mutex
	layout domain.Layout
	editor *canvas.Editor
	pager  *pagination.Pager

	reveal  *reveal.Revealer
	editing bool
}

// User is the owner of the board.
func (b *Board) User() string { return b.user }

// Key identifies the board in undo history and logs.
func (b *Board) Key() string { return b.key }

// Context returns ctx carrying the board owner and key for log enrichment.
func (b *Board) Context(ctx context.Context) context.Context {
	return applog.ContextWithBoard(applog.ContextWithUser(ctx, b.user), b.key)
}

// Layout returns the stored layout. While a session is open the items are the draft.
func (b *Board) Layout() domain.Layout {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Board) snapshotLocked() domain.Layout {
	out := b.layout.Clone()
	out.Items = []domain.Item(b.editor.Items())
	return out
}

// Edit runs fn with exclusive access to the editor.
// The edit button follows the editor into and out of editing.
func (b *Board) Edit(fn func(e *canvas.Editor) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer b.syncRevealLocked()
	return fn(b.editor)
}

func (b *Board) syncRevealLocked() {
	editing := b.editor.Mode() != canvas.Viewing
	if editing == b.editing {
		return
	}
	b.editing = editing
	b.reveal.SetEditing(editing)
}

// Tap counts a tap on the hidden corner of the board.
func (b *Board) Tap() { b.reveal.Tap() }

// PressStart begins a long press on the hidden corner.
func (b *Board) PressStart() { b.reveal.PressStart() }

// PressEnd releases a long press.
func (b *Board) PressEnd() { b.reveal.PressEnd() }

// EditButtonShown reports whether the edit button is visible.
func (b *Board) EditButtonShown() bool { return b.reveal.Shown() }

// PickTemplate switches the board to a built-in template and persists it.
// The custom items are kept for a later switch back.
func (b *Board) PickTemplate(ctx context.Context, id string) error {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !domain.IsTemplate(id) {
		return fmt.Errorf("pick template: %w: %w: %q", domain.ErrValidation, ErrUnknownTemplate, id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editor.Mode() != canvas.Viewing {
		return fmt.Errorf("pick template: %w: session open", canvas.ErrWrongMode)
	}
	next := b.layout.Clone()
	next.Mode = domain.ModeTemplate
	next.TemplateID = &id
	if err := storage.SaveLayout(ctx, b.svc.store, b.user, next); err != nil {
		return fmt.Errorf("pick template: %w", err)
	}
	b.layout = next
	b.l.InfoContext(b.Context(ctx), "template picked", slog.String("template", id))
	return nil
}

// StartCustom switches the board to custom mode and opens an editing session.
// A session that is already open is kept.
func (b *Board) StartCustom(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.layout.Mode != domain.ModeCustom {
		next := b.layout.Clone()
		next.Mode = domain.ModeCustom
		next.TemplateID = nil
		if err := storage.SaveLayout(ctx, b.svc.store, b.user, next); err != nil {
			return fmt.Errorf("start custom: %w", err)
		}
		b.layout = next
	}
	if b.editor.Mode() != canvas.Viewing {
		return nil
	}
	defer b.syncRevealLocked()
	return b.editor.BeginEdit()
}

// persistItems is the editor's save hook. It runs under the board mutex
// because Save is only reachable through Edit.
func (b *Board) persistItems(ctx context.Context, items []domain.Item) error {
	next := b.layout.Clone()
	next.Mode = domain.ModeCustom
	next.TemplateID = nil
	next.Items = domain.CloneItems(items)
	if err := storage.SaveLayout(ctx, b.svc.store, b.user, next); err != nil {
		return err
	}
	b.layout = next
	b.pager.Recompute(next.Items)
	if b.svc.db != nil {
		if _, err := storage.SaveRevision(ctx, b.svc.db, b.user, next, "save", b.svc.now()); err != nil {
			b.l.WarnContext(b.Context(ctx), "revision not recorded", slog.Any("err", err))
		}
	}
	return nil
}

// Reload re-reads the stored layout and hands it to the editor as an external
// update. It reports false when the draft has unsaved changes.
func (b *Board) Reload(ctx context.Context) (bool, error) {
	layout, err := storage.LoadLayout(ctx, b.svc.store, b.user)
	if err != nil {
		return false, fmt.Errorf("reload: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.editor.Incoming(layout.Items) {
		return false, nil
	}
	b.layout = layout
	b.pager.Recompute(layout.Items)
	return true, nil
}

// Pages measures the board as currently shown.
func (b *Board) Pages() pagination.Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pager.Recompute(b.editor.Items())
}

// Goto moves to page n, clamped into range, and returns its scroll offset.
func (b *Board) Goto(n int) (page, offset int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pager.Recompute(b.editor.Items())
	return b.pager.Goto(n)
}

// CurrentPage is the page last moved to, clamped after content changes.
func (b *Board) CurrentPage() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pager.Recompute(b.editor.Items())
	return b.pager.Current()
}

// Revisions lists the saved states of the board, newest first.
func (b *Board) Revisions(ctx context.Context, limit int) ([]storage.Revision, error) {
	if b.svc.db == nil {
		return nil, nil
	}
	return storage.ListRevisions(ctx, b.svc.db, b.user, limit)
}

// RestoreRevision loads a saved revision into the open draft as one undoable change.
func (b *Board) RestoreRevision(ctx context.Context, id int64) error {
	if b.svc.db == nil {
		return fmt.Errorf("restore revision: %w", storage.ErrNotFound)
	}
	rev, err := storage.GetRevision(ctx, b.svc.db, b.user, id)
	if err != nil {
		return fmt.Errorf("restore revision: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editor.LoadItems(rev.Layout.Items)
}

// ErrBoardBusy is returned by Autosave when another caller holds the board.
var ErrBoardBusy = errors.New("board is busy")

// Autosave writes an unsaved draft to the user's autosave key. It never
// blocks: a board locked by a running edit reports ErrBoardBusy. It reports
// whether a draft was written.
func (b *Board) Autosave(ctx context.Context) (bool, error) {
	if !b.mu.TryLock() {
		return false, ErrBoardBusy
	}
	defer b.mu.Unlock()
	if !b.editor.Dirty() {
		return false, nil
	}
	draft := b.snapshotLocked()
	draft.Mode = domain.ModeCustom
	if err := b.svc.store.SaveJSON(ctx, storage.UserScopedKey(b.user, storage.KeyAutosave), draft); err != nil {
		return false, fmt.Errorf("autosave: %w", err)
	}
	return true, nil
}

// Autosaved returns the draft left by Autosave, if any.
func (b *Board) Autosaved(ctx context.Context) (domain.Layout, bool) {
	var l domain.Layout
	if err := b.svc.store.LoadJSON(ctx, storage.UserScopedKey(b.user, storage.KeyAutosave), &l); err != nil {
		return domain.Layout{}, false
	}
	l.Normalize()
	return l, true
}
