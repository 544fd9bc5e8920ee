/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preset keeps named snapshots of a board's item collection in the
// settings store and shares them as zip packs.
package preset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	applog "menuboard/internal/log"
	"menuboard/internal/settings"
	"menuboard/internal/storage"
)

// Key is the settings key holding the preset list.
const Key = "MENU_CUSTOM_PRESETS_V1"

// ErrNotFound is returned when no preset matches.
var ErrNotFound = errors.New("preset not found")

// Store manages the persisted preset list.
type Store struct {
	kv  settings.Store
	now func() time.Time
}

// New returns a preset store over kv.
func New(kv settings.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// List returns all presets in save order. A missing or unreadable list is empty.
func (s *Store) List(ctx context.Context) []domain.Preset {
	l := applog.WithOperation(applog.WithComponent("preset"), "list")
	raw, ok := s.kv.Get(ctx, Key)
	if !ok {
		return []domain.Preset{}
	}
	if err := storage.ValidateDocument(storage.SchemaPresets, []byte(raw)); err != nil {
		l.Warn("stored presets ignored", slog.Any("err", err))
		return []domain.Preset{}
	}
	var list []domain.Preset
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		l.Warn("stored presets ignored", slog.Any("err", err))
		return []domain.Preset{}
	}
	for i := range list {
		for j := range list[i].Items {
			list[i].Items[j].Normalize()
		}
	}
	return list
}

// Save appends a preset holding a deep copy of items. Names need not be unique.
func (s *Store) Save(ctx context.Context, name string, items []domain.Item) (domain.Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Preset{}, fmt.Errorf("%w: preset name is required", domain.ErrValidation)
	}
	if err := domain.ValidateItems(items); err != nil {
		return domain.Preset{}, err
	}
	p := domain.Preset{
		ID:        domain.NewID(),
		Name:      name,
		CreatedAt: s.now().UnixMilli(),
		Items:     domain.CloneItems(items),
	}
	if p.Items == nil {
		p.Items = []domain.Item{}
	}
	list := append(s.List(ctx), p)
	if err := settings.SetJSON(ctx, s.kv, Key, list); err != nil {
		return domain.Preset{}, err
	}
	applog.WithComponent("preset").Info("preset saved", slog.String("name", name), slog.Int("items", len(p.Items)))
	return p, nil
}

// Load returns a deep copy of the preset's items with fresh ids. Group tags
// are remapped so loaded groups stay together without colliding.
func (s *Store) Load(ctx context.Context, id string) ([]domain.Item, error) {
	p, ok := lo.Find(s.List(ctx), func(p domain.Preset) bool { return p.ID == id })
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return canvas.Replace(p.Items), nil
}

// DeleteByName removes the first preset whose name matches exactly.
func (s *Store) DeleteByName(ctx context.Context, name string) error {
	list := s.List(ctx)
	_, idx, ok := lo.FindIndexOf(list, func(p domain.Preset) bool { return p.Name == name })
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	list = append(list[:idx], list[idx+1:]...)
	return settings.SetJSON(ctx, s.kv, Key, list)
}
