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
	"fmt"
	"log/slog"
	"strings"

	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	"menuboard/internal/storage"
)

// SetBackground stores the menu background image.
func (b *Board) SetBackground(ctx context.Context, data []byte) error {
	return b.saveMedia(ctx, storage.KeyBackground, data)
}

// Background returns the stored background or storage.ErrNotFound.
func (b *Board) Background(ctx context.Context) ([]byte, error) {
	return b.svc.store.LoadBlob(ctx, storage.UserScopedKey(b.user, storage.KeyBackground))
}

// SetIntroVideo stores the intro video shown before the board.
func (b *Board) SetIntroVideo(ctx context.Context, data []byte) error {
	return b.saveMedia(ctx, storage.KeyIntroVideo, data)
}

// IntroVideo returns the stored intro video or storage.ErrNotFound.
func (b *Board) IntroVideo(ctx context.Context) ([]byte, error) {
	return b.svc.store.LoadBlob(ctx, storage.UserScopedKey(b.user, storage.KeyIntroVideo))
}

func (b *Board) saveMedia(ctx context.Context, key string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("save %s: %w: empty upload", key, domain.ErrValidation)
	}
	if err := b.svc.store.SaveBlob(ctx, storage.UserScopedKey(b.user, key), data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	b.l.InfoContext(b.Context(ctx), "media stored", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

// AddImageBlob stores an uploaded photo and adds an image item showing it.
// Both happen under the board mutex, so every blob belongs to exactly one item.
func (b *Board) AddImageBlob(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("add image: %w: empty upload", domain.ErrValidation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editor.Mode() != canvas.Editing {
		return "", fmt.Errorf("add image: %w: %s", canvas.ErrWrongMode, b.editor.Mode())
	}
	key := storage.UserScopedKey(b.user, imageKeyPrefix+domain.NewID())
	if err := b.svc.store.SaveBlob(ctx, key, data); err != nil {
		return "", fmt.Errorf("add image: %w", err)
	}
	id, err := b.editor.AddImage(BlobPrefix + key)
	if err != nil {
		_ = b.svc.store.Delete(ctx, key)
		return "", err
	}
	return id, nil
}

// Image returns the bytes behind an image source of this board. Only blob
// references owned by the board's user are resolved; anything else reports
// storage.ErrNotFound.
func (b *Board) Image(ctx context.Context, src string) ([]byte, error) {
	key, ok := BlobKey(src)
	if !ok || !b.ownsImage(key) {
		return nil, fmt.Errorf("image %q: %w", src, storage.ErrNotFound)
	}
	return b.svc.store.LoadBlob(ctx, key)
}

// ownsImage reports whether key has the exact shape AddImageBlob gives the
// board's uploads: the image prefix, one id, then this user's scope.
func (b *Board) ownsImage(key string) bool {
	base := key
	if user := strings.TrimSpace(b.user); user != "" {
		var ok bool
		if base, ok = strings.CutSuffix(key, ":"+user); !ok {
			return false
		}
	}
	id, ok := strings.CutPrefix(base, imageKeyPrefix)
	return ok && id != "" && !strings.Contains(id, ":")
}

// BlobKey extracts the storage key of a "blob:<key>" image source.
func BlobKey(src string) (string, bool) {
	key, ok := strings.CutPrefix(src, BlobPrefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
