/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "menuboard/internal/log"
)

const (
	BlobsDirName   = "blobs"
	DocsDirName    = "docs"
	BackupsDirName = "backups"

	// MaxBackupsPerKey bounds the timestamped backups kept for one JSON document.
	MaxBackupsPerKey = 5
)

// ErrNotFound is returned when no document or blob is stored under a key.
var ErrNotFound = errors.New("not found")

// Store is the blob/JSON persistence the board, auth and preset layers consume.
type Store interface {
	LoadBlob(ctx context.Context, key string) ([]byte, error)
	SaveBlob(ctx context.Context, key string, data []byte) error
	LoadJSON(ctx context.Context, key string, v any) error
	SaveJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// FileStore keeps every key in its own file below Root.
type FileStore struct {
	Root string
	now  func() time.Time
}

// OpenFileStore creates the directory layout below root if needed.
func OpenFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("data root is required")
	}
	for _, d := range []string{BlobsDirName, DocsDirName, BackupsDirName} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return &FileStore{Root: root, now: time.Now}, nil
}

// fileName maps a key onto a single safe path element.
func fileName(key string) string { return url.QueryEscape(key) }

func (s *FileStore) blobPath(key string) string {
	return filepath.Join(s.Root, BlobsDirName, fileName(key))
}

func (s *FileStore) docPath(key string) string {
	return filepath.Join(s.Root, DocsDirName, fileName(key)+".json")
}

// LoadBlob returns the raw bytes stored under key.
func (s *FileStore) LoadBlob(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.blobPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return b, nil
}

// SaveBlob replaces the blob under key.
func (s *FileStore) SaveBlob(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := replaceFile(s.blobPath(key), data); err != nil {
		return fmt.Errorf("save blob %s: %w", key, err)
	}
	return nil
}

// LoadJSON decodes the document under key into v. A document that cannot be
// read or parsed is recovered from its latest backup when one exists.
func (s *FileStore) LoadJSON(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := os.ReadFile(s.docPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("document %s: %w", key, ErrNotFound)
	}
	if err == nil {
		if err = json.Unmarshal(b, v); err == nil {
			return nil
		}
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "load_json").With(slog.String("key", key))
	l.Warn("document unreadable, trying backup", slog.Any("err", err))
	if berr := s.loadLatestBackup(key, v); berr != nil {
		return fmt.Errorf("load document %s: %w; backup attempt: %v", key, err, berr)
	}
	return nil
}

// SaveJSON writes v under key with transactional semantics and a timestamped
// backup of the previous document (if present).
func (s *FileStore) SaveJSON(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	data = append(data, '\n')

	path := s.docPath(key)
	if _, statErr := os.Stat(path); statErr == nil {
		stamp := s.now().Format("20060102-150405.000")
		bpath := filepath.Join(s.Root, BackupsDirName, fmt.Sprintf("%s.%s.bak", fileName(key), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup %s: %w", key, cerr)
		}
		s.pruneBackups(key)
	}
	if err := replaceFile(path, data); err != nil {
		return fmt.Errorf("save document %s: %w", key, err)
	}
	return nil
}

// Delete removes the blob and document stored under key. Missing files are ignored.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range []string{s.blobPath(key), s.docPath(key)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// backups lists the backup files of key, oldest first.
func (s *FileStore) backups(key string) []string {
	bdir := filepath.Join(s.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	prefix := fileName(key) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

func (s *FileStore) pruneBackups(key string) {
	list := s.backups(key)
	for len(list) > MaxBackupsPerKey {
		_ = os.Remove(list[0])
		list = list[1:]
	}
}

func (s *FileStore) loadLatestBackup(key string, v any) error {
	list := s.backups(key)
	if len(list) == 0 {
		return errors.New("no backups found")
	}
	b, err := os.ReadFile(list[len(list)-1])
	if err != nil {
		return fmt.Errorf("read latest backup: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse latest backup: %w", err)
	}
	return nil
}

// replaceFile writes to a temp file in the same directory, then renames it over path.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace: %w", err)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
