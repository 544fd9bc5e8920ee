/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preset

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"menuboard/internal/domain"
	applog "menuboard/internal/log"
	"menuboard/internal/settings"
	"menuboard/internal/storage"
)

const (
	packManifestName = "presetpack.manifest.txt"
	packDir          = "presets/"
)

// WritePack writes every preset into a zip archive, one JSON file per preset
// under presets/, plus a small manifest for human inspection.
func (s *Store) WritePack(ctx context.Context, w io.Writer) (int, error) {
	list := s.List(ctx)
	zw := zip.NewWriter(w)
	manifest := fmt.Sprintf("Menu Board Preset Pack\nCreated: %s\nPresets: %d\n",
		s.now().Format(time.RFC3339), len(list))
	mw, err := zw.Create(packManifestName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := mw.Write([]byte(manifest)); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	for i, p := range list {
		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return i, fmt.Errorf("marshal preset %s: %w", p.ID, err)
		}
		fw, err := zw.Create(fmt.Sprintf("%s%03d-%s.json", packDir, i+1, p.ID))
		if err != nil {
			return i, err
		}
		if _, err := fw.Write(b); err != nil {
			return i, err
		}
	}
	if err := zw.Close(); err != nil {
		return len(list), fmt.Errorf("close zip: %w", err)
	}
	return len(list), nil
}

// ExportPack writes the pack to destZipPath.
func (s *Store) ExportPack(ctx context.Context, destZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("preset"), "export_pack")
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destZipPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	var buf bytes.Buffer
	n, err := s.WritePack(ctx, &buf)
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return n, fmt.Errorf("build zip: %w", err)
	}
	if err := os.WriteFile(destZipPath, buf.Bytes(), 0o644); err != nil {
		return n, fmt.Errorf("write zip: %w", err)
	}
	l.Info("preset pack exported", slog.Int("presets", n), slog.String("zip", destZipPath))
	return n, nil
}

// ReadPack installs the presets of a zip archive. Each installed preset gets a
// new preset id; a preset already present with the same name and creation time
// is skipped. Entries outside presets/ and invalid documents are ignored.
// Returns the count of presets installed.
func (s *Store) ReadPack(ctx context.Context, r io.ReaderAt, size int64) (int, error) {
	l := applog.WithOperation(applog.WithComponent("preset"), "install_pack")
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	list := s.List(ctx)
	installed := 0
	for _, f := range zr.File {
		name := path.Clean(f.Name)
		if !strings.HasPrefix(name, packDir) || path.Ext(name) != ".json" || f.FileInfo().IsDir() {
			continue
		}
		p, err := readPackEntry(f)
		if err != nil {
			l.Warn("skip pack entry", slog.String("entry", f.Name), slog.Any("err", err))
			continue
		}
		if containsPreset(list, p) {
			l.Warn("skip existing preset", slog.String("name", p.Name))
			continue
		}
		p.ID = domain.NewID()
		list = append(list, p)
		installed++
	}
	if installed == 0 {
		return 0, nil
	}
	if err := settings.SetJSON(ctx, s.kv, Key, list); err != nil {
		return 0, err
	}
	l.Info("preset pack installed", slog.Int("presets", installed))
	return installed, nil
}

// InstallPack installs the pack stored at packZipPath.
func (s *Store) InstallPack(ctx context.Context, packZipPath string) (int, error) {
	if strings.TrimSpace(packZipPath) == "" {
		return 0, errors.New("packZipPath is required")
	}
	b, err := os.ReadFile(packZipPath)
	if err != nil {
		return 0, fmt.Errorf("read pack: %w", err)
	}
	return s.ReadPack(ctx, bytes.NewReader(b), int64(len(b)))
}

func readPackEntry(f *zip.File) (domain.Preset, error) {
	rc, err := f.Open()
	if err != nil {
		return domain.Preset{}, err
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(io.LimitReader(rc, 32<<20))
	if err != nil {
		return domain.Preset{}, err
	}
	// The list schema covers a single preset wrapped in an array.
	wrapped := append(append([]byte{'['}, b...), ']')
	if err := storage.ValidateDocument(storage.SchemaPresets, wrapped); err != nil {
		return domain.Preset{}, err
	}
	var p domain.Preset
	if err := json.Unmarshal(b, &p); err != nil {
		return domain.Preset{}, err
	}
	for i := range p.Items {
		p.Items[i].Normalize()
	}
	if err := domain.ValidateItems(p.Items); err != nil {
		return domain.Preset{}, err
	}
	if p.Items == nil {
		p.Items = []domain.Item{}
	}
	return p, nil
}

func containsPreset(list []domain.Preset, p domain.Preset) bool {
	for _, q := range list {
		if q.Name == p.Name && q.CreatedAt == p.CreatedAt {
			return true
		}
	}
	return false
}
