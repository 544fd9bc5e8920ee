/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"menuboard/internal/board"
	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	"menuboard/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := Handler{}.writeReport("boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Menu Board Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInDataBackups(t *testing.T) {
	root := t.TempDir()
	path, err := Handler{DataDir: root}.writeReport("kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if !strings.HasPrefix(path, filepath.Join(root, storage.BackupsDirName)) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
}

// TestRecover_AutosavesDrafts panics with a dirty board open and checks the
// report, the autosaved draft and the intercepted exit code.
func TestRecover_AutosavesDrafts(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	ctx := context.Background()
	root := t.TempDir()
	store := storage.NewMemory()
	boards := board.New(store, nil)
	b := boards.Open(ctx, "alice")
	if err := b.StartCustom(ctx); err != nil {
		t.Fatalf("start custom: %v", err)
	}
	if err := b.Edit(func(e *canvas.Editor) error {
		_, err := e.AddText(domain.RoleName)
		return err
	}); err != nil {
		t.Fatalf("add text: %v", err)
	}

	func() {
		defer (&Handler{DataDir: root, Boards: boards}).Recover()
		panic("boom")
	}()

	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
	files, _ := os.ReadDir(filepath.Join(root, storage.BackupsDirName))
	var report []byte
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			report, _ = os.ReadFile(filepath.Join(root, storage.BackupsDirName, f.Name()))
		}
	}
	if !bytes.Contains(report, []byte("Panic: boom")) {
		t.Fatalf("report missing or without panic: %q", report)
	}
	if got, ok := b.Autosaved(ctx); !ok || len(got.Items) != 1 {
		t.Fatalf("draft not autosaved: %+v %v", got, ok)
	}
}
