/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and an autosave of every
// open board draft before the process exits.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"menuboard/internal/board"
	applog "menuboard/internal/log"
	"menuboard/internal/storage"
	"menuboard/internal/telemetry"
	"menuboard/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Handler holds what a crash needs to save. Both fields may be zero.
type Handler struct {
	// DataDir receives reports under its backups directory; empty uses the temp dir.
	DataDir string
	Boards  *board.Service
}

// Recover captures a panic, logs it with the stack, writes a report and
// autosaves dirty drafts, then exits with code 2.
//
// Usage: defer h.Recover()
func (h *Handler) Recover() {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := h.writeReport(r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	saved := h.autosave()

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if saved > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "Unsaved drafts of %d board(s) were autosaved.\n", saved)
	}
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// autosave stores every dirty draft and returns how many were written.
func (h Handler) autosave() int {
	if h.Boards == nil {
		return 0
	}
	l := applog.WithOperation(applog.WithComponent("crash"), "autosave")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n := 0
	for _, b := range h.Boards.Boards() {
		ok, err := b.Autosave(ctx)
		if err != nil {
			l.Error("draft autosave failed", slog.String("user", b.User()), slog.Any("err", err))
			continue
		}
		if ok {
			n++
		}
	}
	return n
}

func (h Handler) writeReport(panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if h.DataDir != "" {
		dir = filepath.Join(h.DataDir, storage.BackupsDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Menu Board Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if h.Boards != nil {
		_, _ = fmt.Fprintf(&buf, "OpenBoards: %d\n", len(h.Boards.Boards()))
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	// uploaded only when opted in
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
