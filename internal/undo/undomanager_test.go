/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerKey: 10, MinInterval: 10 * time.Millisecond})
	key := "demo:MENU_LAYOUT"
	t0 := time.Now()
	m.PushSnapshot(Snapshot{Key: key, Blob: []byte("a"), TS: t0})
	m.PushSnapshot(Snapshot{Key: key, Blob: []byte("b"), TS: t0.Add(20 * time.Millisecond)})
	if _, keys, total := m.Stats(); keys != 1 || total != 2 {
		t.Fatalf("expected 1 key and 2 snapshots, got keys=%d total=%d", keys, total)
	}
	s, ok := m.Undo(key, []byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if !m.CanRedo(key) {
		t.Fatalf("redo should be available after undo")
	}
	s, ok = m.Redo(key, []byte("b"))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, ok = m.Undo(key, []byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("second undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestCoalesceKeepsOldest(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerKey: 10, MinInterval: 50 * time.Millisecond})
	key := "k"
	t0 := time.Now()
	m.PushSnapshot(Snapshot{Key: key, Blob: []byte("1"), TS: t0})
	m.PushSnapshot(Snapshot{Key: key, Blob: []byte("2"), TS: t0.Add(10 * time.Millisecond)}) // coalesce
	m.PushSnapshot(Snapshot{Key: key, Blob: []byte("3"), TS: t0.Add(40 * time.Millisecond)}) // still within burst
	_, _, total := m.Stats()
	if total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo(key, []byte("4"))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected burst start '1', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestNegativeIntervalDisablesCoalescing(t *testing.T) {
	m := NewManager(Config{MinInterval: -1})
	t0 := time.Now()
	m.PushSnapshot(Snapshot{Key: "k", Blob: []byte("1"), TS: t0})
	m.PushSnapshot(Snapshot{Key: "k", Blob: []byte("2"), TS: t0})
	if _, _, total := m.Stats(); total != 2 {
		t.Fatalf("expected 2 snapshots, got %d", total)
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{MinInterval: -1})
	m.PushSnapshot(Snapshot{Key: "k", Blob: []byte("1"), TS: time.Now()})
	m.Undo("k", []byte("2"))
	m.PushSnapshot(Snapshot{Key: "k", Blob: []byte("1"), TS: time.Now()})
	if m.CanRedo("k") {
		t.Fatalf("a new change must invalidate redo")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerKey: 2, MinInterval: 1 * time.Millisecond})
	key := "k"
	for i := 0; i < 10; i++ {
		m.PushSnapshot(Snapshot{Key: key, Blob: []byte("xxxxx"), TS: time.Now().Add(time.Duration(i) * time.Millisecond)})
	}
	_, _, total := m.Stats()
	if total > 2 {
		t.Fatalf("expected MaxPerKey cap to limit to 2, got %d", total)
	}
}

func TestClearAndMemoryCap(t *testing.T) {
	m := NewManager(Config{MaxBytes: 10, MinInterval: -1})
	t0 := time.Now()
	m.PushSnapshot(Snapshot{Key: "a", Blob: []byte("xxxxxx"), TS: t0})
	m.PushSnapshot(Snapshot{Key: "b", Blob: []byte("yyyyyy"), TS: t0.Add(time.Millisecond)})
	bytes, _, total := m.Stats()
	if bytes > 10 || total != 1 {
		t.Fatalf("global cap should prune oldest: bytes=%d total=%d", bytes, total)
	}
	if m.CanUndo("a") || !m.CanUndo("b") {
		t.Fatalf("expected oldest key pruned")
	}
	m.Clear("b")
	if bytes, keys, _ := m.Stats(); bytes != 0 || keys != 0 {
		t.Fatalf("clear should release everything, bytes=%d keys=%d", bytes, keys)
	}
}
