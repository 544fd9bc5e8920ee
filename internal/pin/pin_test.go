/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pin

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"

	"menuboard/internal/settings"
)

func TestDefaultAndChange(t *testing.T) {
	ctx := context.Background()
	kv := settings.NewMemory()
	g := New(kv)
	if !g.Check(ctx, "0000") || g.Check(ctx, "1234") {
		t.Fatalf("fresh gate should accept only the default PIN")
	}
	if err := g.Change(ctx, "1111", "2222"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	for _, bad := range []string{"", "123", "12345", "12a4", " 123"} {
		if err := g.Change(ctx, "0000", bad); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("%q: expected ErrInvalidFormat, got %v", bad, err)
		}
	}
	if !g.Check(ctx, "0000") {
		t.Fatalf("failed change must leave the PIN alone")
	}
	if err := g.Change(ctx, "0000", "4821"); err != nil {
		t.Fatalf("Change: %v", err)
	}
	if v, _ := kv.Get(ctx, Key); v != "4821" {
		t.Fatalf("PIN should be stored as a plain 4-digit string, got %q", v)
	}
	if !g.Check(ctx, "4821") || g.Check(ctx, "0000") {
		t.Fatalf("new PIN not in effect")
	}
}

func TestMalformedStoredPINFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	kv := settings.NewMemory()
	_ = kv.Set(ctx, Key, "abc")
	if got := New(kv).Current(ctx); got != Default {
		t.Fatalf("malformed stored PIN should read as default, got %q", got)
	}
}

type keyringStore struct{}

func (keyringStore) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (keyringStore) Set(service, key, value string) error { return keyring.Set(service, key, value) }

func TestKeyringBacking(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	kv := settings.NewMemory()
	g := New(kv, WithKeyring(keyringStore{}))
	if g.Current(ctx) != Default {
		t.Fatalf("empty keyring should read as default")
	}
	if err := g.Change(ctx, Default, "9876"); err != nil {
		t.Fatalf("Change: %v", err)
	}
	if v, err := keyring.Get(KeyringService, KeyringKey); err != nil || v != "9876" {
		t.Fatalf("PIN not in keyring: %q %v", v, err)
	}
	if _, ok := kv.Get(ctx, Key); ok {
		t.Fatalf("keyring-backed PIN must not be written to settings")
	}
	if !g.Check(ctx, "9876") {
		t.Fatalf("keyring PIN not in effect")
	}
}
