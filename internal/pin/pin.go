/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pin implements the 4-digit PIN that gates the edit screen of the
// public board. It is a UI gate, not authentication: the PIN is stored in
// plain text, in the settings store or optionally in the OS keyring.
package pin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	applog "menuboard/internal/log"
	"menuboard/internal/settings"
)

const (
	// Key is the settings key holding the PIN.
	Key = "MENU_PIN_V1"
	// Default is the PIN of a fresh install.
	Default = "0000"

	KeyringService = "MenuBoard"
	KeyringKey     = "menu_pin"
)

var (
	ErrInvalidFormat = errors.New("PIN must be exactly 4 digits")
	ErrMismatch      = errors.New("PIN does not match")
)

var fourDigits = regexp.MustCompile(`^[0-9]{4}$`)

// SecretStore is the subset of an OS keyring the gate needs.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
}

// Gate checks and changes the PIN.
type Gate struct {
	kv      settings.Store
	secrets SecretStore
}

// Option configures a Gate.
type Option func(*Gate)

// WithKeyring keeps the PIN in s instead of the settings store.
func WithKeyring(s SecretStore) Option { return func(g *Gate) { g.secrets = s } }

// New returns a Gate over kv.
func New(kv settings.Store, opts ...Option) *Gate {
	g := &Gate{kv: kv}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Valid reports whether p is a well-formed PIN.
func Valid(p string) bool { return fourDigits.MatchString(p) }

// Current returns the stored PIN, falling back to Default when nothing usable is stored.
func (g *Gate) Current(ctx context.Context) string {
	if g.secrets != nil {
		v, err := g.secrets.Get(KeyringService, KeyringKey)
		if err == nil && Valid(v) {
			return v
		}
		if err != nil {
			applog.WithComponent("pin").Debug("keyring read failed", slog.Any("err", err))
		}
		return Default
	}
	if v, ok := g.kv.Get(ctx, Key); ok && Valid(v) {
		return v
	}
	return Default
}

// Check reports whether p matches the stored PIN.
func (g *Gate) Check(ctx context.Context, p string) bool {
	return subtle.ConstantTimeCompare([]byte(p), []byte(g.Current(ctx))) == 1
}

// Change replaces the PIN after verifying current. next must be exactly 4 digits.
func (g *Gate) Change(ctx context.Context, current, next string) error {
	if !g.Check(ctx, current) {
		return ErrMismatch
	}
	if !Valid(next) {
		return ErrInvalidFormat
	}
	if g.secrets != nil {
		if err := g.secrets.Set(KeyringService, KeyringKey, next); err != nil {
			return fmt.Errorf("store PIN in keyring: %w", err)
		}
		return nil
	}
	if err := g.kv.Set(ctx, Key, next); err != nil {
		return fmt.Errorf("store PIN: %w", err)
	}
	return nil
}
