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
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"menuboard/internal/domain"
)

// Document schema names.
const (
	SchemaLayout  = "layout"
	SchemaPresets = "presets"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*gojsonschema.Schema{}
)

func compiledSchema(name string) (*gojsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[name]; ok {
		return s, nil
	}
	raw, err := schemaFS.ReadFile("schema/" + name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", name, err)
	}
	schemaCache[name] = s
	return s, nil
}

// ValidateDocument checks data against the named embedded schema. Violations
// are reported as domain.ErrValidation.
func ValidateDocument(name string, data []byte) error {
	s, err := compiledSchema(name)
	if err != nil {
		return err
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %s document is not JSON: %v", domain.ErrValidation, name, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s document: %s", domain.ErrValidation, name, strings.Join(msgs, "; "))
}

// LoadValidated reads the raw document under key, checks it against schema
// and decodes it into v.
func LoadValidated(ctx context.Context, s Store, key, schema string, v any) error {
	var raw json.RawMessage
	if err := s.LoadJSON(ctx, key, &raw); err != nil {
		return err
	}
	if err := ValidateDocument(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// LoadLayout returns the user's stored layout, normalized and validated.
// A user without a stored layout gets domain.DefaultLayout and no error.
func LoadLayout(ctx context.Context, s Store, user string) (domain.Layout, error) {
	var l domain.Layout
	err := LoadValidated(ctx, s, UserScopedKey(user, KeyLayout), SchemaLayout, &l)
	if errors.Is(err, ErrNotFound) {
		return domain.DefaultLayout(), nil
	}
	if err != nil {
		return domain.DefaultLayout(), err
	}
	l.Normalize()
	if err := l.Validate(); err != nil {
		return domain.DefaultLayout(), err
	}
	return l, nil
}

// SaveLayout validates and persists the user's layout.
func SaveLayout(ctx context.Context, s Store, user string, l domain.Layout) error {
	l = l.Clone()
	l.Normalize()
	if err := l.Validate(); err != nil {
		return err
	}
	return s.SaveJSON(ctx, UserScopedKey(user, KeyLayout), l)
}
