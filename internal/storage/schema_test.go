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
	"errors"
	"testing"

	"menuboard/internal/domain"
)

func TestLayoutRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	l, err := LoadLayout(ctx, s, "alice")
	if err != nil || l.Mode != domain.ModeNone || len(l.Items) != 0 {
		t.Fatalf("missing layout should yield default: %+v %v", l, err)
	}

	text := domain.NewText(domain.RoleName)
	img := domain.NewImage("blob:MENU_IMG:1")
	img.GroupID = "g_1"
	img.Locked = true
	l = domain.Layout{Mode: domain.ModeCustom, Items: []domain.Item{text, img}}
	if err := SaveLayout(ctx, s, "alice", l); err != nil {
		t.Fatalf("SaveLayout: %v", err)
	}
	got, err := LoadLayout(ctx, s, "alice")
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if got.Mode != domain.ModeCustom || len(got.Items) != 2 {
		t.Fatalf("layout mismatch: %+v", got)
	}
	if got.Items[0].Text != text.Text || got.Items[1].GroupID != "g_1" || !got.Items[1].Locked {
		t.Fatalf("item fields lost: %+v", got.Items)
	}
	if got.Items[1].TextProps != nil || got.Items[0].ImageProps != nil {
		t.Fatalf("variant fields leaked across types")
	}
	if other, _ := LoadLayout(ctx, s, "bob"); len(other.Items) != 0 {
		t.Fatalf("layouts must be scoped per user")
	}
}

func TestSaveLayoutRejectsInvalid(t *testing.T) {
	s := NewMemory()
	bad := domain.Layout{Mode: domain.ModeTemplate, Items: []domain.Item{}}
	if err := SaveLayout(context.Background(), s, "u", bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("template mode without id should fail validation, got %v", err)
	}
}

func TestLoadLayoutSchemaViolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	raw := map[string]any{
		"mode":  "custom",
		"items": []any{map[string]any{"id": "a", "type": "text", "x": 0, "y": 0, "w": 0, "h": 10}},
	}
	_ = s.SaveJSON(ctx, UserScopedKey("u", KeyLayout), raw)
	l, err := LoadLayout(ctx, s, "u")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero width should violate the schema, got %v", err)
	}
	if len(l.Items) != 0 {
		t.Fatalf("invalid document should yield the default layout")
	}
}

func TestValidateDocumentPresets(t *testing.T) {
	ok := []byte(`[{"id":"p1","name":"Lunch","createdAt":1700000000000,"items":[{"id":"a","type":"image","x":1,"y":2,"w":3,"h":4,"shape":"circle"}]}]`)
	if err := ValidateDocument(SchemaPresets, ok); err != nil {
		t.Fatalf("valid presets rejected: %v", err)
	}
	bad := []byte(`[{"id":"p1","name":"","items":[]}]`)
	if err := ValidateDocument(SchemaPresets, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank preset name should fail, got %v", err)
	}
	if err := ValidateDocument("nope", ok); err == nil {
		t.Fatalf("unknown schema should fail")
	}
}
