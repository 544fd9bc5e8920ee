/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model of a menu board: placed items,
// the persisted layout aggregate, presets and user accounts.
// JSON field names match the documents written by earlier releases so that
// stored boards keep loading.

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrValidation marks malformed input. Callers wrap it with details.
var ErrValidation = errors.New("validation failed")

// ItemType discriminates the Item variant.
type ItemType string

const (
	ItemText  ItemType = "text"
	ItemImage ItemType = "image"
)

// Role is the cosmetic default a text item was created with.
type Role string

const (
	RoleName  Role = "name"
	RolePrice Role = "price"
)

// Align is the horizontal text alignment inside a text box.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Shape is the clip shape of an image frame.
type Shape string

const (
	ShapeRect     Shape = "rect"
	ShapeRounded  Shape = "rounded"
	ShapeCircle   Shape = "circle"
	ShapeTriangle Shape = "triangle"
	ShapeDiamond  Shape = "diamond"
)

// Fit controls how an image fills its frame.
type Fit string

const (
	FitContain Fit = "contain"
	FitCover   Fit = "cover"
)

// Font is a selectable font stack.
type Font struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Fonts lists the font stacks offered by the editor. The first one is the default.
var Fonts = []Font{
	{Label: "Pretendard", Value: "Pretendard, system-ui, -apple-system, Segoe UI, Roboto, sans-serif"},
	{Label: "Noto Sans KR", Value: `"Noto Sans KR", system-ui, -apple-system, Segoe UI, Roboto, sans-serif`},
	{Label: "Serif", Value: `Georgia, "Times New Roman", serif`},
	{Label: "Mono", Value: `ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace`},
}

// Value ranges enforced when patches are applied.
const (
	MinTextSize = 10
	MaxTextSize = 200
	MinRadius   = 0
	MaxRadius   = 200

	DefaultTextSize = 36
	DefaultRadius   = 18
	DefaultColor    = "#ffffff"
)

// TextProps holds the fields only a text item has.
type TextProps struct {
	Role       Role   `json:"role,omitempty"`
	Text       string `json:"text"`
	FontFamily string `json:"fontFamily"`
	Size       int    `json:"size"`
	Color      string `json:"color"`
	Bold       bool   `json:"bold"`
	Italic     bool   `json:"italic"`
	Align      Align  `json:"align"`
}

// ImageProps holds the fields only an image item has.
type ImageProps struct {
	Src    string `json:"src"`
	Shape  Shape  `json:"shape"`
	Radius int    `json:"radius"`
	Fit    Fit    `json:"fit"`
}

// Item is a placed element on the canvas. Exactly one of TextProps and
// ImageProps is set, matching Type. The embedded structs keep the JSON flat.
type Item struct {
	ID      string   `json:"id"`
	Type    ItemType `json:"type"`
	X       int      `json:"x"`
	Y       int      `json:"y"`
	W       int      `json:"w"`
	H       int      `json:"h"`
	Z       int      `json:"z"`
	Opacity float64  `json:"opacity"`
	Locked  bool     `json:"locked"`
	GroupID string   `json:"groupId,omitempty"`

	*TextProps
	*ImageProps
}

// NewID returns a fresh item/preset id.
func NewID() string { return uuid.NewString() }

// NewText builds a text item with the defaults for role. Z is left at 0; the
// item store assigns it on insertion.
func NewText(role Role) Item {
	it := Item{
		ID: NewID(), Type: ItemText, Opacity: 1,
		TextProps: &TextProps{
			Role: role, FontFamily: Fonts[0].Value, Color: DefaultColor,
			Bold: true, Align: AlignLeft,
		},
	}
	switch role {
	case RolePrice:
		it.X, it.Y, it.W, it.H = 60, 180, 320, 70
		it.Text, it.Size = "₩9,900", 46
	default:
		it.Role = RoleName
		it.X, it.Y, it.W, it.H = 60, 80, 520, 90
		it.Text, it.Size = "음식 이름", 52
	}
	return it
}

// NewImage builds an image item showing src.
func NewImage(src string) Item {
	return Item{
		ID: NewID(), Type: ItemImage, Opacity: 1,
		X: 80, Y: 120, W: 320, H: 240,
		ImageProps: &ImageProps{Src: src, Shape: ShapeRounded, Radius: DefaultRadius, Fit: FitContain},
	}
}

// Clone returns a deep copy that shares no pointers with it.
func (it Item) Clone() Item {
	c := it
	if it.TextProps != nil {
		tp := *it.TextProps
		c.TextProps = &tp
	}
	if it.ImageProps != nil {
		ip := *it.ImageProps
		c.ImageProps = &ip
	}
	return c
}

// Bottom is the item's lower edge in canvas pixels.
func (it Item) Bottom() int { return it.Y + it.H }

// Normalize fills defaults and clamps ranges so renderers never need
// fallbacks. Unknown types are left alone; Validate reports them.
func (it *Item) Normalize() {
	if it.W < 1 {
		it.W = 1
	}
	if it.H < 1 {
		it.H = 1
	}
	if it.Z < 0 {
		it.Z = 0
	}
	it.Opacity = clampF(it.Opacity, 0, 1)
	switch it.Type {
	case ItemText:
		it.ImageProps = nil
		if it.TextProps == nil {
			it.TextProps = &TextProps{}
		}
		tp := it.TextProps
		if tp.FontFamily == "" {
			tp.FontFamily = Fonts[0].Value
		}
		if tp.Size == 0 {
			tp.Size = DefaultTextSize
		}
		tp.Size = clampI(tp.Size, MinTextSize, MaxTextSize)
		if tp.Color == "" {
			tp.Color = DefaultColor
		}
		if tp.Align == "" {
			tp.Align = AlignLeft
		}
	case ItemImage:
		it.TextProps = nil
		if it.ImageProps == nil {
			it.ImageProps = &ImageProps{Radius: DefaultRadius}
		}
		ip := it.ImageProps
		if ip.Shape == "" {
			ip.Shape = ShapeRounded
		}
		if ip.Fit == "" {
			ip.Fit = FitContain
		}
		ip.Radius = clampI(ip.Radius, MinRadius, MaxRadius)
	}
}

// Validate checks the structural invariants of a single item.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("%w: item without id", ErrValidation)
	}
	switch it.Type {
	case ItemText:
		if it.TextProps == nil {
			return fmt.Errorf("%w: text item %s has no text fields", ErrValidation, it.ID)
		}
		if !validColor(it.Color) {
			return fmt.Errorf("%w: item %s color %q", ErrValidation, it.ID, it.Color)
		}
		if !validAlign(it.Align) {
			return fmt.Errorf("%w: item %s align %q", ErrValidation, it.ID, it.Align)
		}
	case ItemImage:
		if it.ImageProps == nil {
			return fmt.Errorf("%w: image item %s has no image fields", ErrValidation, it.ID)
		}
		if !validShape(it.Shape) {
			return fmt.Errorf("%w: item %s shape %q", ErrValidation, it.ID, it.Shape)
		}
		if !validFit(it.Fit) {
			return fmt.Errorf("%w: item %s fit %q", ErrValidation, it.ID, it.Fit)
		}
	default:
		return fmt.Errorf("%w: item %s has unknown type %q", ErrValidation, it.ID, it.Type)
	}
	if it.W < 1 || it.H < 1 {
		return fmt.Errorf("%w: item %s size %dx%d", ErrValidation, it.ID, it.W, it.H)
	}
	return nil
}

// UnmarshalJSON pre-fills the defaults that zero values cannot express
// (opacity 1, radius 18) and keeps only the variant named by type.
func (it *Item) UnmarshalJSON(b []byte) error {
	type alias Item
	a := alias{
		Opacity:    1,
		TextProps:  &TextProps{},
		ImageProps: &ImageProps{Radius: DefaultRadius},
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	switch a.Type {
	case ItemText:
		a.ImageProps = nil
	case ItemImage:
		a.TextProps = nil
	default:
		a.TextProps, a.ImageProps = nil, nil
	}
	*it = Item(a)
	return nil
}

// CloneItems deep-copies a collection.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// MaxZ returns the highest z in items, or 0 for an empty collection.
func MaxZ(items []Item) int {
	m := 0
	for _, it := range items {
		if it.Z > m {
			m = it.Z
		}
	}
	return m
}

// LayoutMode selects how the public board is rendered.
type LayoutMode string

const (
	ModeNone     LayoutMode = ""
	ModeTemplate LayoutMode = "template"
	ModeCustom   LayoutMode = "custom"
)

// MarshalJSON writes the unset mode as null.
func (m LayoutMode) MarshalJSON() ([]byte, error) {
	if m == ModeNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

// UnmarshalJSON accepts null as the unset mode.
func (m *LayoutMode) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = ModeNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*m = LayoutMode(s)
	return nil
}

// Templates are the built-in board templates.
var Templates = []string{"T1", "T2", "T3"}

// IsTemplate reports whether id names a built-in template.
func IsTemplate(id string) bool {
	for _, t := range Templates {
		if t == id {
			return true
		}
	}
	return false
}

// Layout is the persisted board state. In custom mode Items is authoritative;
// in template mode the renderer ignores it.
type Layout struct {
	Mode       LayoutMode `json:"mode"`
	TemplateID *string    `json:"templateId"`
	Items      []Item     `json:"items"`
}

// DefaultLayout is what a user without a stored board gets.
func DefaultLayout() Layout { return Layout{Items: []Item{}} }

// Clone deep-copies the layout.
func (l Layout) Clone() Layout {
	c := l
	if l.TemplateID != nil {
		id := *l.TemplateID
		c.TemplateID = &id
	}
	c.Items = CloneItems(l.Items)
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c
}

// Normalize applies Item.Normalize to every item.
func (l *Layout) Normalize() {
	if l.Items == nil {
		l.Items = []Item{}
	}
	for i := range l.Items {
		l.Items[i].Normalize()
	}
}

// Validate checks the mode and all items, including id uniqueness.
func (l Layout) Validate() error {
	switch l.Mode {
	case ModeNone, ModeCustom:
	case ModeTemplate:
		if l.TemplateID == nil || !IsTemplate(*l.TemplateID) {
			return fmt.Errorf("%w: template mode without known template id", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: layout mode %q", ErrValidation, string(l.Mode))
	}
	return ValidateItems(l.Items)
}

// ValidateItems validates each item and rejects duplicate ids.
func ValidateItems(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: duplicate item id %s", ErrValidation, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// Preset is a named frozen copy of an item collection.
type Preset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"` // unix milliseconds
	Items     []Item `json:"items"`
}

// User is a local account. Password is only set on accounts stored before
// secrets were hashed; it is replaced by PasswordHash on the next login.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Password     string `json:"password,omitempty"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	CreatedAt    int64  `json:"createdAt"`
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
