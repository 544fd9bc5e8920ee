/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"regexp"
)

// Patch is a partial item update. Nil fields are left untouched. Fields that
// do not exist on the target's variant are ignored.
type Patch struct {
	X       *int     `json:"x,omitempty"`
	Y       *int     `json:"y,omitempty"`
	W       *int     `json:"w,omitempty"`
	H       *int     `json:"h,omitempty"`
	Z       *int     `json:"z,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
	Locked  *bool    `json:"locked,omitempty"`
	// GroupID set to "" clears the group tag.
	GroupID *string `json:"groupId,omitempty"`

	Role       *Role   `json:"role,omitempty"`
	Text       *string `json:"text,omitempty"`
	FontFamily *string `json:"fontFamily,omitempty"`
	Size       *int    `json:"size,omitempty"`
	Color      *string `json:"color,omitempty"`
	Bold       *bool   `json:"bold,omitempty"`
	Italic     *bool   `json:"italic,omitempty"`
	Align      *Align  `json:"align,omitempty"`

	Src    *string `json:"src,omitempty"`
	Shape  *Shape  `json:"shape,omitempty"`
	Radius *int    `json:"radius,omitempty"`
	Fit    *Fit    `json:"fit,omitempty"`
}

// Ptr returns a pointer to v; handy for building patches.
func Ptr[T any](v T) *T { return &v }

// LockPatch is the explicit lock or unlock patch.
func LockPatch(locked bool) Patch { return Patch{Locked: &locked} }

// IsLockToggle reports whether the patch is exactly {locked: true} or {locked: false}.
func (p Patch) IsLockToggle() bool {
	if p.Locked == nil {
		return false
	}
	q := p
	q.Locked = nil
	return q.IsEmpty()
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate rejects unknown enum values and malformed colors.
func (p Patch) Validate() error {
	if p.Role != nil && *p.Role != RoleName && *p.Role != RolePrice {
		return fmt.Errorf("%w: role %q", ErrValidation, *p.Role)
	}
	if p.Color != nil && !validColor(*p.Color) {
		return fmt.Errorf("%w: color %q", ErrValidation, *p.Color)
	}
	if p.Align != nil && !validAlign(*p.Align) {
		return fmt.Errorf("%w: align %q", ErrValidation, *p.Align)
	}
	if p.Shape != nil && !validShape(*p.Shape) {
		return fmt.Errorf("%w: shape %q", ErrValidation, *p.Shape)
	}
	if p.Fit != nil && !validFit(*p.Fit) {
		return fmt.Errorf("%w: fit %q", ErrValidation, *p.Fit)
	}
	return nil
}

// Apply returns a patched copy of it. Sizes, opacity, text size and radius
// are clamped into their ranges. Locking rules are the caller's business.
func (p Patch) Apply(it Item) Item {
	c := it.Clone()
	setI(&c.X, p.X)
	setI(&c.Y, p.Y)
	setI(&c.W, p.W)
	setI(&c.H, p.H)
	setI(&c.Z, p.Z)
	if c.W < 1 {
		c.W = 1
	}
	if c.H < 1 {
		c.H = 1
	}
	if c.Z < 0 {
		c.Z = 0
	}
	if p.Opacity != nil {
		c.Opacity = clampF(*p.Opacity, 0, 1)
	}
	if p.Locked != nil {
		c.Locked = *p.Locked
	}
	if p.GroupID != nil {
		c.GroupID = *p.GroupID
	}
	if tp := c.TextProps; tp != nil {
		if p.Role != nil {
			tp.Role = *p.Role
		}
		if p.Text != nil {
			tp.Text = *p.Text
		}
		if p.FontFamily != nil {
			tp.FontFamily = *p.FontFamily
		}
		if p.Size != nil {
			tp.Size = clampI(*p.Size, MinTextSize, MaxTextSize)
		}
		if p.Color != nil {
			tp.Color = *p.Color
		}
		if p.Bold != nil {
			tp.Bold = *p.Bold
		}
		if p.Italic != nil {
			tp.Italic = *p.Italic
		}
		if p.Align != nil {
			tp.Align = *p.Align
		}
	}
	if ip := c.ImageProps; ip != nil {
		if p.Src != nil {
			ip.Src = *p.Src
		}
		if p.Shape != nil {
			ip.Shape = *p.Shape
		}
		if p.Radius != nil {
			ip.Radius = clampI(*p.Radius, MinRadius, MaxRadius)
		}
		if p.Fit != nil {
			ip.Fit = *p.Fit
		}
	}
	return c
}

func setI(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func validColor(s string) bool { return hexColor.MatchString(s) }

func validAlign(a Align) bool {
	return a == AlignLeft || a == AlignCenter || a == AlignRight
}

func validShape(s Shape) bool {
	switch s {
	case ShapeRect, ShapeRounded, ShapeCircle, ShapeTriangle, ShapeDiamond:
		return true
	}
	return false
}

func validFit(f Fit) bool { return f == FitContain || f == FitCover }
