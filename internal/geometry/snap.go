/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

// Snapping runs once per finished gesture, never per frame, so the result is
// deterministic for a given drop position.

import (
	"math"

	"menuboard/internal/domain"
)

const (
	DefaultThreshold = 8
	DefaultGridSize  = 10
	MinGridSize      = 4
	MaxGridSize      = 100
)

// SnapOptions controls grid and edge snapping.
type SnapOptions struct {
	// Grid rounds x and y to multiples of GridSize before edge snapping.
	Grid     bool `json:"grid" yaml:"grid"`
	GridSize int  `json:"gridSize" yaml:"grid_size"`
	// Edges snaps to the left/right/center and top/bottom/middle lines of other items.
	Edges bool `json:"edges" yaml:"edges"`
	// Threshold is the maximum distance in pixels at which edge snapping occurs.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DefaultSnapOptions has edge snapping on and the grid off.
func DefaultSnapOptions() SnapOptions {
	return SnapOptions{Edges: true, GridSize: DefaultGridSize, Threshold: DefaultThreshold}
}

// ClampGridSize forces n into [MinGridSize, MaxGridSize]; 0 means default.
func ClampGridSize(n int) int {
	if n == 0 {
		return DefaultGridSize
	}
	if n < MinGridSize {
		return MinGridSize
	}
	if n > MaxGridSize {
		return MaxGridSize
	}
	return n
}

// GuideLine describes an alignment found while snapping.
// Orientation is "vertical" or "horizontal"; Kind is "edge" or "center".
// From and To span both rectangles involved so a preview can draw it.
type GuideLine struct {
	Orientation string  `json:"orientation"`
	Kind        string  `json:"kind"`
	Position    float64 `json:"position"`
	From        Pt      `json:"from"`
	To          Pt      `json:"to"`
}

// SnapResult is the snapped top-left corner plus guides for rendering.
type SnapResult struct {
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Guides []GuideLine `json:"guides,omitempty"`
}

// Snapper snaps a moving item against the other items of a collection.
type Snapper struct {
	Opts SnapOptions
}

// Snap computes the final position for movingID dropped at (x, y) with size
// (w, h). All items except movingID contribute candidate lines.
func (s Snapper) Snap(items []domain.Item, movingID string, x, y, w, h float64) SnapResult {
	anchors := make([]Rect, 0, len(items))
	for _, it := range items {
		if it.ID == movingID {
			continue
		}
		anchors = append(anchors, RectOf(it))
	}
	return SnapRect(R(x, y, w, h), anchors, s.Opts)
}

// candidate is an alignment line of an anchor.
type candidate struct {
	pos    float64
	kind   string
	anchor Rect
}

// SnapRect is the pure form of Snapper.Snap.
//
// Per axis: grid rounding first (when enabled), then the moving left edge is
// tested against every candidate line, then the right edge, then the center.
// The smallest distance not above the threshold wins and ties keep the first
// one found. The result is rounded half up.
func SnapRect(moving Rect, anchors []Rect, opts SnapOptions) SnapResult {
	nx, ny := moving.X, moving.Y
	if opts.Grid {
		g := float64(ClampGridSize(opts.GridSize))
		nx = math.Floor(nx/g+0.5) * g
		ny = math.Floor(ny/g+0.5) * g
	}
	var guides []GuideLine
	if opts.Edges && len(anchors) > 0 {
		threshold := opts.Threshold
		if threshold <= 0 {
			threshold = DefaultThreshold
		}
		xs := make([]candidate, 0, 3*len(anchors))
		ys := make([]candidate, 0, 3*len(anchors))
		for _, a := range anchors {
			xs = append(xs,
				candidate{a.X, "edge", a},
				candidate{a.Right(), "edge", a},
				candidate{a.CenterX(), "center", a})
			ys = append(ys,
				candidate{a.Y, "edge", a},
				candidate{a.Bottom(), "edge", a},
				candidate{a.CenterY(), "center", a})
		}

		var gx, gy *candidate
		nx, gx = snapAxis(nx, moving.W, xs, threshold)
		ny, gy = snapAxis(ny, moving.H, ys, threshold)

		snapped := R(nx, ny, moving.W, moving.H)
		if gx != nil {
			guides = append(guides, guideForVertical(gx.pos, snapped, gx.anchor, gx.kind))
		}
		if gy != nil {
			guides = append(guides, guideForHorizontal(gy.pos, snapped, gy.anchor, gy.kind))
		}
	}
	return SnapResult{X: Round(nx), Y: Round(ny), Guides: guides}
}

// snapAxis returns the snapped start coordinate and the winning line, if any.
func snapAxis(v, size float64, lines []candidate, threshold float64) (float64, *candidate) {
	best, bestDist := v, threshold+1
	var win *candidate
	// start edge, far edge, center
	for _, off := range [...]float64{0, size, size / 2} {
		for i := range lines {
			consider(&best, &bestDist, &win, v, lines[i].pos-off, threshold, &lines[i])
		}
	}
	return best, win
}

func consider(best, bestDist *float64, win **candidate, v, target, threshold float64, c *candidate) {
	d := math.Abs(v - target)
	if d > threshold {
		return
	}
	if d < *bestDist {
		*best = target
		*bestDist = d
		*win = c
	}
}

func guideForVertical(x float64, a Rect, b Rect, kind string) GuideLine {
	minY := min(a.Y, b.Y)
	maxY := max(a.Bottom(), b.Bottom())
	x = FloatRound(x, 3)
	return GuideLine{
		Orientation: "vertical",
		Kind:        kind,
		Position:    x,
		From:        Pt{x, minY},
		To:          Pt{x, maxY},
	}
}

func guideForHorizontal(y float64, a Rect, b Rect, kind string) GuideLine {
	minX := min(a.X, b.X)
	maxX := max(a.Right(), b.Right())
	y = FloatRound(y, 3)
	return GuideLine{
		Orientation: "horizontal",
		Kind:        kind,
		Position:    y,
		From:        Pt{minX, y},
		To:          Pt{maxX, y},
	}
}
