/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a menu board layout page by page as SVG, PNG or PDF.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	"menuboard/internal/pagination"
	"menuboard/internal/textlayout"
)

// ImageSource resolves an image item's src to encoded image bytes. Data URLs
// are decoded without it.
type ImageSource func(ctx context.Context, src string) ([]byte, error)

// Options controls all exporters.
type Options struct {
	Pages pagination.Config
	// PageNumbers selects 1-based pages; empty exports every page.
	PageNumbers []int
	Images      ImageSource
	// Background is an encoded image covering each page.
	Background []byte
	// BackgroundColor fills pages without (or under) the background image.
	BackgroundColor string
	// Scale multiplies the pixel size of raster output and of the SVG width/height attributes.
	Scale float64
	Fonts *textlayout.FontLibrary
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.BackgroundColor == "" {
		o.BackgroundColor = "#000000"
	}
	if o.Fonts == nil {
		o.Fonts = textlayout.DefaultLibrary()
	}
	return o
}

// plan is the page geometry of one export.
type plan struct {
	metrics pagination.Metrics
	pages   []int
	items   []domain.Item
}

// newPlan measures l and picks the pages to render. In template mode the
// items are not shown, only the background.
func newPlan(l domain.Layout, o Options) plan {
	items := canvas.Items(l.Items).PaintOrder()
	m := pagination.Measure(items, o.Pages)
	if l.Mode == domain.ModeTemplate {
		items = nil
	}
	return plan{metrics: m, pages: selectPages(m.TotalPages, o.PageNumbers), items: items}
}

// onPage returns the items overlapping page, in paint order.
func (p plan) onPage(page int) []domain.Item {
	top := p.metrics.PageTop(page)
	bottom := top + p.metrics.PageHeight
	var out []domain.Item
	for _, it := range p.items {
		if it.Y < bottom && it.Bottom() > top {
			out = append(out, it)
		}
	}
	return out
}

// selectPages returns the valid 1-based pages of specific in ascending order
// without duplicates, or every page when specific is empty.
func selectPages(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	seen := map[int]bool{}
	var out []int
	for _, p := range specific {
		if p >= 1 && p <= total && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

var errNoImageSource = errors.New("no image source configured")

// imageBytes returns the encoded bytes behind src.
func imageBytes(ctx context.Context, o Options, src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:") {
		return decodeDataURL(src)
	}
	if o.Images == nil {
		return nil, fmt.Errorf("image %q: %w", src, errNoImageSource)
	}
	return o.Images(ctx, src)
}

// decodeDataURL supports base64 and percent-encoded payloads.
func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URL payload: %w", err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URL payload: %w", err)
	}
	return []byte(s), nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// parseColor reads #rgb or #rrggbb; anything else is white.
func parseColor(hex string) color.RGBA {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// box is a rectangle in floating point canvas units.
type box struct{ X, Y, W, H float64 }

// fitBox places an iw x ih image into frame. contain keeps the whole image
// visible; cover fills the frame and overflows on one axis.
func fitBox(frame box, iw, ih float64, fit domain.Fit) box {
	if iw <= 0 || ih <= 0 {
		return frame
	}
	sx, sy := frame.W/iw, frame.H/ih
	s := math.Min(sx, sy)
	if fit == domain.FitCover {
		s = math.Max(sx, sy)
	}
	w, h := iw*s, ih*s
	return box{X: frame.X + (frame.W-w)/2, Y: frame.Y + (frame.H-h)/2, W: w, H: h}
}

type pt struct{ X, Y float64 }

// shapePolygon returns the outline of the polygonal shapes; other shapes return nil.
func shapePolygon(s domain.Shape, b box) []pt {
	switch s {
	case domain.ShapeTriangle:
		return []pt{{b.X + b.W/2, b.Y}, {b.X + b.W, b.Y + b.H}, {b.X, b.Y + b.H}}
	case domain.ShapeDiamond:
		return []pt{{b.X + b.W/2, b.Y}, {b.X + b.W, b.Y + b.H/2}, {b.X + b.W/2, b.Y + b.H}, {b.X, b.Y + b.H/2}}
	}
	return nil
}

// cornerRadius clamps r so opposite corners never overlap.
func cornerRadius(r, w, h float64) float64 {
	return math.Max(0, math.Min(r, math.Min(w, h)/2))
}

// insideShape reports whether (x, y) lies inside the shape drawn in b.
func insideShape(s domain.Shape, radius float64, b box, x, y float64) bool {
	if x < b.X || y < b.Y || x > b.X+b.W || y > b.Y+b.H {
		return false
	}
	switch s {
	case domain.ShapeCircle:
		rx, ry := b.W/2, b.H/2
		dx, dy := (x-b.X-rx)/rx, (y-b.Y-ry)/ry
		return dx*dx+dy*dy <= 1
	case domain.ShapeRounded:
		r := cornerRadius(radius, b.W, b.H)
		cx := math.Max(b.X+r, math.Min(x, b.X+b.W-r))
		cy := math.Max(b.Y+r, math.Min(y, b.Y+b.H-r))
		dx, dy := x-cx, y-cy
		return dx*dx+dy*dy <= r*r
	case domain.ShapeTriangle, domain.ShapeDiamond:
		return insidePolygon(shapePolygon(s, b), x, y)
	}
	return true
}

func insidePolygon(poly []pt, x, y float64) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, c := poly[i], poly[j]
		if (a.Y > y) != (c.Y > y) && x < (c.X-a.X)*(y-a.Y)/(c.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// fontSpec maps a text item onto the font library at scale s.
func fontSpec(it domain.Item, s float64) textlayout.FontSpec {
	return textlayout.FontSpec{
		Family: textlayout.FamilyFor(it.FontFamily),
		SizePx: float32(float64(it.Size) * s),
		Bold:   it.Bold,
		Italic: it.Italic,
	}
}

// lineX is the left edge of a line of width lw inside a frame at x with width w.
func lineX(a domain.Align, x, w, lw float64) float64 {
	switch a {
	case domain.AlignCenter:
		return x + (w-lw)/2
	case domain.AlignRight:
		return x + w - lw
	}
	return x
}
