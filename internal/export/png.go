/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"menuboard/internal/domain"
	applog "menuboard/internal/log"
	"menuboard/internal/textlayout"
)

// RenderPage rasterizes one board page. The image is BoardWidth x PageHeight
// canvas pixels times Options.Scale.
func RenderPage(ctx context.Context, l domain.Layout, page int, opt Options) (*image.RGBA, error) {
	opt = opt.withDefaults()
	p := newPlan(l, opt)
	page = p.metrics.Clamp(page)
	return renderPage(ctx, p, page, opt, &textlayout.OTProvider{Lib: opt.Fonts})
}

func renderPage(ctx context.Context, p plan, page int, opt Options, fonts *textlayout.OTProvider) (*image.RGBA, error) {
	s := opt.Scale
	pixW := int(math.Round(float64(p.metrics.BoardWidth) * s))
	pixH := int(math.Round(float64(p.metrics.PageHeight) * s))
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), image.NewUniform(parseColor(opt.BackgroundColor)), image.Point{}, draw.Src)

	l := applog.WithOperation(applog.WithComponent("export"), "png").With(slog.Int("page", page))
	if len(opt.Background) > 0 {
		if bg, err := decodeImage(opt.Background); err != nil {
			l.Warn("background skipped", slog.Any("err", err))
		} else {
			frame := box{W: float64(pixW), H: float64(pixH)}
			drawImage(img, bg, frame, domain.FitCover, nil)
		}
	}

	top := float64(p.metrics.PageTop(page))
	for _, it := range p.onPage(page) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame := box{X: float64(it.X) * s, Y: (float64(it.Y) - top) * s, W: float64(it.W) * s, H: float64(it.H) * s}
		switch it.Type {
		case domain.ItemImage:
			data, err := imageBytes(ctx, opt, it.Src)
			if err == nil {
				var src image.Image
				if src, err = decodeImage(data); err == nil {
					mask := &shapeMask{frame: frame, shape: it.Shape, radius: float64(it.Radius) * s, alpha: uint8(math.Round(it.Opacity * 255))}
					drawImage(img, src, frame, it.Fit, mask)
				}
			}
			if err != nil {
				l.Warn("image skipped", slog.String("item", it.ID), slog.Any("err", err))
			}
		case domain.ItemText:
			drawText(img, it, frame, s, fonts)
		}
	}
	return img, nil
}

// drawImage scales src into frame using fit; mask clips to the frame shape.
func drawImage(dst *image.RGBA, src image.Image, frame box, fit domain.Fit, mask *shapeMask) {
	sb := src.Bounds()
	fb := fitBox(frame, float64(sb.Dx()), float64(sb.Dy()), fit)
	dr := image.Rect(int(math.Round(fb.X)), int(math.Round(fb.Y)), int(math.Round(fb.X+fb.W)), int(math.Round(fb.Y+fb.H)))
	var opts *draw.Options
	if mask != nil {
		opts = &draw.Options{DstMask: mask}
	} else if fit == domain.FitCover {
		// cover overflows the frame; clip to it
		opts = &draw.Options{DstMask: &shapeMask{frame: frame, shape: domain.ShapeRect, alpha: 255}}
	}
	draw.ApproxBiLinear.Scale(dst, dr, src, sb, draw.Over, opts)
}

// drawText sets the item's lines inside frame, clipped to it.
func drawText(dst *image.RGBA, it domain.Item, frame box, s float64, fonts *textlayout.OTProvider) {
	clip := image.Rect(int(math.Floor(frame.X)), int(math.Floor(frame.Y)), int(math.Ceil(frame.X+frame.W)), int(math.Ceil(frame.Y+frame.H))).Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	sub, ok := dst.SubImage(clip).(*image.RGBA)
	if !ok {
		return
	}
	spec := fontSpec(it, s)
	face, met := fonts.Resolve(spec)
	tb := textlayout.NewWordWrap(fonts).Layout(it.Text, spec, float32(frame.W))
	c := parseColor(it.Color)
	c.A = uint8(math.Round(it.Opacity * 255))
	d := &font.Drawer{Dst: sub, Src: image.NewUniform(color.NRGBA(c)), Face: face}
	y := frame.Y + float64(met.Ascent)
	for _, ln := range tb.Lines {
		x := lineX(it.Align, frame.X, frame.W, float64(ln.Width))
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
		d.DrawString(ln.Text)
		y += float64(met.LineHeight())
	}
}

// shapeMask is an alpha mask covering frame in the image shape, scaled by
// the item opacity. It is indexed in destination pixel coordinates.
type shapeMask struct {
	frame  box
	shape  domain.Shape
	radius float64
	alpha  uint8
}

func (m *shapeMask) ColorModel() color.Model { return color.AlphaModel }

func (m *shapeMask) Bounds() image.Rectangle {
	return image.Rect(int(math.Floor(m.frame.X)), int(math.Floor(m.frame.Y)), int(math.Ceil(m.frame.X+m.frame.W)), int(math.Ceil(m.frame.Y+m.frame.H)))
}

func (m *shapeMask) At(x, y int) color.Color {
	if insideShape(m.shape, m.radius, m.frame, float64(x)+0.5, float64(y)+0.5) {
		return color.Alpha{A: m.alpha}
	}
	return color.Alpha{}
}

// WritePNG encodes one page as PNG.
func WritePNG(ctx context.Context, w io.Writer, l domain.Layout, page int, opt Options) error {
	img, err := RenderPage(ctx, l, page, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNGPages writes board-page-<n>.png for every selected page into outDir
// and returns the written paths.
func ExportPNGPages(ctx context.Context, l domain.Layout, outDir string, opt Options) ([]string, error) {
	opt = opt.withDefaults()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	p := newPlan(l, opt)
	fonts := &textlayout.OTProvider{Lib: opt.Fonts}
	var out []string
	for _, page := range p.pages {
		img, err := renderPage(ctx, p, page, opt, fonts)
		if err != nil {
			return out, err
		}
		name := filepath.Join(outDir, fmt.Sprintf("board-page-%d.png", page))
		f, err := os.Create(name)
		if err != nil {
			return out, fmt.Errorf("create png: %w", err)
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return out, fmt.Errorf("encode png: %w", err)
		}
		if err := f.Close(); err != nil {
			return out, fmt.Errorf("close png: %w", err)
		}
		out = append(out, name)
	}
	return out, nil
}
