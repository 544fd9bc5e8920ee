/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"menuboard/internal/domain"
	applog "menuboard/internal/log"
	"menuboard/internal/textlayout"
)

// WriteSVG writes the selected pages as one SVG document spanning the full
// scroll height, pages separated by the configured gap. Coordinates are
// canvas pixels; Options.Scale only affects the width/height attributes.
func WriteSVG(ctx context.Context, w io.Writer, l domain.Layout, opt Options) error {
	opt = opt.withDefaults()
	p := newPlan(l, opt)
	m := p.metrics
	fonts := &textlayout.OTProvider{Lib: opt.Fonts}
	log := applog.WithOperation(applog.WithComponent("export"), "svg")

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%gpx\" height=\"%gpx\" viewBox=\"0 0 %d %d\">\n",
		math.Round(float64(m.BoardWidth)*opt.Scale), math.Round(float64(m.ScrollHeight)*opt.Scale), m.BoardWidth, m.ScrollHeight)

	// one clip path per page and per shaped image, all in canvas coordinates
	wf("  <defs>\n")
	for _, page := range p.pages {
		wf("    <clipPath id=\"page-%d\"><rect x=\"0\" y=\"%d\" width=\"%d\" height=\"%d\"/></clipPath>\n", page, m.PageTop(page), m.BoardWidth, m.PageHeight)
	}
	for i, it := range p.items {
		if it.Type == domain.ItemImage {
			wf("    <clipPath id=\"item-%d\">%s</clipPath>\n", i, shapeSVG(it))
		}
	}
	wf("  </defs>\n")

	var bgHref string
	if len(opt.Background) > 0 {
		bgHref = dataURL(opt.Background)
	}
	index := make(map[string]int, len(p.items))
	for i, it := range p.items {
		index[it.ID] = i
	}
	hrefs := map[string]string{}

	for _, page := range p.pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		top := m.PageTop(page)
		wf("  <g transform=\"translate(0 %d)\" clip-path=\"url(#page-%d)\">\n", m.Offset(page)-top, page)
		wf("    <rect x=\"0\" y=\"%d\" width=\"%d\" height=\"%d\" fill=\"%s\"/>\n", top, m.BoardWidth, m.PageHeight, svgColor(opt.BackgroundColor))
		if bgHref != "" {
			wf("    <image href=\"%s\" x=\"0\" y=\"%d\" width=\"%d\" height=\"%d\" preserveAspectRatio=\"xMidYMid slice\"/>\n", bgHref, top, m.BoardWidth, m.PageHeight)
		}
		for _, it := range p.onPage(page) {
			switch it.Type {
			case domain.ItemImage:
				href, ok := hrefs[it.Src]
				if !ok {
					data, err := imageBytes(ctx, opt, it.Src)
					if err != nil {
						log.Warn("image skipped", slog.String("item", it.ID), slog.Any("err", err))
					} else {
						href = dataURL(data)
					}
					hrefs[it.Src] = href
				}
				if href == "" {
					continue
				}
				wf("    <image href=\"%s\" x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" preserveAspectRatio=\"%s\" clip-path=\"url(#item-%d)\" opacity=\"%g\"/>\n",
					href, it.X, it.Y, it.W, it.H, aspect(it.Fit), index[it.ID], it.Opacity)
			case domain.ItemText:
				wf("%s", textSVG(it, fonts))
			}
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// ExportSVG writes the board to path.
func ExportSVG(ctx context.Context, l domain.Layout, path string, opt Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteSVG(ctx, &buf, l, opt); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func shapeSVG(it domain.Item) string {
	b := box{X: float64(it.X), Y: float64(it.Y), W: float64(it.W), H: float64(it.H)}
	switch it.Shape {
	case domain.ShapeCircle:
		return fmt.Sprintf("<ellipse cx=\"%g\" cy=\"%g\" rx=\"%g\" ry=\"%g\"/>", b.X+b.W/2, b.Y+b.H/2, b.W/2, b.H/2)
	case domain.ShapeRounded:
		r := cornerRadius(float64(it.Radius), b.W, b.H)
		return fmt.Sprintf("<rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" ry=\"%g\"/>", b.X, b.Y, b.W, b.H, r, r)
	case domain.ShapeTriangle, domain.ShapeDiamond:
		pts := make([]string, 0, 4)
		for _, p := range shapePolygon(it.Shape, b) {
			pts = append(pts, fmt.Sprintf("%g,%g", p.X, p.Y))
		}
		return fmt.Sprintf("<polygon points=\"%s\"/>", strings.Join(pts, " "))
	}
	return fmt.Sprintf("<rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\"/>", b.X, b.Y, b.W, b.H)
}

func textSVG(it domain.Item, fonts *textlayout.OTProvider) string {
	spec := fontSpec(it, 1)
	_, met := fonts.Resolve(spec)
	tb := textlayout.NewWordWrap(fonts).Layout(it.Text, spec, float32(it.W))
	weight, style := "normal", "normal"
	if it.Bold {
		weight = "bold"
	}
	if it.Italic {
		style = "italic"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "    <text font-family=\"%s\" font-size=\"%d\" font-weight=\"%s\" font-style=\"%s\" fill=\"%s\" opacity=\"%g\">\n",
		escAttr(it.FontFamily), it.Size, weight, style, svgColor(it.Color), it.Opacity)
	y := float64(it.Y) + float64(met.Ascent)
	for _, ln := range tb.Lines {
		x := lineX(it.Align, float64(it.X), float64(it.W), float64(ln.Width))
		fmt.Fprintf(&sb, "      <tspan x=\"%g\" y=\"%g\">%s</tspan>\n", math.Round(x*100)/100, y, escText(ln.Text))
		y += float64(met.LineHeight())
	}
	sb.WriteString("    </text>\n")
	return sb.String()
}

func aspect(f domain.Fit) string {
	if f == domain.FitCover {
		return "xMidYMid slice"
	}
	return "xMidYMid meet"
}

func dataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func svgColor(hex string) string {
	c := parseColor(hex)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func escAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "\"", "&quot;", "<", "&lt;", ">", "&gt;", "\n", " ", "\r", "")
	return r.Replace(s)
}

func escText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
