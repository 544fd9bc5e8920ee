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
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"menuboard/internal/domain"
	applog "menuboard/internal/log"
	"menuboard/internal/textlayout"
)

// pxToPt maps CSS pixels (96 dpi) onto PDF points (72 dpi).
const pxToPt = 0.75

// pdfFamily is the registered name of a library family inside the document.
func pdfFamily(family string) string { return "menu-" + family }

// WritePDF writes one PDF page per selected board page. Text uses the Go
// fonts embedded as UTF-8 subsets.
func WritePDF(ctx context.Context, w io.Writer, l domain.Layout, opt Options) error {
	opt = opt.withDefaults()
	p := newPlan(l, opt)
	m := p.metrics
	log := applog.WithOperation(applog.WithComponent("export"), "pdf")

	pageW, pageH := float64(m.BoardWidth)*pxToPt, float64(m.PageHeight)*pxToPt
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Menu board", true)
	pdf.SetCreator("menuboard", true)

	for _, family := range []string{textlayout.FamilySans, textlayout.FamilyMono} {
		for _, st := range []struct {
			style        string
			bold, italic bool
		}{{"", false, false}, {"B", true, false}, {"I", false, true}, {"BI", true, true}} {
			if data, ok := opt.Fonts.Bytes(textlayout.FontSpec{Family: family, Bold: st.bold, Italic: st.italic}); ok {
				pdf.AddUTFFontFromBytes(pdfFamily(family), st.style, data)
			}
		}
	}
	fonts := &textlayout.OTProvider{Lib: opt.Fonts}

	var bg *pdfImage
	if len(opt.Background) > 0 {
		if img, err := registerImage(pdf, "background", opt.Background); err != nil {
			log.Warn("background skipped", slog.Any("err", err))
		} else {
			bg = img
		}
	}
	registered := map[string]*pdfImage{}
	failed := map[string]bool{}

	for _, page := range p.pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageW, Ht: pageH})
		fill := parseColor(opt.BackgroundColor)
		pdf.SetFillColor(int(fill.R), int(fill.G), int(fill.B))
		pdf.Rect(0, 0, pageW, pageH, "F")
		if bg != nil {
			fb := fitBox(box{W: pageW, H: pageH}, bg.w, bg.h, domain.FitCover)
			pdf.ClipRect(0, 0, pageW, pageH, false)
			pdf.ImageOptions(bg.name, fb.X, fb.Y, fb.W, fb.H, false, gofpdf.ImageOptions{}, 0, "")
			pdf.ClipEnd()
		}

		top := float64(m.PageTop(page))
		for _, it := range p.onPage(page) {
			frame := box{X: float64(it.X) * pxToPt, Y: (float64(it.Y) - top) * pxToPt, W: float64(it.W) * pxToPt, H: float64(it.H) * pxToPt}
			switch it.Type {
			case domain.ItemImage:
				if failed[it.Src] {
					continue
				}
				img, ok := registered[it.Src]
				if !ok {
					data, err := imageBytes(ctx, opt, it.Src)
					if err == nil {
						img, err = registerImage(pdf, fmt.Sprintf("img-%d", len(registered)), data)
					}
					if err != nil {
						log.Warn("image skipped", slog.String("item", it.ID), slog.Any("err", err))
						failed[it.Src] = true
						continue
					}
					registered[it.Src] = img
				}
				drawPDFImage(pdf, img, it, frame)
			case domain.ItemText:
				drawPDFText(pdf, it, frame, fonts)
			}
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes the board to path.
func ExportPDF(ctx context.Context, l domain.Layout, path string, opt Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	var buf bytes.Buffer
	if err := WritePDF(ctx, &buf, l, opt); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pdfImage is an image registered with the document under name.
type pdfImage struct {
	name string
	w, h float64
}

// registerImage decodes data and registers it as PNG, so every format the
// raster exporter reads also works here.
func registerImage(pdf *gofpdf.Fpdf, name string, data []byte) (*pdfImage, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("register image %s: empty", name)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if pdf.Err() {
		return nil, fmt.Errorf("register image: %w", pdf.Error())
	}
	return &pdfImage{name: name, w: float64(b.Dx()), h: float64(b.Dy())}, nil
}

func drawPDFImage(pdf *gofpdf.Fpdf, img *pdfImage, it domain.Item, frame box) {
	switch it.Shape {
	case domain.ShapeCircle:
		pdf.ClipEllipse(frame.X+frame.W/2, frame.Y+frame.H/2, frame.W/2, frame.H/2, false)
	case domain.ShapeRounded:
		pdf.ClipRoundedRect(frame.X, frame.Y, frame.W, frame.H, cornerRadius(float64(it.Radius)*pxToPt, frame.W, frame.H), false)
	case domain.ShapeTriangle, domain.ShapeDiamond:
		var pts []gofpdf.PointType
		for _, p := range shapePolygon(it.Shape, frame) {
			pts = append(pts, gofpdf.PointType{X: p.X, Y: p.Y})
		}
		pdf.ClipPolygon(pts, false)
	default:
		pdf.ClipRect(frame.X, frame.Y, frame.W, frame.H, false)
	}
	pdf.SetAlpha(it.Opacity, "Normal")
	fb := fitBox(frame, img.w, img.h, it.Fit)
	pdf.ImageOptions(img.name, fb.X, fb.Y, fb.W, fb.H, false, gofpdf.ImageOptions{}, 0, "")
	pdf.SetAlpha(1, "Normal")
	pdf.ClipEnd()
}

func drawPDFText(pdf *gofpdf.Fpdf, it domain.Item, frame box, fonts *textlayout.OTProvider) {
	// measure in canvas pixels, then convert
	spec := fontSpec(it, 1)
	_, met := fonts.Resolve(spec)
	tb := textlayout.NewWordWrap(fonts).Layout(it.Text, spec, float32(it.W))
	style := ""
	if it.Bold {
		style += "B"
	}
	if it.Italic {
		style += "I"
	}
	c := parseColor(it.Color)
	pdf.ClipRect(frame.X, frame.Y, frame.W, frame.H, false)
	pdf.SetAlpha(it.Opacity, "Normal")
	pdf.SetFont(pdfFamily(spec.Family), style, float64(it.Size)*pxToPt)
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
	y := frame.Y + float64(met.Ascent)*pxToPt
	for _, ln := range tb.Lines {
		x := lineX(it.Align, frame.X, frame.W, float64(ln.Width)*pxToPt)
		pdf.Text(x, y, ln.Text)
		y += float64(met.LineHeight()) * pxToPt
	}
	pdf.SetAlpha(1, "Normal")
	pdf.ClipEnd()
}
