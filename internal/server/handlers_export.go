/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"menuboard/internal/export"
	"menuboard/internal/storage"
	"menuboard/internal/telemetry"
)

// parsePages reads "1,3" style page lists.
func parsePages(q string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(q, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, badRequest(errors.New("pages must be comma separated numbers"))
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Server) exportBoard(c fiber.Ctx) error {
	ctx := c.Context()
	b := s.board(c)
	opt := export.Options{Pages: s.deps.Boards.PageConfig(), Images: b.Image}
	bg, err := b.Background(ctx)
	switch {
	case err == nil:
		opt.Background = bg
	case !errors.Is(err, storage.ErrNotFound):
		s.l.Warn("background unavailable for export", slog.Any("err", err))
	}
	if q := c.Query("scale"); q != "" {
		f, err := strconv.ParseFloat(q, 64)
		if err != nil || f <= 0 {
			return badRequest(errors.New("scale must be a positive number"))
		}
		opt.Scale = f
	}
	pages, err := parsePages(c.Query("pages"))
	if err != nil {
		return err
	}
	opt.PageNumbers = pages

	l := b.Layout()
	var buf bytes.Buffer
	format := strings.ToLower(c.Params("format"))
	switch format {
	case export.FormatSVG:
		err = export.WriteSVG(ctx, &buf, l, opt)
		c.Set(fiber.HeaderContentType, "image/svg+xml")
	case export.FormatPNG:
		page := 1
		if len(pages) > 0 {
			page = pages[0]
		}
		err = export.WritePNG(ctx, &buf, l, page, opt)
		c.Set(fiber.HeaderContentType, "image/png")
	case export.FormatPDF:
		err = export.WritePDF(ctx, &buf, l, opt)
		c.Set(fiber.HeaderContentType, "application/pdf")
	default:
		return badRequest(errors.New("unknown export format " + strconv.Quote(format)))
	}
	if err != nil {
		return err
	}
	telemetry.Event("export", map[string]any{"format": format, "items": len(l.Items)})
	return c.Send(buf.Bytes())
}
