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
	"path/filepath"
	"strings"

	"menuboard/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Formats understood by Batch.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
	FormatSVG = "svg"
)

// BatchOptions controls a multi-format export of one board.
//
// Output layout below OutDir: board.pdf, board.svg and png/board-page-<n>.png.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // empty means preset defaults
	OutDir  string
	Options Options
}

// Batch runs the exporters of the preset and returns the written files.
func Batch(ctx context.Context, l domain.Layout, opt BatchOptions) ([]string, error) {
	if strings.TrimSpace(opt.OutDir) == "" {
		return nil, fmt.Errorf("%w: output directory is required", domain.ErrValidation)
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = PresetFormats(opt.Preset)
	}
	o := opt.Options
	if o.Scale == 0 {
		o.Scale = presetScale(opt.Preset)
	}
	var out []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FormatPDF:
			path := filepath.Join(opt.OutDir, "board.pdf")
			if err := ExportPDF(ctx, l, path, o); err != nil {
				return out, fmt.Errorf("pdf: %w", err)
			}
			out = append(out, path)
		case FormatSVG:
			path := filepath.Join(opt.OutDir, "board.svg")
			if err := ExportSVG(ctx, l, path, o); err != nil {
				return out, fmt.Errorf("svg: %w", err)
			}
			out = append(out, path)
		case FormatPNG:
			files, err := ExportPNGPages(ctx, l, filepath.Join(opt.OutDir, "png"), o)
			out = append(out, files...)
			if err != nil {
				return out, fmt.Errorf("png: %w", err)
			}
		default:
			return out, fmt.Errorf("%w: unknown format %q", domain.ErrValidation, f)
		}
	}
	return out, nil
}

// PresetFormats lists the formats a preset exports by default.
func PresetFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{FormatPNG, FormatSVG}
	case PresetPrint:
		return []string{FormatPDF}
	default:
		return []string{FormatPDF}
	}
}

// presetScale keeps web rasters small; print keeps full canvas resolution.
func presetScale(p PresetName) float64 {
	if p == PresetWeb {
		return 0.5
	}
	return 1
}
