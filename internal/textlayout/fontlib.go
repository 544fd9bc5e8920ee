/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Logical families offered by DefaultLibrary.
const (
	FamilySans = "sans"
	FamilyMono = "mono"
)

// FontLibrary stores parsed OpenType fonts mapped by family, weight and italic.
// It keeps the raw bytes too, for exporters that embed the font file.
type FontLibrary struct {
	fonts map[fontKey]*opentype.Font
	raw   map[fontKey][]byte
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: make(map[fontKey]*opentype.Font), raw: make(map[fontKey][]byte)}
}

var (
	defaultOnce sync.Once
	defaultLib  *FontLibrary
)

// DefaultLibrary holds the Go font family as FamilySans and FamilyMono in all
// four styles. It is parsed once per process.
func DefaultLibrary() *FontLibrary {
	defaultOnce.Do(func() {
		lib := NewFontLibrary()
		for _, f := range []struct {
			family       string
			bold, italic bool
			data         []byte
		}{
			{FamilySans, false, false, goregular.TTF},
			{FamilySans, true, false, gobold.TTF},
			{FamilySans, false, true, goitalic.TTF},
			{FamilySans, true, true, gobolditalic.TTF},
			{FamilyMono, false, false, gomono.TTF},
			{FamilyMono, true, false, gomonobold.TTF},
			{FamilyMono, false, true, gomonoitalic.TTF},
			{FamilyMono, true, true, gomonobolditalic.TTF},
		} {
			// bundled fonts always parse
			_ = lib.Add(f.family, f.bold, f.italic, f.data)
		}
		defaultLib = lib
	})
	return defaultLib
}

// Add parses data and registers it under family/bold/italic.
func (fl *FontLibrary) Add(family string, bold, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	k := fontKey{family: family, bold: bold, italic: italic}
	fl.fonts[k] = f
	fl.raw[k] = data
	return nil
}

// Bytes returns the font file registered for spec, after family fallback.
func (fl *FontLibrary) Bytes(spec FontSpec) ([]byte, bool) {
	k, ok := fl.lookup(spec)
	if !ok {
		return nil, false
	}
	return fl.raw[k], true
}

func (fl *FontLibrary) lookup(spec FontSpec) (fontKey, bool) {
	if fl == nil || len(fl.fonts) == 0 {
		return fontKey{}, false
	}
	k := fontKey{family: spec.Family, bold: spec.Bold, italic: spec.Italic}
	if _, ok := fl.fonts[k]; ok {
		return k, true
	}
	// same family in any style, then the sans family
	for cand := range fl.fonts {
		if cand.family == spec.Family {
			return cand, true
		}
	}
	k.family = FamilySans
	if _, ok := fl.fonts[k]; ok {
		return k, true
	}
	for cand := range fl.fonts {
		return cand, true
	}
	return fontKey{}, false
}

// FamilyFor maps a CSS font stack onto a library family.
func FamilyFor(stack string) string {
	if strings.Contains(strings.ToLower(stack), "mono") {
		return FamilyMono
	}
	return FamilySans
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another
// Provider. Faces are cached per spec; the provider is safe for concurrent use
// but the returned faces are not.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider

	mu    sync.Mutex
	faces map[FontSpec]resolved
}

type resolved struct {
	face font.Face
	m    Metrics
}

func (p *OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePx <= 0 {
		spec.SizePx = 12
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.faces[spec]; ok {
		return r.face, r.m
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if k, ok := p.Lib.lookup(spec); ok {
		face, err := opentype.NewFace(p.Lib.fonts[k], &opentype.FaceOptions{Size: float64(spec.SizePx), DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			m := face.Metrics()
			r := resolved{face: face, m: Metrics{
				Ascent:  float32(m.Ascent.Round()),
				Descent: float32(m.Descent.Round()),
				LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
			}}
			if p.faces == nil {
				p.faces = make(map[FontSpec]resolved)
			}
			p.faces[spec] = r
			return r.face, r.m
		}
	}
	if p.Fallback != nil {
		return p.Fallback.Resolve(spec)
	}
	return BasicProvider{}.Resolve(spec)
}
