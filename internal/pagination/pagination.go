/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagination splits a tall board into fixed-height pages and maps
// page numbers to scroll offsets.
package pagination

import (
	"math"

	"menuboard/internal/domain"
)

// Config holds the page geometry in canvas pixels.
type Config struct {
	PageHeight int `json:"pageHeight" yaml:"page_height"`
	Gap        int `json:"gap" yaml:"gap"`
	Padding    int `json:"padding" yaml:"padding"`
	// MinHeight is the smallest content height; 0 means one page.
	MinHeight  int `json:"minHeight" yaml:"min_height"`
	BoardWidth int `json:"boardWidth" yaml:"board_width"`
}

// Defaults returns the standard 1920 wide board with 2200px pages.
func Defaults() Config {
	return Config{PageHeight: 2200, Gap: 40, BoardWidth: 1920}
}

func (c Config) normalized() Config {
	d := Defaults()
	if c.PageHeight <= 0 {
		c.PageHeight = d.PageHeight
	}
	if c.Gap < 0 {
		c.Gap = 0
	}
	if c.Padding < 0 {
		c.Padding = 0
	}
	if c.MinHeight <= 0 {
		c.MinHeight = c.PageHeight
	}
	if c.BoardWidth <= 0 {
		c.BoardWidth = d.BoardWidth
	}
	return c
}

// Metrics is the derived page layout of a collection.
type Metrics struct {
	ContentHeight int `json:"contentHeight"`
	TotalPages    int `json:"totalPages"`
	ScrollHeight  int `json:"scrollHeight"`
	PageHeight    int `json:"pageHeight"`
	Gap           int `json:"gap"`
	BoardWidth    int `json:"boardWidth"`
}

// Measure computes content height, page count and scroll extent.
func Measure(items []domain.Item, cfg Config) Metrics {
	cfg = cfg.normalized()
	bottom := 0
	for _, it := range items {
		if b := it.Bottom(); b > bottom {
			bottom = b
		}
	}
	content := max(cfg.MinHeight, bottom+cfg.Padding)
	pages := max(1, int(math.Ceil(float64(content)/float64(cfg.PageHeight))))
	scroll := max(content, cfg.PageHeight)
	if pages > 1 {
		scroll = max(content, pages*cfg.PageHeight+(pages-1)*cfg.Gap)
	}
	return Metrics{
		ContentHeight: content,
		TotalPages:    pages,
		ScrollHeight:  scroll,
		PageHeight:    cfg.PageHeight,
		Gap:           cfg.Gap,
		BoardWidth:    cfg.BoardWidth,
	}
}

// Clamp forces page into [1, TotalPages].
func (m Metrics) Clamp(page int) int {
	if page < 1 {
		return 1
	}
	if page > m.TotalPages {
		return m.TotalPages
	}
	return page
}

// Offset is the scroll position of the top of page (after clamping).
func (m Metrics) Offset(page int) int {
	return (m.Clamp(page) - 1) * (m.PageHeight + m.Gap)
}

// PageTop is the canvas y of the first pixel shown on page. Item coordinates
// are continuous; the gaps exist only in the scrolled view.
func (m Metrics) PageTop(page int) int {
	return (m.Clamp(page) - 1) * m.PageHeight
}

// Pager tracks the current page of a board as its content changes.
type Pager struct {
	cfg     Config
	metrics Metrics
	current int
}

// NewPager starts on page 1 of an empty board.
func NewPager(cfg Config) *Pager {
	p := &Pager{cfg: cfg, current: 1}
	p.metrics = Measure(nil, cfg)
	return p
}

// Recompute remeasures after items changed. A current page beyond the new
// page count is clamped back into range.
func (p *Pager) Recompute(items []domain.Item) Metrics {
	p.metrics = Measure(items, p.cfg)
	p.current = p.metrics.Clamp(p.current)
	return p.metrics
}

// Goto moves to page n (clamped) and returns the page and its scroll offset.
func (p *Pager) Goto(n int) (page, offset int) {
	p.current = p.metrics.Clamp(n)
	return p.current, p.metrics.Offset(p.current)
}

// Next and Prev step one page and clamp at the ends.
func (p *Pager) Next() (page, offset int) { return p.Goto(p.current + 1) }
func (p *Pager) Prev() (page, offset int) { return p.Goto(p.current - 1) }

func (p *Pager) Current() int     { return p.current }
func (p *Pager) Metrics() Metrics { return p.metrics }
