/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"menuboard/internal/board"
	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	"menuboard/internal/geometry"
	"menuboard/internal/pagination"
)

// boardView is the state a client needs to render the board after any call.
type boardView struct {
	Layout   domain.Layout      `json:"layout"`
	Editor   canvas.Mode        `json:"editor"`
	Dirty    bool               `json:"dirty"`
	Notice   string             `json:"notice,omitempty"`
	Selected []string           `json:"selected"`
	Pages    pagination.Metrics `json:"pages"`
	Page     int                `json:"page"`
	Shown    bool               `json:"shown"`

	Created  []string             `json:"created,omitempty"`
	Guides   []geometry.GuideLine `json:"guides,omitempty"`
	Consumed *bool                `json:"consumed,omitempty"`
	Changed  *bool                `json:"changed,omitempty"`
}

func (s *Server) board(c fiber.Ctx) *board.Board {
	b := s.deps.Boards.Open(c.Context(), currentUser(c))
	c.SetContext(b.Context(c.Context()))
	return b
}

func (s *Server) view(c fiber.Ctx, b *board.Board) boardView {
	var v boardView
	_ = b.Edit(func(e *canvas.Editor) error {
		v.Editor, v.Dirty, v.Selected = e.Mode(), e.Dirty(), e.Selected()
		return nil
	})
	if v.Selected == nil {
		v.Selected = []string{}
	}
	if v.Dirty {
		v.Notice = s.t(c, "editor.not_saved")
	}
	v.Layout = b.Layout()
	v.Pages = b.Pages()
	v.Page = b.CurrentPage()
	v.Shown = b.EditButtonShown()
	return v
}

func (s *Server) revealTap(c fiber.Ctx) error {
	b := s.board(c)
	b.Tap()
	return c.JSON(s.view(c, b))
}

func (s *Server) revealPressStart(c fiber.Ctx) error {
	b := s.board(c)
	b.PressStart()
	return c.JSON(s.view(c, b))
}

func (s *Server) revealPressEnd(c fiber.Ctx) error {
	b := s.board(c)
	b.PressEnd()
	return c.JSON(s.view(c, b))
}

func (s *Server) getBoard(c fiber.Ctx) error { return c.JSON(s.view(c, s.board(c))) }

func (s *Server) pickTemplate(c fiber.Ctx) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	b := s.board(c)
	if err := b.PickTemplate(c.Context(), req.ID); err != nil {
		return err
	}
	return c.JSON(s.view(c, b))
}

func (s *Server) startCustom(c fiber.Ctx) error {
	b := s.board(c)
	if err := b.StartCustom(c.Context()); err != nil {
		return err
	}
	return c.JSON(s.view(c, b))
}

func (s *Server) reloadBoard(c fiber.Ctx) error {
	b := s.board(c)
	applied, err := b.Reload(c.Context())
	if err != nil {
		return err
	}
	v := s.view(c, b)
	v.Changed = &applied
	return c.JSON(v)
}

func sendBlob(c fiber.Ctx, data []byte) error {
	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	return c.Send(data)
}

func (s *Server) getBackground(c fiber.Ctx) error {
	data, err := s.board(c).Background(c.Context())
	if err != nil {
		return err
	}
	return sendBlob(c, data)
}

func (s *Server) putBackground(c fiber.Ctx) error {
	if err := s.board(c).SetBackground(c.Context(), c.Body()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getIntro(c fiber.Ctx) error {
	data, err := s.board(c).IntroVideo(c.Context())
	if err != nil {
		return err
	}
	return sendBlob(c, data)
}

func (s *Server) putIntro(c fiber.Ctx) error {
	if err := s.board(c).SetIntroVideo(c.Context(), c.Body()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getImage(c fiber.Ctx) error {
	data, err := s.board(c).Image(c.Context(), c.Query("src"))
	if err != nil {
		return err
	}
	return sendBlob(c, data)
}

func (s *Server) pagesResponse(c fiber.Ctx, m pagination.Metrics, page, offset int) error {
	return c.JSON(fiber.Map{
		"pages":  m,
		"page":   page,
		"offset": offset,
		"label":  s.t(c, "board.pages", page, m.TotalPages),
	})
}

func (s *Server) getPages(c fiber.Ctx) error {
	b := s.board(c)
	m := b.Pages()
	page := b.CurrentPage()
	return s.pagesResponse(c, m, page, m.Offset(page))
}

func (s *Server) gotoPage(c fiber.Ctx) error {
	var req struct {
		Page int `json:"page"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	b := s.board(c)
	page, offset := b.Goto(req.Page)
	return s.pagesResponse(c, b.Pages(), page, offset)
}

func (s *Server) listRevisions(c fiber.Ctx) error {
	limit := 0
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return badRequest(err)
		}
		limit = n
	}
	revs, err := s.board(c).Revisions(c.Context(), limit)
	if err != nil {
		return err
	}
	type entry struct {
		ID    int64  `json:"id"`
		TS    int64  `json:"ts"`
		Note  string `json:"note,omitempty"`
		Mode  string `json:"mode,omitempty"`
		Items int    `json:"items"`
	}
	out := make([]entry, 0, len(revs))
	for _, r := range revs {
		out = append(out, entry{ID: r.ID, TS: r.TS.UnixMilli(), Note: r.Note, Mode: string(r.Layout.Mode), Items: len(r.Layout.Items)})
	}
	return c.JSON(out)
}

func (s *Server) restoreRevision(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(errors.New("revision id must be numeric"))
	}
	b := s.board(c)
	if err := b.RestoreRevision(c.Context(), id); err != nil {
		return err
	}
	return c.JSON(s.view(c, b))
}
