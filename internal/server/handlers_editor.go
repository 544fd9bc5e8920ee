/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	"menuboard/internal/geometry"
)

// edit runs fn on the caller's editor and replies with the board view.
// extra may decorate the view with results of fn.
func (s *Server) edit(c fiber.Ctx, fn func(e *canvas.Editor) error, extra ...func(*boardView)) error {
	b := s.board(c)
	if err := b.Edit(fn); err != nil {
		return err
	}
	v := s.view(c, b)
	for _, x := range extra {
		x(&v)
	}
	return c.JSON(v)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type idRequest struct {
	ID       string `json:"id"`
	Additive bool   `json:"additive"`
}

type gestureRequest struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

func (s *Server) getEditor(c fiber.Ctx) error { return c.JSON(s.view(c, s.board(c))) }

func (s *Server) beginEdit(c fiber.Ctx) error {
	return s.edit(c, func(e *canvas.Editor) error { return e.BeginEdit() })
}

func (s *Server) setPreview(c fiber.Ctx) error {
	var req struct {
		On bool `json:"on"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.SetPreview(req.On) })
}

func (s *Server) save(c fiber.Ctx) error {
	ctx := c.Context()
	return s.edit(c, func(e *canvas.Editor) error { return e.Save(ctx) })
}

func (s *Server) cancel(c fiber.Ctx) error {
	return s.edit(c, func(e *canvas.Editor) error { return e.Cancel() })
}

func (s *Server) undo(c fiber.Ctx) error {
	var changed bool
	return s.edit(c, func(e *canvas.Editor) (err error) {
		changed, err = e.Undo()
		return err
	}, func(v *boardView) { v.Changed = &changed })
}

func (s *Server) redo(c fiber.Ctx) error {
	var changed bool
	return s.edit(c, func(e *canvas.Editor) (err error) {
		changed, err = e.Redo()
		return err
	}, func(v *boardView) { v.Changed = &changed })
}

func created(ids ...string) func(*boardView) {
	return func(v *boardView) { v.Created = ids }
}

func (s *Server) addText(c fiber.Ctx) error {
	var req struct {
		Role domain.Role `json:"role"`
	}
	if err := decodeOptional(c, &req); err != nil {
		return err
	}
	switch req.Role {
	case "":
		req.Role = domain.RoleName
	case domain.RoleName, domain.RolePrice:
	default:
		return badRequest(fmt.Errorf("unknown role %q", req.Role))
	}
	var id string
	return s.edit(c, func(e *canvas.Editor) (err error) {
		id, err = e.AddText(req.Role)
		return err
	}, func(v *boardView) { created(id)(v) })
}

func (s *Server) addImage(c fiber.Ctx) error {
	var req struct {
		Src string `json:"src"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	var id string
	return s.edit(c, func(e *canvas.Editor) (err error) {
		id, err = e.AddImage(req.Src)
		return err
	}, func(v *boardView) { created(id)(v) })
}

// uploadImage stores the raw request body as a photo blob and adds an item for it.
func (s *Server) uploadImage(c fiber.Ctx) error {
	b := s.board(c)
	id, err := b.AddImageBlob(c.Context(), c.Body())
	if err != nil {
		return err
	}
	v := s.view(c, b)
	v.Created = []string{id}
	return c.Status(fiber.StatusCreated).JSON(v)
}

func (s *Server) updateItem(c fiber.Ctx) error {
	var p domain.Patch
	if err := decode(c, &p); err != nil {
		return err
	}
	id := c.Params("id")
	return s.edit(c, func(e *canvas.Editor) error { return e.Update(id, p) })
}

func (s *Server) updateSelection(c fiber.Ctx) error {
	var p domain.Patch
	if err := decode(c, &p); err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.UpdateSelected(p) })
}

func (s *Server) removeSelection(c fiber.Ctx) error {
	return s.edit(c, func(e *canvas.Editor) error { return e.RemoveSelected() })
}

func (s *Server) selectItem(c fiber.Ctx) error {
	var req idRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.Select(req.ID, req.Additive) })
}

func (s *Server) setSelection(c fiber.Ctx) error {
	var req idsRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.SetSelection(req.IDs) })
}

func (s *Server) selectGroup(c fiber.Ctx) error {
	var req idRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.SelectGroup(req.ID) })
}

func (s *Server) backgroundClick(c fiber.Ctx) error {
	var cleared bool
	return s.edit(c, func(e *canvas.Editor) error {
		cleared = e.BackgroundClick()
		return nil
	}, func(v *boardView) { v.Changed = &cleared })
}

func (s *Server) moveSelection(c fiber.Ctx) error {
	var req struct {
		DX int `json:"dx"`
		DY int `json:"dy"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.MoveSelected(req.DX, req.DY) })
}

func (s *Server) duplicate(c fiber.Ctx) error {
	var ids []string
	return s.edit(c, func(e *canvas.Editor) (err error) {
		ids, err = e.DuplicateSelected()
		return err
	}, func(v *boardView) { created(ids...)(v) })
}

func (s *Server) align(c fiber.Ctx) error {
	var req struct {
		Edge string `json:"edge"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	edge, err := canvas.ParseEdge(req.Edge)
	if err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.Align(edge) })
}

func (s *Server) bringForward(c fiber.Ctx) error {
	return s.edit(c, func(e *canvas.Editor) error { return e.BringForward() })
}

func (s *Server) sendBackward(c fiber.Ctx) error {
	return s.edit(c, func(e *canvas.Editor) error { return e.SendBackward() })
}

func (s *Server) group(c fiber.Ctx) error {
	var gid string
	return s.edit(c, func(e *canvas.Editor) (err error) {
		gid, err = e.Group()
		return err
	}, func(v *boardView) {
		if gid != "" {
			v.Created = []string{gid}
		}
	})
}

func (s *Server) ungroup(c fiber.Ctx) error {
	return s.edit(c, func(e *canvas.Editor) error { return e.Ungroup() })
}

func (s *Server) lock(c fiber.Ctx) error {
	var req struct {
		Locked bool `json:"locked"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.SetLocked(req.Locked) })
}

func (s *Server) beginGesture(c fiber.Ctx) error {
	var req idRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.BeginGesture(req.ID) })
}

func (s *Server) endGesture(c fiber.Ctx) error {
	return s.edit(c, func(e *canvas.Editor) error {
		e.EndGesture()
		return nil
	})
}

func (s *Server) dragStop(c fiber.Ctx) error {
	var req gestureRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	var res geometry.SnapResult
	return s.edit(c, func(e *canvas.Editor) (err error) {
		res, err = e.DragStop(req.ID, req.X, req.Y)
		return err
	}, func(v *boardView) { v.Guides = res.Guides })
}

func (s *Server) resizeStop(c fiber.Ctx) error {
	var req gestureRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	var res geometry.SnapResult
	return s.edit(c, func(e *canvas.Editor) (err error) {
		res, err = e.ResizeStop(req.ID, req.X, req.Y, req.W, req.H)
		return err
	}, func(v *boardView) { v.Guides = res.Guides })
}

func (s *Server) key(c fiber.Ctx) error {
	var k canvas.Key
	if err := decode(c, &k); err != nil {
		return err
	}
	var consumed bool
	return s.edit(c, func(e *canvas.Editor) (err error) {
		consumed, err = e.HandleKey(k)
		return err
	}, func(v *boardView) { v.Consumed = &consumed })
}

func (s *Server) getSnap(c fiber.Ctx) error {
	var o geometry.SnapOptions
	_ = s.board(c).Edit(func(e *canvas.Editor) error {
		o = e.SnapOptions()
		return nil
	})
	return c.JSON(o)
}

func (s *Server) putSnap(c fiber.Ctx) error {
	var o geometry.SnapOptions
	if err := decode(c, &o); err != nil {
		return err
	}
	_ = s.board(c).Edit(func(e *canvas.Editor) error {
		e.SetSnapOptions(o)
		o = e.SnapOptions()
		return nil
	})
	return c.JSON(o)
}

func (s *Server) loadPreset(c fiber.Ctx) error {
	items, err := s.deps.Presets.Load(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return s.edit(c, func(e *canvas.Editor) error { return e.LoadItems(items) })
}
