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
	"strings"

	"github.com/gofiber/fiber/v3"

	"menuboard/internal/domain"
)

func (s *Server) listPresets(c fiber.Ctx) error {
	return c.JSON(s.deps.Presets.List(c.Context()))
}

// savePreset stores the given items, or the caller's current board items when none are sent.
func (s *Server) savePreset(c fiber.Ctx) error {
	var req struct {
		Name  string        `json:"name"`
		Items []domain.Item `json:"items"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return newAPIError(fiber.StatusBadRequest, "preset.name_required")
	}
	items := req.Items
	if items == nil {
		items = s.board(c).Layout().Items
	}
	p, err := s.deps.Presets.Save(c.Context(), req.Name, items)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"preset": p, "message": s.t(c, "preset.saved")})
}

func (s *Server) deletePreset(c fiber.Ctx) error {
	if err := s.deps.Presets.DeleteByName(c.Context(), c.Query("name")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) downloadPack(c fiber.Ctx) error {
	var buf bytes.Buffer
	if _, err := s.deps.Presets.WritePack(c.Context(), &buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="menuboard-presets.zip"`)
	return c.Send(buf.Bytes())
}

func (s *Server) installPack(c fiber.Ctx) error {
	body := c.Body()
	n, err := s.deps.Presets.ReadPack(c.Context(), bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return badRequest(err)
	}
	return c.JSON(fiber.Map{"installed": n, "message": s.t(c, "preset.installed", n)})
}
