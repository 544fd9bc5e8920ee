/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes the menu board over a JSON HTTP API for the browser editor.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"menuboard/internal/auth"
	"menuboard/internal/board"
	"menuboard/internal/config"
	"menuboard/internal/i18n"
	applog "menuboard/internal/log"
	"menuboard/internal/pin"
	"menuboard/internal/preset"
	"menuboard/internal/settings"
	"menuboard/internal/version"
)

// Deps are the services the API is built on.
type Deps struct {
	Auth     *auth.Service
	Boards   *board.Service
	Presets  *preset.Store
	PIN      *pin.Gate
	Settings settings.Store
	I18n     *i18n.Bundle
	// Language forces the response locale; empty negotiates per request.
	Language string
}

// Server wires handlers onto a fiber app.
type Server struct {
	app      *fiber.App
	deps     Deps
	sessions *Sessions
	l        *slog.Logger
}

// New builds the app with all routes registered.
func New(deps Deps, cfg config.ServerConfig) *Server {
	if deps.I18n == nil {
		deps.I18n = i18n.Default()
	}
	s := &Server{
		deps:     deps,
		sessions: NewSessions(cfg.SessionTTL),
		l:        applog.WithComponent("server"),
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "menuboard " + version.String(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BodyLimit:    cfg.BodyLimitMB << 20,
		ErrorHandler: s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	s.app.Use(s.negotiateLocale)
	s.routes()
	return s
}

// App returns the underlying fiber app, for tests and embedding.
func (s *Server) App() *fiber.App { return s.app }

// Sessions returns the token registry.
func (s *Server) Sessions() *Sessions { return s.sessions }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.l.Info("listening", slog.String("addr", addr))
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": version.String()})
	})

	api := s.app.Group("/api")
	api.Get("/i18n", s.getI18n)
	api.Put("/i18n", s.putI18n)
	api.Post("/auth/register", s.register)
	api.Post("/auth/login", s.login)
	api.Post("/auth/reset", s.resetSecret)

	authed := api.Group("", s.requireUser)
	authed.Post("/auth/logout", s.logout)
	authed.Get("/auth/me", s.me)
	authed.Post("/pin/check", s.checkPIN)
	authed.Put("/pin", s.changePIN)

	authed.Get("/board", s.getBoard)
	authed.Post("/board/template", s.pickTemplate)
	authed.Post("/board/custom", s.startCustom)
	authed.Post("/board/reload", s.reloadBoard)
	authed.Get("/board/background", s.getBackground)
	authed.Put("/board/background", s.putBackground)
	authed.Get("/board/intro", s.getIntro)
	authed.Put("/board/intro", s.putIntro)
	authed.Get("/board/image", s.getImage)
	authed.Get("/board/pages", s.getPages)
	authed.Post("/board/pages/goto", s.gotoPage)
	authed.Get("/board/revisions", s.listRevisions)
	authed.Post("/board/revisions/:id/restore", s.restoreRevision)
	authed.Post("/board/reveal/tap", s.revealTap)
	authed.Post("/board/reveal/press-start", s.revealPressStart)
	authed.Post("/board/reveal/press-end", s.revealPressEnd)

	ed := authed.Group("/editor")
	ed.Get("", s.getEditor)
	ed.Post("/begin", s.beginEdit)
	ed.Post("/preview", s.setPreview)
	ed.Post("/save", s.save)
	ed.Post("/cancel", s.cancel)
	ed.Post("/undo", s.undo)
	ed.Post("/redo", s.redo)
	ed.Post("/items/text", s.addText)
	ed.Post("/items/image", s.addImage)
	ed.Post("/uploads/image", s.uploadImage)
	ed.Patch("/items/:id", s.updateItem)
	ed.Patch("/selection", s.updateSelection)
	ed.Delete("/selection", s.removeSelection)
	ed.Post("/select", s.selectItem)
	ed.Put("/selection", s.setSelection)
	ed.Post("/select-group", s.selectGroup)
	ed.Post("/background-click", s.backgroundClick)
	ed.Post("/move", s.moveSelection)
	ed.Post("/duplicate", s.duplicate)
	ed.Post("/align", s.align)
	ed.Post("/forward", s.bringForward)
	ed.Post("/backward", s.sendBackward)
	ed.Post("/group", s.group)
	ed.Post("/ungroup", s.ungroup)
	ed.Post("/lock", s.lock)
	ed.Post("/gesture/begin", s.beginGesture)
	ed.Post("/gesture/end", s.endGesture)
	ed.Post("/drag-stop", s.dragStop)
	ed.Post("/resize-stop", s.resizeStop)
	ed.Post("/key", s.key)
	ed.Get("/snap", s.getSnap)
	ed.Put("/snap", s.putSnap)
	ed.Post("/presets/:id/load", s.loadPreset)

	authed.Get("/presets", s.listPresets)
	authed.Post("/presets", s.savePreset)
	authed.Delete("/presets", s.deletePreset)
	authed.Get("/presets/pack", s.downloadPack)
	authed.Post("/presets/pack", s.installPack)

	authed.Get("/export/:format", s.exportBoard)
}

// requestLogger logs one line per request with the slog component logger.
func (s *Server) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	attrs := []any{
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.Duration("latency", time.Since(start)),
	}
	if status >= fiber.StatusInternalServerError {
		s.l.ErrorContext(c.Context(), "request", append(attrs, slog.Any("err", err))...)
	} else {
		s.l.DebugContext(c.Context(), "request", attrs...)
	}
	return err
}

const localeKey = "locale"

// negotiateLocale picks the response language: forced config, ?lang, Accept-Language, stored choice.
func (s *Server) negotiateLocale(c fiber.Ctx) error {
	b := s.deps.I18n
	locale := s.deps.Language
	switch {
	case b.Supported(locale):
	case b.Supported(c.Query("lang")):
		locale = c.Query("lang")
	case strings.TrimSpace(c.Get(fiber.HeaderAcceptLanguage)) != "":
		locale = b.Match(c.Get(fiber.HeaderAcceptLanguage))
	case s.deps.Settings != nil:
		locale = b.Language(c.Context(), s.deps.Settings)
	default:
		locale = i18n.BaseLocale
	}
	c.Locals(localeKey, locale)
	return c.Next()
}

func (s *Server) locale(c fiber.Ctx) string {
	if v, ok := c.Locals(localeKey).(string); ok {
		return v
	}
	return i18n.BaseLocale
}

func (s *Server) t(c fiber.Ctx, key string, args ...any) string {
	return s.deps.I18n.T(s.locale(c), key, args...)
}
