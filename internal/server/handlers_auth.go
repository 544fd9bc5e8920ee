/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/samber/lo"

	"menuboard/internal/auth"
	"menuboard/internal/domain"
	"menuboard/internal/pin"
)

type userPayload struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"`
}

func mapUser(u domain.User) userPayload {
	return userPayload{Username: u.Username, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string      `json:"token"`
	User    userPayload `json:"user"`
	Message string      `json:"message"`
}

type resetRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// decode unmarshals the JSON body into v. An empty body is a validation error.
func decode(c fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return badRequest(errors.New("empty body"))
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return badRequest(fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

// decodeOptional is decode that accepts an empty body.
func decodeOptional(c fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return decode(c, v)
}

func (s *Server) register(c fiber.Ctx) error {
	var p auth.Profile
	if err := decode(c, &p); err != nil {
		return err
	}
	u, err := s.deps.Auth.Register(c.Context(), p)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":    mapUser(u),
		"message": s.t(c, "auth.registered"),
	})
}

func (s *Server) login(c fiber.Ctx) error {
	var req loginRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	u, err := s.deps.Auth.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(loginResponse{
		Token:   s.sessions.Issue(u.Username),
		User:    mapUser(u),
		Message: s.t(c, "auth.welcome"),
	})
}

func (s *Server) logout(c fiber.Ctx) error {
	user := currentUser(c)
	s.sessions.Revoke(bearer(c))
	if !s.sessions.Active(user) {
		s.deps.Boards.Close(user)
	}
	if err := s.deps.Auth.Logout(c.Context()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) me(c fiber.Ctx) error {
	users, err := s.deps.Auth.Users(c.Context())
	if err != nil {
		return err
	}
	u, ok := lo.Find(users, func(u domain.User) bool { return u.Username == currentUser(c) })
	if !ok {
		return auth.ErrUnknownUser
	}
	return c.JSON(mapUser(u))
}

// resetSecret either lists the usernames registered to an email or sets a new password.
func (s *Server) resetSecret(c fiber.Ctx) error {
	var req resetRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	switch {
	case strings.TrimSpace(req.Email) != "":
		users, err := s.deps.Auth.FindByEmail(c.Context(), req.Email)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return newAPIError(fiber.StatusNotFound, "auth.no_email_match")
		}
		names := lo.Map(users, func(u domain.User, _ int) string { return u.Username })
		return c.JSON(fiber.Map{
			"usernames": names,
			"message":   s.t(c, "auth.found_usernames", strings.Join(names, ", ")),
		})
	case strings.TrimSpace(req.Username) != "":
		u, err := s.deps.Auth.ResetSecret(c.Context(), req.Username, req.Password)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"user":    mapUser(u),
			"message": s.t(c, "auth.password_reset", u.Username),
		})
	default:
		return newAPIError(fiber.StatusBadRequest, "auth.reset_needs_input")
	}
}

func (s *Server) i18nResponse(c fiber.Ctx, locale string) error {
	return c.JSON(fiber.Map{
		"locale":   locale,
		"locales":  s.deps.I18n.Locales(),
		"messages": s.deps.I18n.Catalog(locale),
	})
}

func (s *Server) getI18n(c fiber.Ctx) error { return s.i18nResponse(c, s.locale(c)) }

func (s *Server) putI18n(c fiber.Ctx) error {
	var req struct {
		Locale string `json:"locale"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	if s.deps.Settings == nil {
		return errors.New("settings store unavailable")
	}
	if err := s.deps.I18n.SetLanguage(c.Context(), s.deps.Settings, req.Locale); err != nil {
		return badRequest(err)
	}
	return s.i18nResponse(c, strings.TrimSpace(req.Locale))
}

func (s *Server) checkPIN(c fiber.Ctx) error {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	if !s.deps.PIN.Check(c.Context(), req.PIN) {
		return pin.ErrMismatch
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) changePIN(c fiber.Ctx) error {
	var req struct {
		Current string `json:"current"`
		Next    string `json:"next"`
	}
	if err := decode(c, &req); err != nil {
		return err
	}
	if err := s.deps.PIN.Change(c.Context(), req.Current, req.Next); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true, "message": s.t(c, "pin.changed")})
}
