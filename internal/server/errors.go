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
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"menuboard/internal/auth"
	"menuboard/internal/board"
	"menuboard/internal/canvas"
	"menuboard/internal/domain"
	"menuboard/internal/pin"
	"menuboard/internal/preset"
	"menuboard/internal/storage"
)

var errUnauthorized = errors.New("login required")

// apiError carries an explicit status and message key.
type apiError struct {
	status int
	key    string
	args   []any
}

func (e *apiError) Error() string { return fmt.Sprintf("%d %s", e.status, e.key) }

func newAPIError(status int, key string, args ...any) error {
	return &apiError{status: status, key: key, args: args}
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func statusFor(err error) int {
	var ae *apiError
	var fe *fiber.Error
	switch {
	case errors.As(err, &ae):
		return ae.status
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, errUnauthorized),
		errors.Is(err, auth.ErrUnknownUser),
		errors.Is(err, auth.ErrWrongPassword):
		return fiber.StatusUnauthorized
	case errors.Is(err, pin.ErrMismatch):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, pin.ErrInvalidFormat),
		errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrMissingNewPassword):
		return fiber.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, canvas.ErrNotFound),
		errors.Is(err, preset.ErrNotFound),
		errors.Is(err, auth.ErrNoSuchUsername):
		return fiber.StatusNotFound
	case errors.Is(err, canvas.ErrWrongMode), errors.Is(err, canvas.ErrBusy):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func messageKey(err error) string {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae.key
	case errors.Is(err, errUnauthorized):
		return "auth.login_required"
	case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrUnknownUser), errors.Is(err, auth.ErrWrongPassword),
		errors.Is(err, auth.ErrNoSuchUsername), errors.Is(err, auth.ErrMissingNewPassword):
		return auth.MessageKey(err)
	case errors.Is(err, pin.ErrMismatch):
		return "pin.mismatch"
	case errors.Is(err, pin.ErrInvalidFormat):
		return "pin.invalid_format"
	case errors.Is(err, preset.ErrNotFound):
		return "preset.not_found"
	case errors.Is(err, board.ErrUnknownTemplate):
		return "board.template_unknown"
	case errors.Is(err, domain.ErrValidation):
		return "editor.invalid"
	case errors.Is(err, canvas.ErrBusy):
		return "editor.busy"
	case errors.Is(err, canvas.ErrWrongMode):
		return "editor.wrong_mode"
	}
	if statusFor(err) == fiber.StatusNotFound {
		return "error.not_found"
	}
	return "error.internal"
}

// handleError renders every handler error as {"error", "code", "detail"} with a localized message.
func (s *Server) handleError(c fiber.Ctx, err error) error {
	status := statusFor(err)
	key := messageKey(err)
	var args []any
	var ae *apiError
	if errors.As(err, &ae) {
		args = ae.args
	}
	body := fiber.Map{"error": s.t(c, key, args...), "code": key}
	if status >= fiber.StatusInternalServerError {
		s.l.ErrorContext(c.Context(), "request failed", slog.String("path", c.Path()), slog.Any("err", err))
	} else {
		body["detail"] = err.Error()
	}
	return c.Status(status).JSON(body)
}
