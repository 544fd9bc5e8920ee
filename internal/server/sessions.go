/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	applog "menuboard/internal/log"
)

// Sessions maps bearer tokens to usernames.
type Sessions struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	tokens map[string]session
}

type session struct {
	user    string
	expires time.Time
}

// NewSessions returns a registry whose tokens expire after ttl; ttl <= 0 never expires.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, now: time.Now, tokens: make(map[string]session)}
}

// Issue creates a token for user. Expired tokens are swept first.
func (m *Sessions) Issue(user string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	token := uuid.NewString()
	var exp time.Time
	if m.ttl > 0 {
		exp = m.now().Add(m.ttl)
	}
	m.tokens[token] = session{user: user, expires: exp}
	return token
}

// Resolve returns the user of token. Expired tokens are dropped.
func (m *Sessions) Resolve(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.tokens[token]
	if !ok {
		return "", false
	}
	if !s.expires.IsZero() && m.now().After(s.expires) {
		delete(m.tokens, token)
		return "", false
	}
	return s.user, true
}

func (m *Sessions) sweepLocked() {
	now := m.now()
	for token, s := range m.tokens {
		if !s.expires.IsZero() && now.After(s.expires) {
			delete(m.tokens, token)
		}
	}
}

// Len is the number of tokens held, live or not yet swept.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// Revoke forgets token.
func (m *Sessions) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}

// Active reports whether user holds any live token.
func (m *Sessions) Active(user string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, s := range m.tokens {
		if s.user == user && (s.expires.IsZero() || !now.After(s.expires)) {
			return true
		}
	}
	return false
}

const userKey = "user"

func bearer(c fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func (s *Server) requireUser(c fiber.Ctx) error {
	user, ok := s.sessions.Resolve(bearer(c))
	if !ok {
		return errUnauthorized
	}
	c.Locals(userKey, user)
	c.SetContext(applog.ContextWithUser(c.Context(), user))
	return c.Next()
}

func currentUser(c fiber.Ctx) string {
	u, _ := c.Locals(userKey).(string)
	return u
}
