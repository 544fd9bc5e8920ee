/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package auth is the local identity provider: accounts, the current user
// and the seeded demo account. Accounts live in the blob/JSON store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"

	"menuboard/internal/domain"
	applog "menuboard/internal/log"
	"menuboard/internal/storage"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrUnknownUser        = errors.New("unknown account")
	ErrWrongPassword      = errors.New("password does not match")
	ErrNoSuchUsername     = errors.New("no account with that username")
	ErrMissingNewPassword = errors.New("new password is required")
)

// MessageKey maps a sentinel error to its localization key. Unknown errors map to "auth.failed".
func MessageKey(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "auth.missing_credentials"
	case errors.Is(err, ErrUsernameTaken):
		return "auth.username_taken"
	case errors.Is(err, ErrUnknownUser):
		return "auth.unknown_user"
	case errors.Is(err, ErrWrongPassword):
		return "auth.wrong_password"
	case errors.Is(err, ErrNoSuchUsername):
		return "auth.no_such_username"
	case errors.Is(err, ErrMissingNewPassword):
		return "auth.missing_new_password"
	default:
		return "auth.failed"
	}
}

// Demo account seeded into every user list.
const (
	DemoUsername = "demo"
	DemoPassword = "demo1234"
	demoName     = "데모 계정"
	demoEmail    = "demo@example.com"
)

// Profile is the registration form.
type Profile struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Service implements the identity operations over a storage.Store.
type Service struct {
	store storage.Store
	cost  int
	now   func() time.Time
}

// Option tunes a Service.
type Option func(*Service)

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option { return func(s *Service) { s.cost = cost } }

// New returns a Service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, cost: bcrypt.DefaultCost, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Users returns all accounts, seeding the demo account on first read.
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.store.LoadJSON(ctx, storage.KeyUsers, &users)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if lo.ContainsBy(users, func(u domain.User) bool { return u.Username == DemoUsername }) {
		return users, nil
	}
	hash, err := s.hash(DemoPassword)
	if err != nil {
		return nil, err
	}
	users = append(users, domain.User{Username: DemoUsername, PasswordHash: hash, Name: demoName, Email: demoEmail})
	if err := s.store.SaveJSON(ctx, storage.KeyUsers, users); err != nil {
		return nil, fmt.Errorf("seed demo user: %w", err)
	}
	return users, nil
}

// Register creates an account and makes it the current user.
func (s *Service) Register(ctx context.Context, p Profile) (domain.User, error) {
	username := strings.TrimSpace(p.Username)
	name := strings.TrimSpace(p.Name)
	if username == "" || p.Password == "" {
		return domain.User{}, ErrMissingCredentials
	}
	users, err := s.Users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if lo.ContainsBy(users, func(u domain.User) bool { return u.Username == username }) {
		return domain.User{}, ErrUsernameTaken
	}
	hash, err := s.hash(p.Password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		Username:     username,
		PasswordHash: hash,
		Name:         lo.Ternary(name == "", username, name),
		Email:        strings.TrimSpace(p.Email),
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.store.SaveJSON(ctx, storage.KeyUsers, append(users, u)); err != nil {
		return domain.User{}, fmt.Errorf("save users: %w", err)
	}
	if err := s.setCurrent(ctx, &u); err != nil {
		return domain.User{}, err
	}
	applog.WithComponent("auth").Info("account registered", slog.String("user", username))
	return u, nil
}

// Login checks the secret and makes the account current. Accounts stored
// with a plaintext secret are upgraded to a hash on success.
func (s *Service) Login(ctx context.Context, username, password string) (domain.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	username = strings.TrimSpace(username)
	_, idx, ok := lo.FindIndexOf(users, func(u domain.User) bool { return u.Username == username })
	if !ok {
		return domain.User{}, ErrUnknownUser
	}
	u := users[idx]
	switch {
	case u.PasswordHash != "":
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return domain.User{}, ErrWrongPassword
		}
	case u.Password != "" && u.Password == password:
		hash, err := s.hash(password)
		if err != nil {
			return domain.User{}, err
		}
		u.PasswordHash, u.Password = hash, ""
		users[idx] = u
		if err := s.store.SaveJSON(ctx, storage.KeyUsers, users); err != nil {
			return domain.User{}, fmt.Errorf("save users: %w", err)
		}
	default:
		return domain.User{}, ErrWrongPassword
	}
	if err := s.setCurrent(ctx, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Logout clears the current user.
func (s *Service) Logout(ctx context.Context) error {
	return s.setCurrent(ctx, nil)
}

// CurrentUser returns the logged-in account, if any. Read failures count as logged out.
func (s *Service) CurrentUser(ctx context.Context) (domain.User, bool) {
	var u *domain.User
	if err := s.store.LoadJSON(ctx, storage.KeyCurrentUser, &u); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			applog.WithComponent("auth").Warn("current user unreadable", slog.Any("err", err))
		}
		return domain.User{}, false
	}
	if u == nil || u.Username == "" {
		return domain.User{}, false
	}
	return *u, true
}

// ResetSecret replaces the account's secret and makes it current.
func (s *Service) ResetSecret(ctx context.Context, username, next string) (domain.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	username = strings.TrimSpace(username)
	_, idx, ok := lo.FindIndexOf(users, func(u domain.User) bool { return u.Username == username })
	if !ok {
		return domain.User{}, ErrNoSuchUsername
	}
	if next == "" {
		return domain.User{}, ErrMissingNewPassword
	}
	hash, err := s.hash(next)
	if err != nil {
		return domain.User{}, err
	}
	u := users[idx]
	u.PasswordHash, u.Password = hash, ""
	users[idx] = u
	if err := s.store.SaveJSON(ctx, storage.KeyUsers, users); err != nil {
		return domain.User{}, fmt.Errorf("save users: %w", err)
	}
	if err := s.setCurrent(ctx, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// FindByEmail returns accounts whose email matches case-insensitively. A blank email matches nothing.
func (s *Service) FindByEmail(ctx context.Context, email string) ([]domain.User, error) {
	target := strings.ToLower(strings.TrimSpace(email))
	if target == "" {
		return []domain.User{}, nil
	}
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(users, func(u domain.User, _ int) bool {
		return strings.ToLower(strings.TrimSpace(u.Email)) == target
	}), nil
}

// setCurrent stores u without its secrets; nil logs out.
func (s *Service) setCurrent(ctx context.Context, u *domain.User) error {
	var cur *domain.User
	if u != nil {
		c := *u
		c.PasswordHash, c.Password = "", ""
		cur = &c
	}
	if err := s.store.SaveJSON(ctx, storage.KeyCurrentUser, cur); err != nil {
		return fmt.Errorf("save current user: %w", err)
	}
	return nil
}

func (s *Service) hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(b), nil
}
