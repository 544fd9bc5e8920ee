/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/zalando/go-keyring"
)

// ServerConfig tunes the HTTP API. It is read from the environment only.
type ServerConfig struct {
	Addr         string        `env:"MB_ADDR"          envDefault:"127.0.0.1:8080"`
	ReadTimeout  time.Duration `env:"MB_READ_TIMEOUT"  envDefault:"15s"`
	WriteTimeout time.Duration `env:"MB_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"MB_IDLE_TIMEOUT"  envDefault:"2m"`
	// BodyLimitMB bounds uploads such as intro videos.
	BodyLimitMB int           `env:"MB_BODY_LIMIT_MB" envDefault:"64"`
	SessionTTL  time.Duration `env:"MB_SESSION_TTL"   envDefault:"12h"`
}

// LoadServer parses ServerConfig from the environment.
func LoadServer() (ServerConfig, error) {
	var c ServerConfig
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// Keyring stores secrets in the OS keychain via github.com/zalando/go-keyring.
type Keyring struct{}

func (Keyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (Keyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (Keyring) Delete(service, key string) error        { return keyring.Delete(service, key) }
