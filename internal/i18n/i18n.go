/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package i18n holds the UI message catalogs (Korean base, English) and the
// persisted language preference.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"menuboard/internal/settings"
)

const (
	// BaseLocale is the source locale every other catalog falls back to.
	BaseLocale = "ko"
	// Key is the settings key holding the chosen language.
	Key = "APP_LANG_V1"
)

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle is a set of locale catalogs.
type Bundle struct {
	locales map[string]map[string]string
	tags    []language.Tag
	matcher language.Matcher
}

//go:embed locales/*.yaml
var embeddedFS embed.FS

var defaultBundle = mustLoad()

func mustLoad() *Bundle {
	b, err := LoadFromFS(embeddedFS)
	if err != nil {
		panic(err)
	}
	return b
}

// Default returns the embedded catalogs.
func Default() *Bundle { return defaultBundle }

// LoadFromFS loads every locales/*.yaml file of fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	sort.Strings(paths)
	b := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var f catalogFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		locale := strings.TrimSpace(f.Locale)
		if locale == "" || f.Messages == nil {
			return nil, fmt.Errorf("catalog %s: locale and messages are required", p)
		}
		if _, dup := b.locales[locale]; dup {
			return nil, fmt.Errorf("catalog %s: locale %q defined twice", p, locale)
		}
		b.locales[locale] = f.Messages
	}
	if _, ok := b.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	// base locale first so the matcher falls back to it
	b.tags = []language.Tag{language.MustParse(BaseLocale)}
	for _, l := range b.Locales() {
		if l == BaseLocale {
			continue
		}
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", l, err)
		}
		b.tags = append(b.tags, tag)
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Locales returns the available locales, sorted.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for l := range b.locales {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Supported reports whether locale has a catalog.
func (b *Bundle) Supported(locale string) bool {
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Match picks the best catalog for the given preferences, each either a tag
// ("en-US") or an Accept-Language header value. No usable preference yields BaseLocale.
func (b *Bundle) Match(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if parsed, _, err := language.ParseAcceptLanguage(p); err == nil {
			tags = append(tags, parsed...)
		}
	}
	if len(tags) == 0 {
		return BaseLocale
	}
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return BaseLocale
	}
	base, _ := b.tags[idx].Base()
	return base.String()
}

// Message returns the raw message for key, falling back to the base locale.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if m, ok := b.locales[strings.TrimSpace(locale)]; ok {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	v, ok := b.locales[BaseLocale][key]
	return v, ok
}

// T formats the message for key in locale. Unknown keys render as the key itself.
func (b *Bundle) T(locale, key string, args ...any) string {
	msg, ok := b.Message(locale, key)
	if !ok {
		return key
	}
	tag, err := language.Parse(locale)
	if err != nil || !b.Supported(locale) {
		tag = language.MustParse(BaseLocale)
	}
	return message.NewPrinter(tag).Sprintf(msg, args...)
}

// Language returns the stored language, or BaseLocale when none is stored.
func (b *Bundle) Language(ctx context.Context, kv settings.Store) string {
	if v, ok := kv.Get(ctx, Key); ok && b.Supported(v) {
		return v
	}
	return BaseLocale
}

// SetLanguage stores locale as the chosen language.
func (b *Bundle) SetLanguage(ctx context.Context, kv settings.Store, locale string) error {
	locale = strings.TrimSpace(locale)
	if !b.Supported(locale) {
		return fmt.Errorf("unsupported language %q", locale)
	}
	return kv.Set(ctx, Key, locale)
}

// Catalog returns every message of locale with base locale entries filling the gaps.
func (b *Bundle) Catalog(locale string) map[string]string {
	out := make(map[string]string, len(b.locales[BaseLocale]))
	for k, v := range b.locales[BaseLocale] {
		out[k] = v
	}
	for k, v := range b.locales[strings.TrimSpace(locale)] {
		out[k] = v
	}
	return out
}
