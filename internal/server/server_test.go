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
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"menuboard/internal/auth"
	"menuboard/internal/board"
	"menuboard/internal/config"
	applog "menuboard/internal/log"
	"menuboard/internal/pin"
	"menuboard/internal/preset"
	"menuboard/internal/settings"
	"menuboard/internal/storage"
	"menuboard/internal/undo"
)

type testAPI struct {
	t   *testing.T
	srv *Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := storage.OpenDB(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewMemory()
	kv := settings.NewSQLite(db)
	deps := Deps{
		Auth:     auth.New(store, auth.WithCost(bcrypt.MinCost)),
		Boards:   board.New(store, db, board.WithHistory(undo.NewManager(undo.Config{MinInterval: -1}))),
		Presets:  preset.New(kv),
		PIN:      pin.New(kv),
		Settings: kv,
	}
	cfg := config.ServerConfig{BodyLimitMB: 8, SessionTTL: time.Hour}
	return &testAPI{t: t, srv: New(deps, cfg)}
}

// do sends body (JSON-encoded unless it is []byte) and decodes a JSON reply into out when non-nil.
func (a *testAPI) do(method, path, token string, body any, out any) *http.Response {
	a.t.Helper()
	var r io.Reader
	ctype := fiber.MIMEApplicationJSON
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
		ctype = fiber.MIMEOctetStream
	default:
		buf, err := json.Marshal(b)
		require.NoError(a.t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, ctype)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := a.srv.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(a.t, err)
	if out != nil {
		defer resp.Body.Close()
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (a *testAPI) login() string {
	var lr loginResponse
	resp := a.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: auth.DemoUsername, Password: auth.DemoPassword}, &lr)
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(a.t, lr.Token)
	return lr.Token
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type viewBody struct {
	Layout struct {
		Mode  *string          `json:"mode"`
		Items []map[string]any `json:"items"`
	} `json:"layout"`
	Editor   string   `json:"editor"`
	Dirty    bool     `json:"dirty"`
	Notice   string   `json:"notice"`
	Selected []string `json:"selected"`
	Created  []string `json:"created"`
	Page     int      `json:"page"`
	Shown    bool     `json:"shown"`
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	var body map[string]string
	resp := a.do(http.MethodGet, "/health", "", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestLoginAndLocalizedErrors(t *testing.T) {
	a := newTestAPI(t)

	var eb errBody
	resp := a.do(http.MethodGet, "/api/board", "", nil, &eb)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "auth.login_required", eb.Code)
	assert.Equal(t, "로그인이 필요합니다.", eb.Error)

	resp = a.do(http.MethodGet, "/api/board?lang=en", "", nil, &eb)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Please log in.", eb.Error)

	resp = a.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "demo", Password: "nope"}, &eb)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "auth.wrong_password", eb.Code)

	resp = a.do(http.MethodPost, "/api/auth/login", "", []byte("{"), &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	token := a.login()
	var me userPayload
	resp = a.do(http.MethodGet, "/api/auth/me", token, nil, &me)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "demo", me.Username)

	resp = a.do(http.MethodPost, "/api/auth/logout", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = a.do(http.MethodGet, "/api/auth/me", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterAndReset(t *testing.T) {
	a := newTestAPI(t)
	p := auth.Profile{Username: "kim", Password: "pw", Email: "Kim@Example.com"}
	resp := a.do(http.MethodPost, "/api/auth/register", "", p, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var eb errBody
	resp = a.do(http.MethodPost, "/api/auth/register", "", p, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "auth.username_taken", eb.Code)

	var found struct {
		Usernames []string `json:"usernames"`
	}
	resp = a.do(http.MethodPost, "/api/auth/reset", "", resetRequest{Email: "kim@example.com"}, &found)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"kim"}, found.Usernames)

	resp = a.do(http.MethodPost, "/api/auth/reset", "", resetRequest{Email: "none@example.com"}, &eb)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "auth.no_email_match", eb.Code)

	resp = a.do(http.MethodPost, "/api/auth/reset", "", resetRequest{Username: "kim", Password: "new"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "kim", Password: "new"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(http.MethodPost, "/api/auth/reset", "", resetRequest{}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "auth.reset_needs_input", eb.Code)
}

func TestEditorFlowSavesAndRecordsRevision(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	var eb errBody
	resp := a.do(http.MethodPost, "/api/editor/items/text", token, nil, &eb)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "editor.wrong_mode", eb.Code)

	var v viewBody
	resp = a.do(http.MethodPost, "/api/board/custom", token, nil, &v)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "editing", v.Editor)

	resp = a.do(http.MethodPost, "/api/editor/items/text", token, map[string]string{"role": "price"}, &v)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, v.Created, 1)
	id := v.Created[0]
	assert.True(t, v.Dirty)
	assert.NotEmpty(t, v.Notice)
	assert.Equal(t, []string{id}, v.Selected)

	resp = a.do(http.MethodPatch, "/api/editor/items/"+id, token, map[string]any{"color": "red"}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "editor.invalid", eb.Code)

	resp = a.do(http.MethodPatch, "/api/editor/items/"+id, token, map[string]any{"x": 300, "text": "₩12,000"}, &v)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, v.Layout.Items, 1)
	assert.EqualValues(t, 300, v.Layout.Items[0]["x"])

	resp = a.do(http.MethodPatch, "/api/editor/items/missing", token, map[string]any{"x": 1}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do(http.MethodPost, "/api/editor/save", token, nil, &v)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "viewing", v.Editor)
	assert.False(t, v.Dirty)
	require.NotNil(t, v.Layout.Mode)
	assert.Equal(t, "custom", *v.Layout.Mode)

	var revs []struct {
		ID    int64 `json:"id"`
		Items int   `json:"items"`
	}
	resp = a.do(http.MethodGet, "/api/board/revisions", token, nil, &revs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, revs, 1)
	assert.Equal(t, 1, revs[0].Items)
}

func TestCancelRestoresBaseline(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()
	var v viewBody
	a.do(http.MethodPost, "/api/board/custom", token, nil, &v)
	a.do(http.MethodPost, "/api/editor/items/text", token, nil, &v)
	a.do(http.MethodPost, "/api/editor/duplicate", token, nil, &v)
	require.Len(t, v.Layout.Items, 2)
	resp := a.do(http.MethodPost, "/api/editor/cancel", token, nil, &v)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, v.Layout.Items)
	assert.Empty(t, v.Selected)
	assert.False(t, v.Dirty)
}

func TestKeyAndAlign(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()
	var v viewBody
	a.do(http.MethodPost, "/api/board/custom", token, nil, &v)
	a.do(http.MethodPost, "/api/editor/items/text", token, nil, &v)
	x0 := v.Layout.Items[0]["x"].(float64)

	var kv struct {
		viewBody
		Consumed *bool `json:"consumed"`
	}
	resp := a.do(http.MethodPost, "/api/editor/key", token, map[string]any{"key": "ArrowRight", "shift": true}, &kv)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, kv.Consumed)
	assert.True(t, *kv.Consumed)
	assert.Equal(t, x0+10, kv.Layout.Items[0]["x"])

	var eb errBody
	resp = a.do(http.MethodPost, "/api/editor/align", token, map[string]string{"edge": "diagonal"}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = a.do(http.MethodPost, "/api/editor/align", token, map[string]string{"edge": "left"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func solidPNG(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadImageAndMedia(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()
	data := solidPNG(t)

	resp := a.do(http.MethodPost, "/api/editor/uploads/image", token, data, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	a.do(http.MethodPost, "/api/board/custom", token, nil, nil)
	var v viewBody
	resp = a.do(http.MethodPost, "/api/editor/uploads/image", token, data, &v)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, v.Layout.Items, 1)
	src, _ := v.Layout.Items[0]["src"].(string)
	assert.True(t, strings.HasPrefix(src, board.BlobPrefix))

	resp = a.do(http.MethodGet, "/api/board/image?src="+url.QueryEscape(src), token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	got, _ := io.ReadAll(resp.Body)
	assert.Equal(t, data, got)

	resp = a.do(http.MethodGet, "/api/board/background", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = a.do(http.MethodPut, "/api/board/background", token, data, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = a.do(http.MethodGet, "/api/board/background", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(http.MethodPut, "/api/board/intro", token, []byte{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPagesGotoClamps(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()
	a.do(http.MethodPost, "/api/board/custom", token, nil, nil)
	var v viewBody
	a.do(http.MethodPost, "/api/editor/items/text", token, nil, &v)
	id := v.Created[0]
	a.do(http.MethodPatch, "/api/editor/items/"+id, token, map[string]any{"y": 2800, "h": 200}, nil)

	var pr struct {
		Pages struct {
			TotalPages   int `json:"totalPages"`
			ScrollHeight int `json:"scrollHeight"`
		} `json:"pages"`
		Page   int    `json:"page"`
		Offset int    `json:"offset"`
		Label  string `json:"label"`
	}
	resp := a.do(http.MethodPost, "/api/board/pages/goto?lang=en", token, map[string]int{"page": 9}, &pr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, pr.Pages.TotalPages)
	assert.Equal(t, 4440, pr.Pages.ScrollHeight)
	assert.Equal(t, 2, pr.Page)
	assert.Equal(t, 2240, pr.Offset)
	assert.Equal(t, "Page 2 of 2", pr.Label)
}

func TestPresetsAndPack(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()
	a.do(http.MethodPost, "/api/board/custom", token, nil, nil)
	a.do(http.MethodPost, "/api/editor/items/text", token, nil, nil)

	var eb errBody
	resp := a.do(http.MethodPost, "/api/presets", token, map[string]string{"name": "  "}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "preset.name_required", eb.Code)

	resp = a.do(http.MethodPost, "/api/presets", token, map[string]string{"name": "Lunch"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var list []struct {
		ID    string           `json:"id"`
		Name  string           `json:"name"`
		Items []map[string]any `json:"items"`
	}
	a.do(http.MethodGet, "/api/presets", token, nil, &list)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 1)

	var v viewBody
	resp = a.do(http.MethodPost, "/api/editor/presets/"+list[0].ID+"/load", token, nil, &v)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, v.Layout.Items, 1)
	assert.NotEqual(t, list[0].Items[0]["id"], v.Layout.Items[0]["id"])

	resp = a.do(http.MethodGet, "/api/presets/pack", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pack, _ := io.ReadAll(resp.Body)

	resp = a.do(http.MethodDelete, "/api/presets?name=Lunch", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = a.do(http.MethodDelete, "/api/presets?name=Lunch", token, nil, &eb)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "preset.not_found", eb.Code)

	var inst struct {
		Installed int `json:"installed"`
	}
	resp = a.do(http.MethodPost, "/api/presets/pack", token, pack, &inst)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, inst.Installed)
}

func TestPINGate(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()
	var eb errBody
	resp := a.do(http.MethodPost, "/api/pin/check", token, map[string]string{"pin": pin.Default}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do(http.MethodPost, "/api/pin/check", token, map[string]string{"pin": "1111"}, &eb)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "pin.mismatch", eb.Code)

	resp = a.do(http.MethodPut, "/api/pin", token, map[string]string{"current": pin.Default, "next": "12a4"}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "pin.invalid_format", eb.Code)
	resp = a.do(http.MethodPut, "/api/pin", token, map[string]string{"current": pin.Default, "next": "4321"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do(http.MethodPost, "/api/pin/check", token, map[string]string{"pin": "4321"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExportFormats(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()
	a.do(http.MethodPost, "/api/board/custom", token, nil, nil)
	a.do(http.MethodPost, "/api/editor/items/text", token, nil, nil)

	resp := a.do(http.MethodGet, "/api/export/svg", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<svg")

	resp = a.do(http.MethodGet, "/api/export/png?scale=0.1", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := png.Decode(resp.Body)
	assert.NoError(t, err)

	resp = a.do(http.MethodGet, "/api/export/pdf?scale=0.5", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp = a.do(http.MethodGet, "/api/export/cbz", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = a.do(http.MethodGet, "/api/export/png?pages=x", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLanguageSwitch(t *testing.T) {
	a := newTestAPI(t)
	var body struct {
		Locale   string            `json:"locale"`
		Messages map[string]string `json:"messages"`
	}
	resp := a.do(http.MethodGet, "/api/i18n", "", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ko", body.Locale)

	resp = a.do(http.MethodPut, "/api/i18n", "", map[string]string{"locale": "fr"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = a.do(http.MethodPut, "/api/i18n", "", map[string]string{"locale": "en"}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Menu Board", body.Messages["app.title"])

	resp = a.do(http.MethodGet, "/api/i18n", "", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "en", body.Locale)
}

func TestSessionsExpire(t *testing.T) {
	s := NewSessions(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	tok := s.Issue("alice")
	user, ok := s.Resolve(tok)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.True(t, s.Active("alice"))
	now = now.Add(2 * time.Minute)
	_, ok = s.Resolve(tok)
	assert.False(t, ok)
	assert.False(t, s.Active("alice"))
}

func TestSessionsSweepExpiredOnIssue(t *testing.T) {
	s := NewSessions(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		s.Issue("alice")
	}
	require.Equal(t, 3, s.Len())
	now = now.Add(2 * time.Minute)
	tok := s.Issue("bob")
	assert.Equal(t, 1, s.Len(), "expired tokens must not outlive the next issue")
	user, ok := s.Resolve(tok)
	assert.True(t, ok)
	assert.Equal(t, "bob", user)
}

func TestRevealAfterFiveTaps(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()
	var v viewBody
	for i := 0; i < 4; i++ {
		resp := a.do(http.MethodPost, "/api/board/reveal/tap", token, nil, &v)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, v.Shown, "tap %d", i+1)
	}
	a.do(http.MethodPost, "/api/board/reveal/tap", token, nil, &v)
	assert.True(t, v.Shown)

	a.do(http.MethodPost, "/api/board/custom", token, nil, &v)
	assert.Equal(t, "editing", v.Editor)
	assert.True(t, v.Shown)
	a.do(http.MethodPost, "/api/editor/cancel", token, nil, nil)
	a.do(http.MethodGet, "/api/board", token, nil, &v)
	assert.Equal(t, "viewing", v.Editor)
	assert.False(t, v.Shown, "leaving editing hides the button")

	a.do(http.MethodPost, "/api/board/reveal/press-start", token, nil, &v)
	a.do(http.MethodPost, "/api/board/reveal/press-end", token, nil, &v)
	assert.False(t, v.Shown, "a short press does not reveal")
}

func TestRequestLogCarriesUserAndBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.json")
	applog.Init(applog.Options{Level: "debug", Format: "json", File: path})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "info"}) })

	a := newTestAPI(t)
	token := a.login()
	resp := a.do(http.MethodGet, "/api/board", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var found map[string]any
	for _, line := range strings.Split(string(raw), "\n") {
		var rec map[string]any
		if json.Unmarshal([]byte(line), &rec) != nil {
			continue
		}
		if rec["msg"] == "request" && rec["path"] == "/api/board" {
			found = rec
		}
	}
	require.NotNil(t, found, "no request line in %s", raw)
	assert.Equal(t, "server", found["component"])
	assert.Equal(t, auth.DemoUsername, found["user"])
	assert.Equal(t, "board:"+auth.DemoUsername, found["board"])
}
